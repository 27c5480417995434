package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/perks/perks/internal/model"
)

const (
	// authCachePrefix is the Redis key prefix for auth context cache.
	authCachePrefix = "auth:user:"
	// authCacheTTL is the time-to-live for cached auth contexts.
	authCacheTTL = 5 * time.Minute
)

// CachedAuthContext represents auth context stored in Redis.
type CachedAuthContext struct {
	UserID     int64  `json:"user_id"`
	UTORid     string `json:"utorid"`
	Role       string `json:"role"`
	Verified   bool   `json:"verified"`
	Suspicious bool   `json:"suspicious"`
}

func authKey(userID int64) string {
	return authCachePrefix + strconv.FormatInt(userID, 10)
}

// GetAuthContext retrieves the cached auth context of a user.
// Returns nil if not found (cache miss).
func (c *Cache) GetAuthContext(ctx context.Context, userID int64) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, authKey(userID)).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached CachedAuthContext
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	role, ok := model.ParseRole(cached.Role)
	if !ok || cached.UserID != userID {
		return nil, nil
	}

	return &model.AuthContext{
		UserID:     cached.UserID,
		UTORid:     cached.UTORid,
		Role:       role,
		Verified:   cached.Verified,
		Suspicious: cached.Suspicious,
	}, nil
}

// SetAuthContext caches an auth context.
func (c *Cache) SetAuthContext(ctx context.Context, auth *model.AuthContext) error {
	cached := CachedAuthContext{
		UserID:     auth.UserID,
		UTORid:     auth.UTORid,
		Role:       string(auth.Role),
		Verified:   auth.Verified,
		Suspicious: auth.Suspicious,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, authKey(auth.UserID), data, authCacheTTL).Err()
}

// DeleteAuthContext removes a cached auth context.
// Called whenever a user's role or status flags change.
func (c *Cache) DeleteAuthContext(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, authKey(userID)).Err()
}
