package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/perks/perks/internal/model"
)

// Cache key prefixes and TTLs.
const (
	promotionKeyPrefix = "promotion:"
	negCacheKeySuffix  = ":neg"

	// DefaultPromotionTTL is the upper bound for cached promotion data.
	DefaultPromotionTTL = time.Hour

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute
)

func promotionKey(id int64) string {
	return promotionKeyPrefix + strconv.FormatInt(id, 10)
}

// GetPromotion retrieves a promotion from cache.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetPromotion(ctx context.Context, id int64) (*model.Promotion, error) {
	data, err := c.client.Get(ctx, promotionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p model.Promotion
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrCacheMiss
	}

	return &p, nil
}

// SetPromotion stores a promotion in cache.
// Entries never outlive the promotion itself.
func (c *Cache) SetPromotion(ctx context.Context, p *model.Promotion) error {
	key := promotionKey(p.ID)

	ttl := DefaultPromotionTTL
	expiresIn := time.Until(p.EndTime)
	if expiresIn <= 0 {
		c.client.Del(ctx, key)
		return nil
	}
	if expiresIn < ttl {
		ttl = expiresIn
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal promotion: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache promotion: %w", err)
	}

	return nil
}

// DeletePromotion removes a promotion and its negative entry from cache.
func (c *Cache) DeletePromotion(ctx context.Context, id int64) error {
	key := promotionKey(id)

	pipe := c.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.Del(ctx, key+negCacheKeySuffix)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete promotion from cache: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a promotion ID is known not to exist.
func (c *Cache) IsNegativelyCached(ctx context.Context, id int64) (bool, error) {
	exists, err := c.client.Exists(ctx, promotionKey(id)+negCacheKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a promotion ID as not found.
func (c *Cache) SetNegativeCache(ctx context.Context, id int64) error {
	if err := c.client.SetEx(ctx, promotionKey(id)+negCacheKeySuffix, "", NegativeCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
