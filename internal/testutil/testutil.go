package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/perks/perks/internal/model"
	"github.com/perks/perks/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 309309

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops every table and re-applies the embedded up migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	downs, err := migrationFiles(".down.sql")
	if err != nil {
		return err
	}
	slices.Reverse(downs)
	ups, err := migrationFiles(".up.sql")
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS schema_migrations"); err != nil {
		return fmt.Errorf("drop schema_migrations: %w", err)
	}

	for _, name := range append(downs, ups...) {
		sql, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}

	return nil
}

func migrationFiles(suffix string) ([]string, error) {
	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

var (
	seq     atomic.Int64
	seqBase = time.Now().UnixNano() % 50000
)

// UniqueUTORid generates an 8 character UTORid that is unique within the test run.
func UniqueUTORid(prefix string) string {
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	n := seqBase + seq.Add(1)
	return fmt.Sprintf("%s%0*d", prefix, 8-len(prefix), n%100000)
}

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, role model.Role) *model.User {
	t.Helper()
	utorid := UniqueUTORid("usr")
	return &model.User{
		UTORid:   utorid,
		Name:     "Test " + utorid,
		Email:    utorid + "@mail.utoronto.ca",
		Role:     role,
		Verified: true,
	}
}

// NewTestPromotion creates an automatic promotion active around now.
func NewTestPromotion(t testing.TB, name string) *model.Promotion {
	t.Helper()
	now := time.Now().UTC()
	rate := 0.01
	return &model.Promotion{
		Name:        name,
		Description: "test promotion",
		Type:        model.PromotionAutomatic,
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(24 * time.Hour),
		Rate:        &rate,
	}
}

// NewTestEvent creates an event starting in an hour.
func NewTestEvent(t testing.TB, name string, points int64) *model.Event {
	t.Helper()
	now := time.Now().UTC()
	return &model.Event{
		Name:         name,
		Description:  "test event",
		Location:     "BA 1160",
		StartTime:    now.Add(time.Hour),
		EndTime:      now.Add(3 * time.Hour),
		PointsRemain: points,
	}
}
