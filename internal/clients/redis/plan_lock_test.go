package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestPlanLockerExcludesSecondHolder(t *testing.T) {
	rdb := testClient(t)
	l := NewPlanLocker(rdb, logger.Nop())
	l.wait = 100 * time.Millisecond
	ctx := context.Background()
	planID := uuid.New()

	unlock, err := l.Lock(ctx, planID)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := l.Lock(ctx, planID); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	unlock()
	unlock2, err := l.Lock(ctx, planID)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	unlock2()
}
