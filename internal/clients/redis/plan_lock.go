package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/contentplan-backend/internal/platform/httpx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

var ErrLockTimeout = errors.New("timed out waiting for plan lock")

// release only deletes the key when it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// PlanLocker is a per-plan mutex in redis (SET NX PX with a random token).
type PlanLocker struct {
	rdb  *goredis.Client
	log  *logger.Logger
	ttl  time.Duration
	wait time.Duration
}

func NewPlanLocker(rdb *goredis.Client, baseLog *logger.Logger) *PlanLocker {
	return &PlanLocker{
		rdb:  rdb,
		log:  baseLog.With("client", "RedisPlanLocker"),
		ttl:  30 * time.Second,
		wait: 10 * time.Second,
	}
}

func lockKey(planID uuid.UUID) string { return "contentplan:lock:strategy_plan:" + planID.String() }

// Lock blocks until the plan lock is held, ctx ends, or the wait budget is
// spent. The returned func releases it.
func (l *PlanLocker) Lock(ctx context.Context, planID uuid.UUID) (func(), error) {
	key := lockKey(planID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)
	backoff := 25 * time.Millisecond
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire plan lock: %w", err)
		}
		if ok {
			return func() {
				// release on a fresh context so a canceled caller still unlocks
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
					l.log.Warn("release plan lock failed", "strategy_plan_id", planID, "error", err)
				}
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(httpx.JitterSleep(backoff)):
		}
		if backoff < 400*time.Millisecond {
			backoff *= 2
		}
	}
}
