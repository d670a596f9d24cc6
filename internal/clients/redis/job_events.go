package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/contentplan-backend/internal/platform/envutil"
)

// JobEvent is what the job notifier fans out to listeners of the channel.
type JobEvent struct {
	Event       string    `json:"event"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	JobID       uuid.UUID `json:"job_id"`
	JobType     string    `json:"job_type"`
	EntityID    string    `json:"entity_id,omitempty"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	Progress    int       `json:"progress"`
	Message     string    `json:"message,omitempty"`
	Error       string    `json:"error,omitempty"`
	At          time.Time `json:"at"`
}

type JobEventBus struct {
	rdb     *goredis.Client
	channel string
}

func NewJobEventBus(rdb *goredis.Client) *JobEventBus {
	return &JobEventBus{
		rdb:     rdb,
		channel: envutil.String("REDIS_CHANNEL", "contentplan.jobs"),
	}
}

func (b *JobEventBus) Publish(ctx context.Context, ev JobEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}
