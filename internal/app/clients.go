package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	redisclient "github.com/yungbote/contentplan-backend/internal/clients/redis"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
	"github.com/yungbote/contentplan-backend/internal/platform/openai"
)

type Clients struct {
	Redis      *goredis.Client
	PlanLocker *redisclient.PlanLocker
	JobEvents  *redisclient.JobEventBus
	Openai     openai.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis (optional)
	rdb, err := redisclient.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out := Clients{Redis: rdb}
	if rdb != nil {
		out.PlanLocker = redisclient.NewPlanLocker(rdb, log)
		out.JobEvents = redisclient.NewJobEventBus(rdb)
	} else {
		log.Info("REDIS_ADDR not set; plan merges rely on row versions only")
	}

	// Openai
	if cfg.RunWorker || cfg.RequireModel {
		c, err := openai.NewClient(log)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init openai client: %w", err)
		}
		out.Openai = c
	}
	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
