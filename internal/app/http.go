package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/http"
	httpH "github.com/yungbote/contentplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/contentplan-backend/internal/http/middleware"
	"github.com/yungbote/contentplan-backend/internal/observability"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Brand    *httpH.BrandHandler
	Strategy *httpH.StrategyHandler
	Job      *httpH.JobHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(db),
		Brand:    httpH.NewBrandHandler(services.Brand),
		Strategy: httpH.NewStrategyHandler(services.Strategy),
		Job:      httpH.NewJobHandler(services.JobService),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:             log,
		ServiceName:     cfg.ServiceName,
		Metrics:         metrics,
		OwnerMiddleware: httpMW.NewOwnerMiddleware(log),
		BrandHandler:    handlers.Brand,
		StrategyHandler: handlers.Strategy,
		JobHandler:      handlers.Job,
		HealthHandler:   handlers.Health,
	})
}
