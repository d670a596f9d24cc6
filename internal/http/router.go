package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/contentplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/contentplan-backend/internal/http/middleware"
	"github.com/yungbote/contentplan-backend/internal/observability"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	ServiceName     string
	Metrics         *observability.Metrics
	OwnerMiddleware *httpMW.OwnerMiddleware

	BrandHandler    *httpH.BrandHandler
	StrategyHandler *httpH.StrategyHandler
	JobHandler      *httpH.JobHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	{
		if cfg.OwnerMiddleware != nil {
			protected.Use(cfg.OwnerMiddleware.RequireOwner())
		}

		// Brands
		if cfg.BrandHandler != nil {
			protected.POST("/brands", cfg.BrandHandler.CreateBrand)
			protected.GET("/brands/:id", cfg.BrandHandler.GetBrand)
		}

		// Strategies
		if cfg.StrategyHandler != nil {
			protected.POST("/strategies", cfg.StrategyHandler.CreateStrategy)
			protected.GET("/strategies/:id", cfg.StrategyHandler.GetStrategy)
			protected.POST("/strategies/:id/resume", cfg.StrategyHandler.ResumeStrategy)
			protected.POST("/strategies/:id/refine", cfg.StrategyHandler.RefineStrategy)
			protected.DELETE("/strategies/:id", cfg.StrategyHandler.DeleteStrategy)
			protected.GET("/strategies/:id/content-items", cfg.StrategyHandler.ListContentItems)
		}

		// Job
		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
