package app

import (
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
	"github.com/yungbote/contentplan-backend/internal/platform/envutil"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type Config struct {
	ServiceName string
	Environment string
	Version     string
	Port        string

	RunServer bool
	RunWorker bool
	// RequireModel forces an OpenAI client even when no worker runs in-process.
	RequireModel bool

	Strategy strategy.Settings
}

func LoadConfig(log *logger.Logger) (Config, error) {
	settings, err := strategy.LoadSettings()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		ServiceName: envutil.String("SERVICE_NAME", "contentplan"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		Port:        envutil.String("PORT", "8080"),
		RunServer:   envutil.Bool("RUN_SERVER", true),
		RunWorker:   envutil.Bool("RUN_WORKER", true),
		Strategy:    settings,
	}
	log.Info("Loaded configuration",
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
		"run_server", cfg.RunServer,
		"run_worker", cfg.RunWorker,
		"strategy_batch_count", settings.BatchCount,
		"similarity_threshold", settings.SimilarityThreshold,
	)
	return cfg, nil
}
