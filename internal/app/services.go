package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/jobs/pipeline/content_refine"
	"github.com/yungbote/contentplan-backend/internal/jobs/pipeline/strategy_batch_generate"
	"github.com/yungbote/contentplan-backend/internal/jobs/pipeline/strategy_materialize"
	jobruntime "github.com/yungbote/contentplan-backend/internal/jobs/runtime"
	"github.com/yungbote/contentplan-backend/internal/jobs/worker"
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
	"github.com/yungbote/contentplan-backend/internal/services"
)

type Services struct {
	Brand    services.BrandService
	Strategy services.StrategyService

	// Jobs + notifications
	JobNotifier services.JobNotifier
	JobService  services.JobService

	// Job infra
	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	// nil interfaces, not typed nils, when redis is absent
	var bus services.JobEventPublisher
	var locker strategy.PlanLocker
	if clients.JobEvents != nil {
		bus = clients.JobEvents
	}
	if clients.PlanLocker != nil {
		locker = clients.PlanLocker
	}
	var model strategy.ModelCaller
	if clients.Openai != nil {
		model = clients.Openai
	}

	jobNotifier := services.NewJobNotifier(log, bus)
	jobService := services.NewJobService(db, log, repos.JobRun, jobNotifier)
	brandService := services.NewBrandService(db, log, repos.Brand)
	strategyService := services.NewStrategyService(services.StrategyServiceDeps{
		DB:       db,
		Log:      log,
		Brands:   repos.Brand,
		Plans:    repos.StrategyPlan,
		Items:    repos.ContentItem,
		JobRuns:  repos.JobRun,
		Jobs:     jobService,
		Model:    model,
		Locker:   locker,
		Settings: cfg.Strategy,
	})

	// Job registry
	jobRegistry := jobruntime.NewRegistry()
	handlers := []jobruntime.Handler{
		strategy_batch_generate.New(log, strategyService),
		strategy_materialize.New(log, strategyService),
		content_refine.New(log, strategyService),
	}
	for _, h := range handlers {
		if err := jobRegistry.Register(h); err != nil {
			return Services{}, err
		}
	}

	var jobWorker *worker.Worker
	if cfg.RunWorker {
		jobWorker = worker.NewWorker(db, log, repos.JobRun, jobRegistry, jobNotifier)
	}

	return Services{
		Brand:       brandService,
		Strategy:    strategyService,
		JobNotifier: jobNotifier,
		JobService:  jobService,
		JobRegistry: jobRegistry,
		JobWorker:   jobWorker,
	}, nil
}
