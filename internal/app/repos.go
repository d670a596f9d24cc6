package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/data/repos"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type Repos struct {
	Brand        repos.BrandRepo
	StrategyPlan repos.StrategyPlanRepo
	ContentItem  repos.ContentItemRepo
	JobRun       repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Brand:        repos.NewBrandRepo(db, log),
		StrategyPlan: repos.NewStrategyPlanRepo(db, log),
		ContentItem:  repos.NewContentItemRepo(db, log),
		JobRun:       repos.NewJobRunRepo(db, log),
	}
}
