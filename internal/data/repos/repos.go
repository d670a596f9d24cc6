package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/data/repos/jobs"
	"github.com/yungbote/contentplan-backend/internal/data/repos/strategy"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type BrandRepo = strategy.BrandRepo
type StrategyPlanRepo = strategy.StrategyPlanRepo
type ContentItemRepo = strategy.ContentItemRepo

type JobRunRepo = jobs.JobRunRepo

func NewBrandRepo(db *gorm.DB, baseLog *logger.Logger) BrandRepo {
	return strategy.NewBrandRepo(db, baseLog)
}
func NewStrategyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StrategyPlanRepo {
	return strategy.NewStrategyPlanRepo(db, baseLog)
}
func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return strategy.NewContentItemRepo(db, baseLog)
}
func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
