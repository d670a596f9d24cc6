package domain

import (
	"github.com/yungbote/contentplan-backend/internal/domain/jobs"
	"github.com/yungbote/contentplan-backend/internal/domain/strategy"
)

type JobRun = jobs.JobRun

type Brand = strategy.Brand
type StrategyPlan = strategy.StrategyPlan
type ContentItem = strategy.ContentItem

const (
	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
	JobStatusCanceled  = jobs.StatusCanceled
)

const (
	PlanStatusPending  = strategy.PlanStatusPending
	PlanStatusComplete = strategy.PlanStatusComplete
)

const (
	ContentStatusDraft          = strategy.ContentStatusDraft
	ContentStatusInProduction   = strategy.ContentStatusInProduction
	ContentStatusReadyForReview = strategy.ContentStatusReadyForReview
	ContentStatusApproved       = strategy.ContentStatusApproved
	ContentStatusFailed         = strategy.ContentStatusFailed
)

const (
	TemplateOnlyAvatars          = strategy.TemplateOnlyAvatars
	TemplateAvatarAndVideo       = strategy.TemplateAvatarAndVideo
	TemplateNarrationOver7Images = strategy.TemplateNarrationOver7Images
	TemplateRemix                = strategy.TemplateRemix
	TemplateOneToThreeVideos     = strategy.TemplateOneToThreeVideos
)

const (
	VideoSourceNone     = strategy.VideoSourceNone
	VideoSourceExternal = strategy.VideoSourceExternal
	VideoSourceKling    = strategy.VideoSourceKling
)

// AllModels lists every table in migration order.
func AllModels() []any {
	return []any{
		&Brand{},
		&StrategyPlan{},
		&ContentItem{},
		&JobRun{},
	}
}
