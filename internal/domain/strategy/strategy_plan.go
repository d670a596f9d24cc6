package strategy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PlanStatusPending  = "pending"
	PlanStatusComplete = "complete"
)

// StrategyPlan is one AI-authored monthly strategy per (owner, brand, month).
// WeeklyPlan and ContentDistribution are written concurrently by batch jobs;
// every write goes through a compare-and-swap on Version.
type StrategyPlan struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_strategy_plan_owner_brand_month,priority:1" json:"owner_user_id"`
	BrandID             uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_strategy_plan_owner_brand_month,priority:2" json:"brand_id"`
	Month               string         `gorm:"column:month;not null;uniqueIndex:idx_strategy_plan_owner_brand_month,priority:3" json:"month"`
	Status              string         `gorm:"column:status;not null;index" json:"status"`
	ObjectiveOfTheMonth string         `gorm:"column:objective_of_the_month;type:text" json:"objective_of_the_month"`
	FrequencyPerWeek    int            `gorm:"column:frequency_per_week;not null" json:"frequency_per_week"`
	MonthlyThemes       datatypes.JSON `gorm:"column:monthly_themes;type:jsonb" json:"monthly_themes"`
	ContentDistribution datatypes.JSON `gorm:"column:content_distribution;type:jsonb" json:"content_distribution"`
	WeeklyPlan          datatypes.JSON `gorm:"column:weekly_plan;type:jsonb" json:"weekly_plan"`
	RawPayload          datatypes.JSON `gorm:"column:raw_payload;type:jsonb" json:"raw_payload,omitempty"`
	BrandSnapshot       datatypes.JSON `gorm:"column:brand_snapshot;type:jsonb" json:"brand_snapshot"`
	BatchesTotal        int            `gorm:"column:batches_total;not null;default:4" json:"batches_total"`
	CompletedBatches    datatypes.JSON `gorm:"column:completed_batches;type:jsonb" json:"completed_batches"`
	Validation          datatypes.JSON `gorm:"column:validation;type:jsonb" json:"validation,omitempty"`
	Version             int            `gorm:"column:version;not null;default:0" json:"version"`
	ContentCount        int            `gorm:"column:content_count;not null;default:0" json:"content_count"`
	MaterializedAt      *time.Time     `gorm:"column:materialized_at" json:"materialized_at,omitempty"`
	Error               string         `gorm:"column:error;type:text" json:"error,omitempty"`
	CreatedAt           time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (StrategyPlan) TableName() string { return "strategy_plan" }

func (p *StrategyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
