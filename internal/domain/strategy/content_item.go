package strategy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ContentStatusDraft          = "draft"
	ContentStatusInProduction   = "in_production"
	ContentStatusReadyForReview = "ready_for_review"
	ContentStatusApproved       = "approved"
	ContentStatusFailed         = "failed"
)

const (
	TemplateOnlyAvatars          = "only_avatars"
	TemplateAvatarAndVideo       = "avatar_and_video"
	TemplateNarrationOver7Images = "narration_over_7_images"
	TemplateRemix                = "remix"
	TemplateOneToThreeVideos     = "one_to_three_videos"
)

const (
	VideoSourceNone     = "none"
	VideoSourceExternal = "external"
	VideoSourceKling    = "kling"
)

// ContentItem is the durable unit of production work. ContentID is the
// idempotency key; OriginID is the idea it was first materialized from.
type ContentItem struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ContentID       string         `gorm:"column:content_id;not null;uniqueIndex" json:"content_id"`
	OriginID        string         `gorm:"column:origin_id;index" json:"origin_id"`
	OriginSource    string         `gorm:"column:origin_source" json:"origin_source"`
	StrategyPlanID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"strategy_plan_id"`
	BrandID         uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_content_item_brand_name,priority:1" json:"brand_id"`
	OwnerUserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Month           string         `gorm:"column:month;not null;index" json:"month"`
	Week            int            `gorm:"column:week;not null" json:"week"`
	WeekIndex       int            `gorm:"column:week_index;not null" json:"week_index"`
	DayOfTheWeek    int            `gorm:"column:day_of_the_week" json:"day_of_the_week"`
	ScheduledDate   *time.Time     `gorm:"column:scheduled_date" json:"scheduled_date,omitempty"`
	ContentName     string         `gorm:"column:content_name;not null;uniqueIndex:idx_content_item_brand_name,priority:2" json:"content_name"`
	Status          string         `gorm:"column:status;not null;index" json:"status"`
	ContentType     string         `gorm:"column:content_type" json:"content_type"`
	Platform        string         `gorm:"column:platform" json:"platform"`
	AspectRatio     string         `gorm:"column:aspect_ratio" json:"aspect_ratio"`
	Language        string         `gorm:"column:language" json:"language"`
	Pilar           string         `gorm:"column:pilar;not null" json:"pilar"`
	Template        string         `gorm:"column:template;not null" json:"template"`
	VideoSource     string         `gorm:"column:video_source;not null" json:"video_source"`
	PostDescription string         `gorm:"column:post_description;type:text" json:"post_description"`
	TextBase        string         `gorm:"column:text_base;type:text" json:"text_base"`
	Hashtags        datatypes.JSON `gorm:"column:hashtags;type:jsonb" json:"hashtags"`
	Shotplan        datatypes.JSON `gorm:"column:shotplan;type:jsonb" json:"shotplan"`
	Assets          datatypes.JSON `gorm:"column:assets;type:jsonb" json:"assets"`
	Meta            datatypes.JSON `gorm:"column:meta;type:jsonb" json:"meta"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_item" }

func (c *ContentItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
