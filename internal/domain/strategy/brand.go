package strategy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Brand struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_brand_owner_slug,priority:1" json:"owner_user_id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Slug        string         `gorm:"column:slug;not null;uniqueIndex:idx_brand_owner_slug,priority:2" json:"slug"`
	Industry    string         `gorm:"column:industry" json:"industry,omitempty"`
	Audience    string         `gorm:"column:audience;type:text" json:"audience,omitempty"`
	Tone        string         `gorm:"column:tone" json:"tone,omitempty"`
	Language    string         `gorm:"column:language;not null;default:'es'" json:"language"`
	Platforms   datatypes.JSON `gorm:"column:platforms;type:jsonb" json:"platforms"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Brand) TableName() string { return "brand" }

func (b *Brand) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
