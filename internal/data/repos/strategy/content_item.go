package strategy

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

// ContentItemRepo is the create-or-update-by-content_id persistence surface
// consumed by the materializer, the refinement upserter and calendar views.
type ContentItemRepo interface {
	Create(dbc dbctx.Context, item *types.ContentItem) error
	Save(dbc dbctx.Context, item *types.ContentItem) error
	GetByContentID(dbc dbctx.Context, contentID string) (*types.ContentItem, error)
	GetByOriginID(dbc dbctx.Context, planID uuid.UUID, originID string) (*types.ContentItem, error)
	ListByPlan(dbc dbctx.Context, planID uuid.UUID) ([]*types.ContentItem, error)
	ListByBrand(dbc dbctx.Context, brandID uuid.UUID) ([]*types.ContentItem, error)
	ListContentIDsByPlan(dbc dbctx.Context, planID uuid.UUID) ([]string, error)
	NameTaken(dbc dbctx.Context, brandID uuid.UUID, name string, excludeContentID string) (bool, error)
	CountByPlan(dbc dbctx.Context, planID uuid.UUID) (int64, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{db: db, log: baseLog.With("repo", "ContentItemRepo")}
}

func (r *contentItemRepo) Create(dbc dbctx.Context, item *types.ContentItem) error {
	if item == nil {
		return nil
	}
	return dbc.Conn(r.db).Create(item).Error
}

// Save writes every column of an existing row.
func (r *contentItemRepo) Save(dbc dbctx.Context, item *types.ContentItem) error {
	if item == nil {
		return nil
	}
	if item.ID == uuid.Nil {
		return r.Create(dbc, item)
	}
	return dbc.Conn(r.db).Save(item).Error
}

func (r *contentItemRepo) GetByContentID(dbc dbctx.Context, contentID string) (*types.ContentItem, error) {
	if contentID == "" {
		return nil, nil
	}
	var out types.ContentItem
	if err := dbc.Conn(r.db).Where("content_id = ?", contentID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *contentItemRepo) GetByOriginID(dbc dbctx.Context, planID uuid.UUID, originID string) (*types.ContentItem, error) {
	if planID == uuid.Nil || originID == "" {
		return nil, nil
	}
	var out types.ContentItem
	err := dbc.Conn(r.db).
		Where("strategy_plan_id = ? AND origin_id = ?", planID, originID).
		Order("created_at ASC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *contentItemRepo) ListByPlan(dbc dbctx.Context, planID uuid.UUID) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	if planID == uuid.Nil {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Where("strategy_plan_id = ?", planID).
		Order("week ASC, week_index ASC, content_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListByBrand returns the text columns needed for cross-item similarity checks.
func (r *contentItemRepo) ListByBrand(dbc dbctx.Context, brandID uuid.UUID) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	if brandID == uuid.Nil {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Select("id", "content_id", "strategy_plan_id", "content_name", "post_description", "text_base").
		Where("brand_id = ?", brandID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) ListContentIDsByPlan(dbc dbctx.Context, planID uuid.UUID) ([]string, error) {
	var out []string
	if planID == uuid.Nil {
		return out, nil
	}
	err := dbc.Conn(r.db).
		Model(&types.ContentItem{}).
		Where("strategy_plan_id = ?", planID).
		Pluck("content_id", &out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) NameTaken(dbc dbctx.Context, brandID uuid.UUID, name string, excludeContentID string) (bool, error) {
	var count int64
	q := dbc.Conn(r.db).
		Model(&types.ContentItem{}).
		Where("brand_id = ? AND content_name = ?", brandID, name)
	if excludeContentID != "" {
		q = q.Where("content_id <> ?", excludeContentID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *contentItemRepo) CountByPlan(dbc dbctx.Context, planID uuid.UUID) (int64, error) {
	var count int64
	err := dbc.Conn(r.db).
		Model(&types.ContentItem{}).
		Where("strategy_plan_id = ?", planID).
		Count(&count).Error
	return count, err
}
