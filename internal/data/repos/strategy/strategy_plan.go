package strategy

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type StrategyPlanRepo interface {
	Create(dbc dbctx.Context, plan *types.StrategyPlan) (*types.StrategyPlan, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StrategyPlan, error)
	GetByOwnerBrandMonth(dbc dbctx.Context, ownerUserID uuid.UUID, brandID uuid.UUID, month string) (*types.StrategyPlan, error)
	// CompareAndSwap applies updates only if the row is still at expectedVersion,
	// bumping the version. Returns false when another writer got there first.
	CompareAndSwap(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// Delete removes the plan and cascades to its content items.
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type strategyPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewStrategyPlanRepo(db *gorm.DB, baseLog *logger.Logger) StrategyPlanRepo {
	return &strategyPlanRepo{db: db, log: baseLog.With("repo", "StrategyPlanRepo")}
}

func (r *strategyPlanRepo) Create(dbc dbctx.Context, plan *types.StrategyPlan) (*types.StrategyPlan, error) {
	if plan == nil {
		return nil, nil
	}
	if err := dbc.Conn(r.db).Create(plan).Error; err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *strategyPlanRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StrategyPlan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.StrategyPlan
	if err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *strategyPlanRepo) GetByOwnerBrandMonth(dbc dbctx.Context, ownerUserID uuid.UUID, brandID uuid.UUID, month string) (*types.StrategyPlan, error) {
	if ownerUserID == uuid.Nil || brandID == uuid.Nil || month == "" {
		return nil, nil
	}
	var out types.StrategyPlan
	err := dbc.Conn(r.db).
		Where("owner_user_id = ? AND brand_id = ? AND month = ?", ownerUserID, brandID, month).
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

func (r *strategyPlanRepo) CompareAndSwap(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["version"] = expectedVersion + 1
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.Conn(r.db).
		Model(&types.StrategyPlan{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *strategyPlanRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.Conn(r.db).
		Model(&types.StrategyPlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *strategyPlanRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("strategy_plan_id = ?", id).Delete(&types.ContentItem{}).Error; err != nil {
			return err
		}
		return txx.Where("id = ?", id).Delete(&types.StrategyPlan{}).Error
	})
}
