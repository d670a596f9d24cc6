package strategy

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type BrandRepo interface {
	Create(dbc dbctx.Context, brand *types.Brand) (*types.Brand, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Brand, error)
}

type brandRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBrandRepo(db *gorm.DB, baseLog *logger.Logger) BrandRepo {
	return &brandRepo{db: db, log: baseLog.With("repo", "BrandRepo")}
}

func (r *brandRepo) Create(dbc dbctx.Context, brand *types.Brand) (*types.Brand, error) {
	if brand == nil {
		return nil, nil
	}
	if err := dbc.Conn(r.db).Create(brand).Error; err != nil {
		return nil, err
	}
	return brand, nil
}

// GetByID returns (nil, nil) when the brand does not exist.
func (r *brandRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Brand, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Brand
	err := dbc.Conn(r.db).Where("id = ?", id).Limit(1).Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}
