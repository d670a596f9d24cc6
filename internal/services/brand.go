package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	datadb "github.com/yungbote/contentplan-backend/internal/data/db"
	"github.com/yungbote/contentplan-backend/internal/data/repos"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
	"github.com/yungbote/contentplan-backend/internal/platform/apierr"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type CreateBrandInput struct {
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Industry  string   `json:"industry"`
	Audience  string   `json:"audience"`
	Tone      string   `json:"tone"`
	Language  string   `json:"language"`
	Platforms []string `json:"platforms"`
}

type BrandService interface {
	Create(dbc dbctx.Context, ownerUserID uuid.UUID, in CreateBrandInput) (*types.Brand, error)
	GetForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, brandID uuid.UUID) (*types.Brand, error)
}

type brandService struct {
	db     *gorm.DB
	log    *logger.Logger
	brands repos.BrandRepo
}

func NewBrandService(db *gorm.DB, baseLog *logger.Logger, brands repos.BrandRepo) BrandService {
	return &brandService{db: db, log: baseLog.With("service", "BrandService"), brands: brands}
}

func (s *brandService) Create(dbc dbctx.Context, ownerUserID uuid.UUID, in CreateBrandInput) (*types.Brand, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apierr.BadRequest("invalid_brand", "name is required")
	}
	slug := strategy.Slugify(in.Slug)
	if slug == "" {
		slug = strategy.Slugify(name)
	}
	platforms := make([]string, 0, len(in.Platforms))
	for _, p := range in.Platforms {
		if p = strings.TrimSpace(p); p != "" {
			platforms = append(platforms, p)
		}
	}
	pb, _ := json.Marshal(platforms)

	brand := &types.Brand{
		OwnerUserID: ownerUserID,
		Name:        name,
		Slug:        slug,
		Industry:    strings.TrimSpace(in.Industry),
		Audience:    strings.TrimSpace(in.Audience),
		Tone:        strings.TrimSpace(in.Tone),
		Language:    strings.TrimSpace(in.Language),
		Platforms:   datatypes.JSON(pb),
	}
	created, err := s.brands.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}, brand)
	if err != nil {
		if datadb.IsUniqueViolation(err) {
			return nil, apierr.Conflict("brand_exists", "brand slug %q is already used", slug)
		}
		return nil, fmt.Errorf("create brand: %w", err)
	}
	s.log.Info("brand created", "brand_id", created.ID, "slug", created.Slug, "owner_user_id", ownerUserID)
	return created, nil
}

func (s *brandService) GetForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, brandID uuid.UUID) (*types.Brand, error) {
	brand, err := s.brands.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}, brandID)
	if err != nil {
		return nil, err
	}
	if brand == nil || brand.OwnerUserID != ownerUserID {
		return nil, apierr.NotFound("brand_not_found", "brand not found")
	}
	return brand, nil
}
