package strategy

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/contentplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

func TestContentItemRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	brand := testutil.SeedBrand(t, db, "Iron Club")
	plan := testutil.SeedPlan(t, db, brand, "2025-3", 3, `[]`)
	repo := NewContentItemRepo(db, testutil.Logger(t))

	item := &types.ContentItem{
		ContentID:       "202503-iron-club-C-w1-i1",
		OriginID:        "202503-iron-club-C-w1-i1",
		StrategyPlanID:  plan.ID,
		BrandID:         brand.ID,
		OwnerUserID:     brand.OwnerUserID,
		Month:           plan.Month,
		Week:            1,
		WeekIndex:       1,
		ContentName:     "Morning routine",
		Status:          types.ContentStatusDraft,
		Pilar:           "C",
		Template:        types.TemplateOnlyAvatars,
		VideoSource:     types.VideoSourceNone,
		PostDescription: "five habits",
	}
	if err := repo.Create(dbc, item); err != nil {
		t.Fatalf("Create: %v", err)
	}

	taken, err := repo.NameTaken(dbc, brand.ID, "Morning routine", "")
	if err != nil || !taken {
		t.Fatalf("NameTaken: taken=%v err=%v", taken, err)
	}
	taken, err = repo.NameTaken(dbc, brand.ID, "Morning routine", item.ContentID)
	if err != nil || taken {
		t.Fatalf("NameTaken excluding self: taken=%v err=%v", taken, err)
	}

	dup := *item
	dup.ID = uuid.Nil
	dup.ContentID = "202503-iron-club-C-w1-i2"
	if err := repo.Create(dbc, &dup); err == nil {
		t.Fatalf("expected unique (brand_id, content_name) violation")
	}

	byOrigin, err := repo.GetByOriginID(dbc, plan.ID, item.OriginID)
	if err != nil || byOrigin == nil || byOrigin.ID != item.ID {
		t.Fatalf("GetByOriginID: %v %v", byOrigin, err)
	}

	item.Status = types.ContentStatusReadyForReview
	if err := repo.Save(dbc, item); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.GetByContentID(dbc, item.ContentID)
	if err != nil || got == nil || got.Status != types.ContentStatusReadyForReview {
		t.Fatalf("GetByContentID after save: %+v %v", got, err)
	}

	ids, err := repo.ListContentIDsByPlan(dbc, plan.ID)
	if err != nil || len(ids) != 1 {
		t.Fatalf("ListContentIDsByPlan: %v %v", ids, err)
	}
	brandItems, err := repo.ListByBrand(dbc, brand.ID)
	if err != nil || len(brandItems) != 1 || brandItems[0].PostDescription != "five habits" {
		t.Fatalf("ListByBrand: %v %v", brandItems, err)
	}
}
