package testutil

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
)

func SeedBrand(tb testing.TB, db *gorm.DB, name string) *types.Brand {
	tb.Helper()
	platforms, _ := json.Marshal([]string{"Instagram", "TikTok"})
	b := &types.Brand{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		Name:        name,
		Slug:        strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Industry:    "fitness",
		Audience:    "busy professionals",
		Tone:        "energetic",
		Language:    "es",
		Platforms:   datatypes.JSON(platforms),
	}
	if err := db.Create(b).Error; err != nil {
		tb.Fatalf("seed brand: %v", err)
	}
	return b
}

// SeedPlan stores a plan whose weekly_plan is the given JSON array.
func SeedPlan(tb testing.TB, db *gorm.DB, brand *types.Brand, month string, frequency int, weeklyPlan string) *types.StrategyPlan {
	tb.Helper()
	p := &types.StrategyPlan{
		ID:                  uuid.New(),
		OwnerUserID:         brand.OwnerUserID,
		BrandID:             brand.ID,
		Month:               month,
		Status:              types.PlanStatusComplete,
		ObjectiveOfTheMonth: "grow reach",
		FrequencyPerWeek:    frequency,
		MonthlyThemes:       datatypes.JSON([]byte(`["discipline"]`)),
		ContentDistribution: datatypes.JSON([]byte(`{}`)),
		WeeklyPlan:          datatypes.JSON([]byte(weeklyPlan)),
		RawPayload:          datatypes.JSON([]byte(`{}`)),
		BrandSnapshot:       datatypes.JSON([]byte(`{}`)),
		BatchesTotal:        4,
		CompletedBatches:    datatypes.JSON([]byte(`[1,2,3,4]`)),
	}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}
