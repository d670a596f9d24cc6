package strategy

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/data/repos"
	"github.com/yungbote/contentplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.NewFromCore(core), logs
}

func idea(id, title string) Idea {
	return Idea{
		ID:                  id,
		Title:               title,
		Hook:                "Hook for " + title,
		Description:         "About " + title,
		CTA:                 "Save it",
		Platform:            "Instagram",
		RecommendedTemplate: "avatar",
		VideoSource:         "none",
		BeatsOutline:        StringList{"open", "middle", "close"},
		AssetsHints: AssetsHints{
			VideoPrompts:     StringList{"gym at dawn"},
			BrollSuggestions: StringList{"weights", "clock"},
		},
	}
}

// weeklyPlanJSON renders four weeks, filling the first len(weeks) of them.
func weeklyPlanJSON(t *testing.T, weeks ...[]Idea) string {
	t.Helper()
	out := make([]Week, WeeksPerPlan)
	for i := range out {
		out[i] = Week{Week: i + 1, Ideas: []Idea{}}
		if i < len(weeks) {
			out[i].Ideas = weeks[i]
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal weekly plan: %v", err)
	}
	return string(b)
}

type fixture struct {
	db    *gorm.DB
	brand *types.Brand
	plan  *types.StrategyPlan
	items repos.ContentItemRepo
	plans repos.StrategyPlanRepo
}

func newFixture(t *testing.T, frequency int, weeklyPlan string) *fixture {
	t.Helper()
	db := testutil.DB(t)
	brand := testutil.SeedBrand(t, db, "Iron Club "+uuid.NewString()[:8])
	plan := testutil.SeedPlan(t, db, brand, "2025-3", frequency, weeklyPlan)
	snap := BuildBrandSnapshot(brand, plan.Month, plan.ObjectiveOfTheMonth, frequency, plan.CreatedAt)
	b, _ := json.Marshal(snap)
	plan.BrandSnapshot = datatypes.JSON(b)
	if err := db.Model(plan).Update("brand_snapshot", plan.BrandSnapshot).Error; err != nil {
		t.Fatalf("store snapshot: %v", err)
	}
	lg := testutil.Logger(t)
	return &fixture{
		db:    db,
		brand: brand,
		plan:  plan,
		items: repos.NewContentItemRepo(db, lg),
		plans: repos.NewStrategyPlanRepo(db, lg),
	}
}

func twelveIdeas() [][]Idea {
	weeks := make([][]Idea, WeeksPerPlan)
	for w := 1; w <= WeeksPerPlan; w++ {
		for i := 1; i <= 3; i++ {
			code := pillarOrder[(w+i)%len(pillarOrder)]
			id := BuildIdeaID("2025-3", "iron-club", code, w, i)
			weeks[w-1] = append(weeks[w-1], idea(id, id+" title"))
		}
	}
	return weeks
}

func countMessage(logs *observer.ObservedLogs, msg string) int {
	return logs.FilterMessage(msg).Len()
}
