package strategy

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/yungbote/contentplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

func materializedFixture(t *testing.T) (*fixture, []Idea) {
	t.Helper()
	week1 := []Idea{
		idea(BuildIdeaID("2025-3", "iron-club", "C", 1, 1), "Leg day"),
		idea(BuildIdeaID("2025-3", "iron-club", "R", 1, 2), "Member story"),
		idea(BuildIdeaID("2025-3", "iron-club", "E", 1, 3), "Gym bloopers"),
	}
	week1[2].RecommendedTemplate = "carousel"
	f := newFixture(t, 3, weeklyPlanJSON(t, week1))
	lg, _ := observedLogger()
	if _, err := NewMaterializer(f.db, f.items, DefaultSettings(), lg).Materialize(context.Background(), f.plan); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	return f, week1
}

func strptr(s string) *string { return &s }

func refinedBatch(ideas []Idea) []RefinedItem {
	beats := make([]map[string]any, 9)
	for i := range beats {
		beats[i] = map[string]any{"index": i + 1, "description": "shot"}
	}
	nine, _ := json.Marshal(map[string]any{"beats": beats})
	return []RefinedItem{
		{
			ID:              ideas[0].ID,
			ContentName:     "Leg day, finished",
			Status:          "Ready for review",
			PostDescription: strptr("Final caption"),
			Shotplan:        json.RawMessage(`{"beats": [{"index": 1, "description": "squat"}]}`),
			Meta:            json.RawMessage(`{"compliance_check": "approved"}`),
		},
		{
			ID:       "not-a-content-id",
			OriginID: ideas[1].ID,
			Status:   "published",
			TextBase: strptr("Refined text"),
		},
		{
			ContentID: ideas[2].ID,
			Shotplan:  nine,
		},
	}
}

func TestRefineUpdatesInPlace(t *testing.T) {
	f, ideas := materializedFixture(t)
	ctx := context.Background()
	before, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)
	lg, logs := observedLogger()
	u := NewContentRefinementUpserter(f.db, f.items, lg)

	res, err := u.Refine(ctx, f.plan, refinedBatch(ideas))
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(res.Updated) != 3 || len(res.Created) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("updated=%d created=%d skipped=%v", len(res.Updated), len(res.Created), res.Skipped)
	}

	items, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)
	if len(items) != len(before) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(items))
	}
	leg := items[0]
	if leg.ID != before[0].ID || leg.ContentName != "Leg day, finished" || leg.Status != types.ContentStatusReadyForReview {
		t.Fatalf("leg = %+v", leg)
	}
	if leg.PostDescription != "Final caption" || leg.TextBase != before[0].TextBase {
		t.Fatalf("text fields: %q / %q", leg.PostDescription, leg.TextBase)
	}
	if leg.DayOfTheWeek != before[0].DayOfTheWeek || leg.ScheduledDate == nil {
		t.Fatalf("placement not preserved: day %d", leg.DayOfTheWeek)
	}
	var meta map[string]any
	_ = json.Unmarshal(leg.Meta, &meta)
	if meta["compliance_check"] != "approved" || meta["kpi_focus"] != "reach" {
		t.Fatalf("meta = %v", meta)
	}

	member := items[1]
	if member.ContentID != ideas[1].ID || member.Status != types.ContentStatusDraft || member.TextBase != "Refined text" {
		t.Fatalf("member = %+v", member)
	}
	if countMessage(logs, "invalid refined status ignored") != 1 {
		t.Fatalf("expected invalid status warning")
	}

	var sp Shotplan
	if err := json.Unmarshal(items[2].Shotplan, &sp); err != nil {
		t.Fatalf("shotplan: %v", err)
	}
	if items[2].Template != types.TemplateNarrationOver7Images || len(sp.Beats) != 7 || sp.Beats[6].Index != 7 {
		t.Fatalf("narration beats = %d (%s)", len(sp.Beats), items[2].Template)
	}
}

func TestRefineIsIdempotent(t *testing.T) {
	f, ideas := materializedFixture(t)
	ctx := context.Background()
	lg, _ := observedLogger()
	u := NewContentRefinementUpserter(f.db, f.items, lg)

	if _, err := u.Refine(ctx, f.plan, refinedBatch(ideas)); err != nil {
		t.Fatalf("first refine: %v", err)
	}
	first, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)
	if _, err := u.Refine(ctx, f.plan, refinedBatch(ideas)); err != nil {
		t.Fatalf("second refine: %v", err)
	}
	second, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)
	if len(first) != len(second) {
		t.Fatalf("row count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ContentName != second[i].ContentName || string(first[i].Shotplan) != string(second[i].Shotplan) {
			t.Fatalf("row %d changed on re-run", i)
		}
	}
}

func TestRefineCreatesUnmatchedAndSkipsKeyless(t *testing.T) {
	f, _ := materializedFixture(t)
	ctx := context.Background()
	lg, _ := observedLogger()
	u := NewContentRefinementUpserter(f.db, f.items, lg)

	newID := BuildIdeaID("2025-3", "iron-club", "A", 2, 1)
	res, err := u.Refine(ctx, f.plan, []RefinedItem{
		{ID: newID, ContentName: "Leg day", Platform: "TikTok", Template: "remix"},
		{ContentName: "orphan"},
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(res.Created) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("created=%d skipped=%v", len(res.Created), res.Skipped)
	}
	it := res.Created[0]
	if it.Week != 2 || it.Pilar != "A" || it.ContentType != "video" || it.Template != types.TemplateRemix {
		t.Fatalf("created = %+v", it)
	}
	if it.ContentName == "Leg day" {
		t.Fatalf("created item reused a taken name")
	}
}

func TestRefineMatchesPlanScopedItems(t *testing.T) {
	f, ideas := materializedFixture(t)
	ctx := context.Background()
	lg, _ := observedLogger()

	other := testutil.SeedBrand(t, f.db, "Iron Club")
	otherPlan := testutil.SeedPlan(t, f.db, other, "2025-3", 3, weeklyPlanJSON(t, ideas))
	if _, err := NewMaterializer(f.db, f.items, DefaultSettings(), lg).Materialize(ctx, otherPlan); err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	u := NewContentRefinementUpserter(f.db, f.items, lg)
	res, err := u.Refine(ctx, otherPlan, []RefinedItem{
		{ID: ideas[0].ID, Status: "approved"},
		{ContentID: PlanScopedContentID(otherPlan.ID, ideas[1].ID), Status: "in production"},
	})
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(res.Updated) != 2 || len(res.Created) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("updated=%d created=%d skipped=%v", len(res.Updated), len(res.Created), res.Skipped)
	}

	dbc := dbctx.Context{Ctx: ctx}
	theirs, _ := f.items.ListByPlan(dbc, otherPlan.ID)
	if theirs[0].Status != types.ContentStatusApproved || theirs[1].Status != types.ContentStatusInProduction {
		t.Fatalf("second owner statuses: %s %s", theirs[0].Status, theirs[1].Status)
	}
	mine, _ := f.items.ListByPlan(dbc, f.plan.ID)
	for _, it := range mine {
		if it.Status != types.ContentStatusDraft {
			t.Fatalf("first owner's %s changed to %s", it.ContentID, it.Status)
		}
	}
}
