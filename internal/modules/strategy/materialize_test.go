package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/yungbote/contentplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

// flakyStore fails Create for one content id a fixed number of times.
type flakyStore struct {
	ContentItemStore
	contentID string
	failures  int
	failed    int
}

func (f *flakyStore) Create(dbc dbctx.Context, item *types.ContentItem) error {
	if item.ContentID == f.contentID && f.failed < f.failures {
		f.failed++
		return errors.New("simulated insert failure")
	}
	return f.ContentItemStore.Create(dbc, item)
}

func contentIDs(t *testing.T, f *fixture) []string {
	t.Helper()
	ids, err := f.items.ListContentIDsByPlan(dbctx.Context{Ctx: context.Background()}, f.plan.ID)
	if err != nil {
		t.Fatalf("list content ids: %v", err)
	}
	sort.Strings(ids)
	return ids
}

func TestMaterializeCreatesOneItemPerIdea(t *testing.T) {
	f := newFixture(t, 3, weeklyPlanJSON(t, twelveIdeas()...))
	lg, logs := observedLogger()
	m := NewMaterializer(f.db, f.items, DefaultSettings(), lg)

	res, err := m.Materialize(context.Background(), f.plan)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(res.Expected) != 12 || len(res.Created) != 12 || len(res.MissingIDs) != 0 {
		t.Fatalf("result expected=%d created=%d missing=%v", len(res.Expected), len(res.Created), res.MissingIDs)
	}
	if got := contentIDs(t, f); len(got) != 12 {
		t.Fatalf("persisted %d items, want 12", len(got))
	}

	items, err := f.items.ListByPlan(dbctx.Context{Ctx: context.Background()}, f.plan.ID)
	if err != nil {
		t.Fatalf("ListByPlan: %v", err)
	}
	first := items[0]
	if first.Week != 1 || first.WeekIndex != 1 || first.DayOfTheWeek != 1 || first.ScheduledDate == nil {
		t.Fatalf("placement = week %d index %d day %d date %v", first.Week, first.WeekIndex, first.DayOfTheWeek, first.ScheduledDate)
	}
	if first.ContentType != "reel" || first.AspectRatio != "9:16" || first.Template != types.TemplateOnlyAvatars {
		t.Fatalf("derived fields = %s %s %s", first.ContentType, first.AspectRatio, first.Template)
	}
	if first.Status != types.ContentStatusDraft || first.Language != "es" || first.OriginID != first.ContentID {
		t.Fatalf("status=%s language=%s origin=%s", first.Status, first.Language, first.OriginID)
	}
	if first.TextBase != "Hook for "+first.ContentID+" title\n\nAbout "+first.ContentID+" title\n\nSave it" {
		t.Fatalf("text_base = %q", first.TextBase)
	}
	var sp Shotplan
	if err := json.Unmarshal(first.Shotplan, &sp); err != nil {
		t.Fatalf("shotplan: %v", err)
	}
	if len(sp.Beats) != 3 || sp.Beats[0].Index != 1 || sp.Beats[0].Duration != "3-5s" {
		t.Fatalf("beats = %+v", sp.Beats)
	}
	if len(sp.Scenes) != 1 || len(sp.Scenes[0].VisualElements) != 2 {
		t.Fatalf("scenes = %+v", sp.Scenes)
	}

	complete := logs.FilterMessage("materialization complete").All()
	if len(complete) != 1 || complete[0].ContextMap()["ratio"] != "12/12" {
		t.Fatalf("complete log = %+v", complete)
	}
}

func TestMaterializeIsIdempotent(t *testing.T) {
	f := newFixture(t, 3, weeklyPlanJSON(t, twelveIdeas()...))
	lg, _ := observedLogger()
	m := NewMaterializer(f.db, f.items, DefaultSettings(), lg)
	ctx := context.Background()

	if _, err := m.Materialize(ctx, f.plan); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)
	if _, err := m.Materialize(ctx, f.plan); err != nil {
		t.Fatalf("second run: %v", err)
	}
	after, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)

	if len(before) != len(after) {
		t.Fatalf("row count changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID || before[i].ContentID != after[i].ContentID || before[i].ContentName != after[i].ContentName {
			t.Fatalf("row %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestMaterializeKeepsStatusOnRerun(t *testing.T) {
	f := newFixture(t, 1, weeklyPlanJSON(t, []Idea{idea(BuildIdeaID("2025-3", "iron-club", "C", 1, 1), "Leg day")}))
	lg, _ := observedLogger()
	m := NewMaterializer(f.db, f.items, DefaultSettings(), lg)
	ctx := context.Background()
	if _, err := m.Materialize(ctx, f.plan); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := f.db.Model(&types.ContentItem{}).Where("strategy_plan_id = ?", f.plan.ID).Update("status", types.ContentStatusApproved).Error; err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := m.Materialize(ctx, f.plan); err != nil {
		t.Fatalf("second run: %v", err)
	}
	items, _ := f.items.ListByPlan(dbctx.Context{Ctx: ctx}, f.plan.ID)
	if len(items) != 1 || items[0].Status != types.ContentStatusApproved {
		t.Fatalf("items = %+v", items)
	}
}

func TestMaterializeResolvesDuplicateNames(t *testing.T) {
	week1 := []Idea{
		idea(BuildIdeaID("2025-3", "iron-club", "C", 1, 1), "Leg day"),
		idea(BuildIdeaID("2025-3", "iron-club", "R", 1, 2), "Leg day"),
		idea(BuildIdeaID("2025-3", "iron-club", "E", 1, 3), "Leg day"),
	}
	f := newFixture(t, 3, weeklyPlanJSON(t, week1))
	lg, _ := observedLogger()
	if _, err := NewMaterializer(f.db, f.items, DefaultSettings(), lg).Materialize(context.Background(), f.plan); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	items, _ := f.items.ListByPlan(dbctx.Context{Ctx: context.Background()}, f.plan.ID)
	names := []string{items[0].ContentName, items[1].ContentName, items[2].ContentName}
	want := []string{"Leg day", "Leg day (2025-3)", "Leg day - Entertainment Focus"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %q, want %q", names, want)
		}
	}
}

func TestMaterializeTagsNearDuplicateText(t *testing.T) {
	long := "Five small morning habits that keep busy professionals training consistently all month"
	a := idea(BuildIdeaID("2025-3", "iron-club", "C", 1, 1), "Habits one")
	b := idea(BuildIdeaID("2025-3", "iron-club", "C", 2, 1), "Habits two")
	a.Description, b.Description = long, long
	f := newFixture(t, 1, weeklyPlanJSON(t, []Idea{a}, []Idea{b}))
	lg, _ := observedLogger()
	if _, err := NewMaterializer(f.db, f.items, DefaultSettings(), lg).Materialize(context.Background(), f.plan); err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	items, _ := f.items.ListByPlan(dbctx.Context{Ctx: context.Background()}, f.plan.ID)
	if items[0].PostDescription != long {
		t.Fatalf("first description should be untouched: %q", items[0].PostDescription)
	}
	if !strings.HasSuffix(items[1].PostDescription, "[Content/Growth content for 2025-3, Week 2]") {
		t.Fatalf("second description not tagged: %q", items[1].PostDescription)
	}
	if !strings.HasSuffix(items[1].TextBase, "#Content #Week2 #March2025") {
		t.Fatalf("second text_base not tagged: %q", items[1].TextBase)
	}
}

func TestMaterializeRetriesMissingItem(t *testing.T) {
	f := newFixture(t, 3, weeklyPlanJSON(t, twelveIdeas()...))
	target := BuildIdeaID("2025-3", "iron-club", pillarOrder[(2+2)%5], 2, 2)
	store := &flakyStore{ContentItemStore: f.items, contentID: target, failures: 1}
	lg, logs := observedLogger()
	m := NewMaterializer(f.db, store, DefaultSettings(), lg)

	res, err := m.Materialize(context.Background(), f.plan)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if got := contentIDs(t, f); len(got) != 12 {
		t.Fatalf("persisted %d items, want 12", len(got))
	}
	if len(res.MissingIDs) != 1 || res.MissingIDs[0] != target || len(res.Dropped) != 0 {
		t.Fatalf("missing=%v dropped=%v", res.MissingIDs, res.Dropped)
	}
	if n := countMessage(logs, "retrying missing content item"); n != 1 {
		t.Fatalf("retry log lines = %d, want 1", n)
	}
	if countMessage(logs, "content item failed") != 1 || countMessage(logs, "retry succeeded") != 1 {
		t.Fatalf("expected one failure and one retry success in the audit log")
	}
	if logs.FilterMessage("materialization complete").All()[0].ContextMap()["ratio"] != "12/12" {
		t.Fatalf("ratio should be 12/12")
	}

	retried, err := f.items.GetByContentID(dbctx.Context{Ctx: context.Background()}, target)
	if err != nil || retried == nil {
		t.Fatalf("retried item: %v %v", retried, err)
	}
	if !strings.Contains(retried.ContentName, "Version 2") ||
		!strings.Contains(retried.PostDescription, "UNIQUE VERSION") ||
		!strings.HasSuffix(retried.TextBase, "WEEK 2 EDITION") {
		t.Fatalf("retry markers missing: %q / %q / %q", retried.ContentName, retried.PostDescription, retried.TextBase)
	}
}

func TestMaterializeDropsItemWhenRetryFails(t *testing.T) {
	f := newFixture(t, 3, weeklyPlanJSON(t, twelveIdeas()...))
	target := BuildIdeaID("2025-3", "iron-club", pillarOrder[(1+1)%5], 1, 1)
	store := &flakyStore{ContentItemStore: f.items, contentID: target, failures: 2}
	lg, logs := observedLogger()

	res, err := NewMaterializer(f.db, store, DefaultSettings(), lg).Materialize(context.Background(), f.plan)
	if err != nil {
		t.Fatalf("Materialize should not fail: %v", err)
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != target {
		t.Fatalf("dropped = %v", res.Dropped)
	}
	if got := contentIDs(t, f); len(got) != 11 {
		t.Fatalf("persisted %d items, want 11", len(got))
	}
	if countMessage(logs, "retry failed") != 1 {
		t.Fatalf("expected one retry failure line")
	}
	if logs.FilterMessage("materialization complete").All()[0].ContextMap()["ratio"] != "11/12" {
		t.Fatalf("ratio should be 11/12")
	}
}

func TestMaterializeFromContentDistribution(t *testing.T) {
	f := newFixture(t, 1, weeklyPlanJSON(t))
	dist := map[string]PillarBucket{
		"R": {Goal: "loyalty", Ideas: []Idea{idea("202503-iron-club-R-w3-i1", "Member story")}},
		"C": {Goal: "reach", Ideas: []Idea{idea("", "No id idea")}},
	}
	b, _ := json.Marshal(dist)
	f.plan.ContentDistribution = b
	lg, _ := observedLogger()
	res, err := NewMaterializer(f.db, f.items, DefaultSettings(), lg).Materialize(context.Background(), f.plan)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(res.Created) != 2 {
		t.Fatalf("created = %d, want 2", len(res.Created))
	}
	byName := map[string]*types.ContentItem{}
	for _, it := range res.Created {
		byName[it.ContentName] = it
	}
	if it := byName["Member story"]; it == nil || it.Week != 3 || it.Pilar != "R" || it.OriginSource != "content_distribution" {
		t.Fatalf("member story = %+v", it)
	}
	if it := byName["No id idea"]; it == nil || it.Week != 1 || it.Pilar != "C" || !IsIdeaID(it.ContentID) {
		t.Fatalf("generated id item = %+v", it)
	}
}

func TestMaterializeSameSlugAcrossOwners(t *testing.T) {
	f := newFixture(t, 3, weeklyPlanJSON(t, twelveIdeas()...))
	ctx := context.Background()
	other := testutil.SeedBrand(t, f.db, "Iron Club")
	otherPlan := testutil.SeedPlan(t, f.db, other, "2025-3", 3, weeklyPlanJSON(t, twelveIdeas()...))
	lg, _ := observedLogger()
	m := NewMaterializer(f.db, f.items, DefaultSettings(), lg)

	if res, err := m.Materialize(ctx, f.plan); err != nil || res.Ratio() != "12/12" {
		t.Fatalf("first owner: %v %v", res, err)
	}
	res, err := m.Materialize(ctx, otherPlan)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if res.Ratio() != "12/12" || len(res.Dropped) != 0 || len(res.MissingIDs) != 0 {
		t.Fatalf("second owner ratio=%s missing=%v dropped=%v", res.Ratio(), res.MissingIDs, res.Dropped)
	}

	dbc := dbctx.Context{Ctx: ctx}
	items, err := f.items.ListByPlan(dbc, otherPlan.ID)
	if err != nil || len(items) != 12 {
		t.Fatalf("ListByPlan: %d %v", len(items), err)
	}
	for _, it := range items {
		if it.ContentID != PlanScopedContentID(otherPlan.ID, it.OriginID) || it.OwnerUserID != other.OwnerUserID {
			t.Fatalf("item content_id=%s origin_id=%s owner=%s", it.ContentID, it.OriginID, it.OwnerUserID)
		}
	}
	mine, _ := f.items.ListByPlan(dbc, f.plan.ID)
	for _, it := range mine {
		if it.ContentID != it.OriginID {
			t.Fatalf("first owner's item rekeyed: %s", it.ContentID)
		}
	}

	// re-running the second plan keeps its plan-scoped ids
	if res, err := m.Materialize(ctx, otherPlan); err != nil || res.Ratio() != "12/12" || len(res.MissingIDs) != 0 {
		t.Fatalf("re-run: %v %v", res, err)
	}
	if n, _ := f.items.CountByPlan(dbc, otherPlan.ID); n != 12 {
		t.Fatalf("rows after re-run: %d", n)
	}
}
