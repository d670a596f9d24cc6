package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

func TestWeeksForBatch(t *testing.T) {
	cases := []struct {
		batch, total int
		want         []int
	}{
		{1, 4, []int{1}},
		{4, 4, []int{4}},
		{2, 2, []int{3, 4}},
		{1, 1, []int{1, 2, 3, 4}},
		{3, 3, []int{3, 4}},
		{5, 4, nil},
	}
	for _, tc := range cases {
		if got := WeeksForBatch(tc.batch, tc.total); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("WeeksForBatch(%d, %d) = %v, want %v", tc.batch, tc.total, got, tc.want)
		}
	}
}

func pendingPlan(t *testing.T, f *fixture) *types.StrategyPlan {
	t.Helper()
	p := &types.StrategyPlan{
		ID:                  uuid.New(),
		OwnerUserID:         f.brand.OwnerUserID,
		BrandID:             f.brand.ID,
		Month:               "2025-4",
		Status:              types.PlanStatusPending,
		FrequencyPerWeek:    2,
		MonthlyThemes:       datatypes.JSON(`[]`),
		ContentDistribution: datatypes.JSON(`{}`),
		WeeklyPlan:          datatypes.JSON(`[]`),
		RawPayload:          datatypes.JSON(`{}`),
		BrandSnapshot:       datatypes.JSON(`{}`),
		BatchesTotal:        4,
		CompletedBatches:    datatypes.JSON(`[]`),
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("create plan: %v", err)
	}
	return p
}

func batchResponse(t *testing.T, week int) (json.RawMessage, string) {
	t.Helper()
	ideas := []Idea{
		idea(BuildIdeaID("2025-4", "iron-club", "C", week, 1), fmt.Sprintf("w%d a", week)),
		idea(BuildIdeaID("2025-4", "iron-club", "S", week, 2), fmt.Sprintf("w%d b", week)),
	}
	body := map[string]any{
		"month":                "2025-4",
		"frequency_per_week":   2,
		"monthly_themes":       []string{"consistency"},
		"weekly_plan":          []Week{{Week: week, Ideas: ideas}},
		"content_distribution": map[string]PillarBucket{"C": {Goal: "reach", Ideas: ideas[:1]}, "S": {Goal: "sales", Ideas: ideas[1:]}},
	}
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	raw, err := ParseStrategyResponse(string(b))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return raw, string(b)
}

func TestMergeBatchCompletesPlanOnce(t *testing.T) {
	f := newFixture(t, 2, weeklyPlanJSON(t))
	plan := pendingPlan(t, f)
	lg, _ := observedLogger()
	m := NewPlanMerger(f.plans, nil, lg)
	ctx := context.Background()

	completions := 0
	for _, batch := range []int{3, 1, 4, 2} {
		raw, text := batchResponse(t, batch)
		out, err := m.MergeBatch(ctx, plan.ID, batch, raw, text)
		if err != nil {
			t.Fatalf("merge batch %d: %v", batch, err)
		}
		if out.Completed {
			completions++
			if batch != 2 {
				t.Fatalf("plan completed early on batch %d", batch)
			}
		}
	}
	if completions != 1 {
		t.Fatalf("completions = %d, want 1", completions)
	}

	raw, text := batchResponse(t, 2)
	out, err := m.MergeBatch(ctx, plan.ID, 2, raw, text)
	if err != nil || !out.AlreadyMerged || out.Completed {
		t.Fatalf("re-merge = %+v, %v", out, err)
	}

	got, _ := f.plans.GetByID(dbctx.Context{Ctx: ctx}, plan.ID)
	if got.Status != types.PlanStatusComplete || got.Version != 4 {
		t.Fatalf("status=%s version=%d", got.Status, got.Version)
	}
	payload, err := PayloadFromPlan(got)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	for i, w := range payload.WeeklyPlan {
		if w.Week != i+1 || len(w.Ideas) != 2 || WeekFromID(w.Ideas[0].ID) != i+1 {
			t.Fatalf("week %d = %+v", i+1, w)
		}
	}
	if len(payload.ContentDistribution["C"].Ideas) != 4 || len(payload.ContentDistribution["S"].Ideas) != 4 {
		t.Fatalf("distribution = %+v", payload.ContentDistribution)
	}
	var rawMap map[string]string
	_ = json.Unmarshal(got.RawPayload, &rawMap)
	if len(rawMap) != 4 {
		t.Fatalf("raw payload batches = %d", len(rawMap))
	}
	if len(PendingBatches(got)) != 0 {
		t.Fatalf("pending batches = %v", PendingBatches(got))
	}
}

// racingStore bumps the version behind the merger's back once.
type racingStore struct {
	PlanStore
	f     *fixture
	raced bool
}

func (r *racingStore) CompareAndSwap(dbc dbctx.Context, id uuid.UUID, expected int, updates map[string]interface{}) (bool, error) {
	if !r.raced {
		r.raced = true
		if err := r.f.db.Model(&types.StrategyPlan{}).Where("id = ?", id).Update("version", expected+1).Error; err != nil {
			return false, err
		}
	}
	return r.PlanStore.CompareAndSwap(dbc, id, expected, updates)
}

func TestMergeBatchRetriesOnVersionConflict(t *testing.T) {
	f := newFixture(t, 2, weeklyPlanJSON(t))
	plan := pendingPlan(t, f)
	lg, _ := observedLogger()
	m := NewPlanMerger(&racingStore{PlanStore: f.plans, f: f}, nil, lg)
	m.backoff = time.Millisecond

	raw, text := batchResponse(t, 1)
	out, err := m.MergeBatch(context.Background(), plan.ID, 1, raw, text)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if out.Attempts != 2 || !reflect.DeepEqual(out.CompletedBatches, []int{1}) {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestMergeBatchUnknownPlan(t *testing.T) {
	f := newFixture(t, 2, weeklyPlanJSON(t))
	lg, _ := observedLogger()
	raw, text := batchResponse(t, 1)
	if _, err := NewPlanMerger(f.plans, nil, lg).MergeBatch(context.Background(), uuid.New(), 1, raw, text); err != ErrPlanNotFound {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestPendingBatches(t *testing.T) {
	p := &types.StrategyPlan{BatchesTotal: 4, CompletedBatches: datatypes.JSON(`[2, 4]`)}
	if got := PendingBatches(p); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("PendingBatches = %v", got)
	}
}
