package strategy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/httpx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

var (
	ErrPlanNotFound  = errors.New("strategy plan not found")
	ErrMergeConflict = errors.New("strategy plan merge kept conflicting")
)

const maxMergeAttempts = 8

// PlanStore is the plan persistence used by the batch merge.
type PlanStore interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.StrategyPlan, error)
	CompareAndSwap(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]interface{}) (bool, error)
}

// PlanLocker serializes writers of one plan across processes. The returned
// func releases the lock.
type PlanLocker interface {
	Lock(ctx context.Context, planID uuid.UUID) (func(), error)
}

// BatchOutcome reports one merge. Completed is true only for the merge that
// recorded the last outstanding batch.
type BatchOutcome struct {
	Completed        bool
	AlreadyMerged    bool
	CompletedBatches []int
	Attempts         int
}

type PlanMerger struct {
	plans   PlanStore
	locker  PlanLocker
	log     *logger.Logger
	backoff time.Duration
}

// NewPlanMerger builds a merger; locker may be nil, the version column alone
// keeps merges safe.
func NewPlanMerger(plans PlanStore, locker PlanLocker, baseLog *logger.Logger) *PlanMerger {
	return &PlanMerger{
		plans:   plans,
		locker:  locker,
		log:     baseLog.With("component", "PlanMerger"),
		backoff: 50 * time.Millisecond,
	}
}

// WeeksForBatch returns the contiguous week range covered by batch (1-based)
// out of total batches.
func WeeksForBatch(batch, total int) []int {
	total = batchTotal(total)
	if batch < 1 || batch > total {
		return nil
	}
	start := (batch-1)*WeeksPerPlan/total + 1
	end := batch * WeeksPerPlan / total
	weeks := make([]int, 0, end-start+1)
	for w := start; w <= end; w++ {
		weeks = append(weeks, w)
	}
	return weeks
}

// MergeBatch folds one batch response into the plan with a read-merge-write
// guarded by the plan version.
func (m *PlanMerger) MergeBatch(ctx context.Context, planID uuid.UUID, batch int, raw json.RawMessage, rawText string) (*BatchOutcome, error) {
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, planID)
		if err != nil {
			// the version check still protects the row
			m.log.Warn("plan lock unavailable", "strategy_plan_id", planID, "error", err)
		} else {
			defer unlock()
		}
	}

	payload, notes, err := DecodePayload(raw)
	if err != nil {
		return nil, err
	}
	if len(notes) > 0 {
		m.log.Warn("batch payload had malformed parts", "strategy_plan_id", planID, "batch", batch, "notes", notes)
	}

	dbc := dbctx.Context{Ctx: ctx}
	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		plan, err := m.plans.GetByID(dbc, planID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, ErrPlanNotFound
		}
		done := decodeBatches(plan.CompletedBatches)
		if containsInt(done, batch) {
			return &BatchOutcome{AlreadyMerged: true, CompletedBatches: done, Attempts: attempt}, nil
		}

		updates, completed, err := mergeBatchUpdates(plan, batch, payload, rawText)
		if err != nil {
			return nil, err
		}
		ok, err := m.plans.CompareAndSwap(dbc, planID, plan.Version, updates)
		if err != nil {
			return nil, err
		}
		if ok {
			out := &BatchOutcome{Completed: completed, Attempts: attempt}
			_ = json.Unmarshal(updates["completed_batches"].(datatypes.JSON), &out.CompletedBatches)
			m.log.Info("strategy batch merged",
				"strategy_plan_id", planID,
				"batch", batch,
				"completed_batches", out.CompletedBatches,
				"plan_complete", completed,
				"attempts", attempt,
			)
			return out, nil
		}
		m.log.Debug("strategy batch merge conflict", "strategy_plan_id", planID, "batch", batch, "attempt", attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(httpx.JitterSleep(m.backoff * time.Duration(attempt))):
		}
	}
	return nil, fmt.Errorf("%w: plan %s batch %d", ErrMergeConflict, planID, batch)
}

// mergeBatchUpdates computes the column updates for folding payload in as
// the given batch. completed reports that this batch was the last one.
func mergeBatchUpdates(plan *types.StrategyPlan, batch int, payload *Payload, rawText string) (map[string]interface{}, bool, error) {
	current, err := PayloadFromPlan(plan)
	if err != nil {
		return nil, false, err
	}
	weeks := WeeksForBatch(batch, plan.BatchesTotal)
	if len(weeks) == 0 {
		return nil, false, fmt.Errorf("batch %d out of range 1..%d", batch, plan.BatchesTotal)
	}

	weekly := make([]Week, WeeksPerPlan)
	copy(weekly, current.WeeklyPlan)
	for i, w := range batchWeeks(payload.WeeklyPlan, weeks) {
		w.Week = weeks[i]
		if w.Ideas == nil {
			w.Ideas = []Idea{}
		}
		weekly[weeks[i]-1] = w
	}
	for i := range weekly {
		if weekly[i].Ideas == nil {
			weekly[i].Ideas = []Idea{}
		}
	}

	dist := current.ContentDistribution
	if dist == nil {
		dist = map[string]PillarBucket{}
	}
	inBatch := map[int]bool{}
	for _, w := range weeks {
		inBatch[w] = true
	}
	// drop ideas left by an earlier attempt of this batch
	for code, b := range dist {
		kept := b.Ideas[:0:0]
		for _, idea := range b.Ideas {
			if !inBatch[WeekFromID(idea.ID)] {
				kept = append(kept, idea)
			}
		}
		b.Ideas = kept
		dist[code] = b
	}
	for code, b := range payload.ContentDistribution {
		key := NormalizePilar(code)
		if key == "" {
			key = code
		}
		cur := dist[key]
		if cur.Goal == "" {
			cur.Goal = b.Goal
		}
		for _, idea := range b.Ideas {
			if w := WeekFromID(idea.ID); w == 0 || inBatch[w] {
				cur.Ideas = append(cur.Ideas, idea)
			}
		}
		if cur.Ideas == nil {
			cur.Ideas = []Idea{}
		}
		dist[key] = cur
	}

	themes := current.MonthlyThemes
	if len(themes) == 0 {
		themes = payload.MonthlyThemes
	}
	objective := plan.ObjectiveOfTheMonth
	if objective == "" {
		objective = payload.ObjectiveOfTheMonth
	}

	rawMap := map[string]string{}
	if len(plan.RawPayload) > 0 {
		_ = json.Unmarshal(plan.RawPayload, &rawMap)
	}
	rawMap[fmt.Sprintf("%d", batch)] = rawText

	done := append(decodeBatches(plan.CompletedBatches), batch)
	sort.Ints(done)
	completed := len(done) >= batchTotal(plan.BatchesTotal) && plan.Status == types.PlanStatusPending

	updates := map[string]interface{}{
		"weekly_plan":            jsonColumn(weekly),
		"content_distribution":   jsonColumn(dist),
		"monthly_themes":         jsonColumn(themesOrEmpty(themes)),
		"objective_of_the_month": objective,
		"raw_payload":            jsonColumn(rawMap),
		"completed_batches":      jsonColumn(done),
	}
	if completed {
		updates["status"] = types.PlanStatusComplete
	}
	return updates, completed, nil
}

// batchWeeks lines the response weeks up with the batch's week numbers,
// positionally when the counts match and by the week field otherwise.
func batchWeeks(got []Week, weeks []int) []Week {
	out := make([]Week, len(weeks))
	if len(got) == len(weeks) {
		copy(out, got)
		return out
	}
	for i, want := range weeks {
		for _, w := range got {
			if w.Week == want {
				out[i] = w
				break
			}
		}
	}
	if len(weeks) == 1 && len(got) > 0 && out[0].Ideas == nil {
		out[0] = got[0]
	}
	return out
}

func decodeBatches(raw datatypes.JSON) []int {
	var out []int
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return out
}

// DecodeCompletedBatches lists the batch numbers already merged into a plan.
func DecodeCompletedBatches(plan *types.StrategyPlan) []int {
	return decodeBatches(plan.CompletedBatches)
}

// PendingBatches lists the batches of a plan not yet merged.
func PendingBatches(plan *types.StrategyPlan) []int {
	done := decodeBatches(plan.CompletedBatches)
	total := batchTotal(plan.BatchesTotal)
	var out []int
	for b := 1; b <= total; b++ {
		if !containsInt(done, b) {
			out = append(out, b)
		}
	}
	return out
}

func batchTotal(n int) int {
	if n < 1 || n > WeeksPerPlan {
		return WeeksPerPlan
	}
	return n
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func themesOrEmpty(t []string) []string {
	if t == nil {
		return []string{}
	}
	return t
}
