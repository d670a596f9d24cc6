package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	datadb "github.com/yungbote/contentplan-backend/internal/data/db"
	"github.com/yungbote/contentplan-backend/internal/data/repos"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
	"github.com/yungbote/contentplan-backend/internal/observability"
	"github.com/yungbote/contentplan-backend/internal/platform/apierr"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

var tracer = otel.Tracer("github.com/yungbote/contentplan-backend/internal/services")

var (
	ErrPlanNotComplete  = errors.New("strategy plan is not complete")
	ErrModelUnavailable = errors.New("no model client configured")
)

const maxFrequencyPerWeek = 14

type CreatePlanInput struct {
	BrandID          uuid.UUID `json:"brand_id"`
	Month            string    `json:"month"`
	FrequencyPerWeek int       `json:"frequency_per_week"`
	Objective        string    `json:"objective"`
}

// StrategyService drives a plan from creation through batch generation,
// materialization and refinement. Request-side methods check ownership;
// job-side methods take a plan id the worker already trusts.
type StrategyService interface {
	CreatePlan(dbc dbctx.Context, ownerUserID uuid.UUID, in CreatePlanInput) (*types.StrategyPlan, []*types.JobRun, error)
	GetPlanForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) (*types.StrategyPlan, error)
	Resume(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) ([]*types.JobRun, error)
	RequestRefinement(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) (*types.JobRun, error)
	EnsureMaterialization(dbc dbctx.Context, planID uuid.UUID) (*types.JobRun, error)
	Delete(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) error
	ListContentItems(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) ([]*types.ContentItem, error)

	GenerateBatch(ctx context.Context, planID uuid.UUID, batch int) (*strategy.BatchOutcome, error)
	Finalize(ctx context.Context, planID uuid.UUID) (*strategy.MaterializationResult, error)
	RefineContent(ctx context.Context, planID uuid.UUID) (*strategy.RefinementResult, error)
	GenerateInline(ctx context.Context, planID uuid.UUID) (*strategy.MaterializationResult, error)
}

type StrategyServiceDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Brands   repos.BrandRepo
	Plans    repos.StrategyPlanRepo
	Items    repos.ContentItemRepo
	JobRuns  repos.JobRunRepo
	Jobs     JobService
	Model    strategy.ModelCaller
	Locker   strategy.PlanLocker
	Settings strategy.Settings
}

type strategyService struct {
	db       *gorm.DB
	log      *logger.Logger
	brands   repos.BrandRepo
	plans    repos.StrategyPlanRepo
	items    repos.ContentItemRepo
	jobRuns  repos.JobRunRepo
	jobs     JobService
	model    strategy.ModelCaller
	settings strategy.Settings

	merger       *strategy.PlanMerger
	validator    *strategy.WeeklyDistributionValidator
	materializer *strategy.Materializer
	upserter     *strategy.ContentRefinementUpserter
	now          func() time.Time
}

func NewStrategyService(d StrategyServiceDeps) StrategyService {
	return &strategyService{
		db:           d.DB,
		log:          d.Log.With("service", "StrategyService"),
		brands:       d.Brands,
		plans:        d.Plans,
		items:        d.Items,
		jobRuns:      d.JobRuns,
		jobs:         d.Jobs,
		model:        d.Model,
		settings:     d.Settings,
		merger:       strategy.NewPlanMerger(d.Plans, d.Locker, d.Log),
		validator:    strategy.NewWeeklyDistributionValidator(d.Log),
		materializer: strategy.NewMaterializer(d.DB, d.Items, d.Settings, d.Log),
		upserter:     strategy.NewContentRefinementUpserter(d.DB, d.Items, d.Log),
		now:          time.Now,
	}
}

func (s *strategyService) CreatePlan(dbc dbctx.Context, ownerUserID uuid.UUID, in CreatePlanInput) (*types.StrategyPlan, []*types.JobRun, error) {
	if in.BrandID == uuid.Nil {
		return nil, nil, apierr.BadRequest("invalid_strategy", "brand_id is required")
	}
	if _, ok := strategy.ParseMonth(in.Month); !ok {
		return nil, nil, apierr.BadRequest("invalid_strategy", "month must look like YYYY-M")
	}
	if in.FrequencyPerWeek < 1 || in.FrequencyPerWeek > maxFrequencyPerWeek {
		return nil, nil, apierr.BadRequest("invalid_strategy", "frequency_per_week must be between 1 and %d", maxFrequencyPerWeek)
	}
	month := strategy.CanonicalMonth(in.Month)

	inner := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}
	brand, err := s.brands.GetByID(inner, in.BrandID)
	if err != nil {
		return nil, nil, err
	}
	if brand == nil || brand.OwnerUserID != ownerUserID {
		return nil, nil, apierr.NotFound("brand_not_found", "brand not found")
	}
	existing, err := s.plans.GetByOwnerBrandMonth(inner, ownerUserID, brand.ID, month)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, apierr.Conflict("strategy_exists", "a strategy for %s already exists (%s)", month, existing.ID)
	}

	snap := strategy.BuildBrandSnapshot(brand, month, strings.TrimSpace(in.Objective), in.FrequencyPerWeek, s.now())
	snapJSON, _ := json.Marshal(snap)
	total := s.settings.BatchCount

	var plan *types.StrategyPlan
	var jobs []*types.JobRun
	err = dbc.Conn(s.db).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		created, err := s.plans.Create(txc, &types.StrategyPlan{
			OwnerUserID:         ownerUserID,
			BrandID:             brand.ID,
			Month:               month,
			Status:              types.PlanStatusPending,
			ObjectiveOfTheMonth: snap.Objective,
			FrequencyPerWeek:    in.FrequencyPerWeek,
			MonthlyThemes:       datatypes.JSON([]byte(`[]`)),
			ContentDistribution: datatypes.JSON([]byte(`{}`)),
			WeeklyPlan:          datatypes.JSON([]byte(`[]`)),
			RawPayload:          datatypes.JSON([]byte(`{}`)),
			BrandSnapshot:       datatypes.JSON(snapJSON),
			BatchesTotal:        total,
			CompletedBatches:    datatypes.JSON([]byte(`[]`)),
		})
		if err != nil {
			return err
		}
		plan = created
		for batch := 1; batch <= total; batch++ {
			job, err := s.enqueueBatch(txc, plan, batch)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		if datadb.IsUniqueViolation(err) {
			return nil, nil, apierr.Conflict("strategy_exists", "a strategy for %s already exists", month)
		}
		return nil, nil, fmt.Errorf("create strategy plan: %w", err)
	}
	s.log.Info("strategy plan created",
		"strategy_plan_id", plan.ID,
		"brand_id", brand.ID,
		"month", month,
		"frequency_per_week", in.FrequencyPerWeek,
		"batches", total,
	)
	return plan, jobs, nil
}

func (s *strategyService) enqueueBatch(dbc dbctx.Context, plan *types.StrategyPlan, batch int) (*types.JobRun, error) {
	id := plan.ID
	return s.jobs.Enqueue(dbc, plan.OwnerUserID, JobTypeStrategyBatch, EntityTypeStrategyPlan, &id, map[string]any{
		"strategy_plan_id": plan.ID.String(),
		"batch":            batch,
	})
}

// EnsureMaterialization queues the materialization of a complete plan that
// has no items yet. It returns nil when the plan is not ready, already
// materialized, or a materialize job for it is still queued or running.
func (s *strategyService) EnsureMaterialization(dbc dbctx.Context, planID uuid.UUID) (*types.JobRun, error) {
	inner := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}
	plan, err := s.plans.GetByID(inner, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.Status != types.PlanStatusComplete || plan.MaterializedAt != nil {
		return nil, nil
	}
	return s.enqueueMaterialize(inner, plan)
}

func (s *strategyService) enqueueMaterialize(dbc dbctx.Context, plan *types.StrategyPlan) (*types.JobRun, error) {
	busy, err := s.jobRuns.HasRunnableForEntity(dbc, EntityTypeStrategyPlan, plan.ID, JobTypeStrategyMaterialize)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, nil
	}
	id := plan.ID
	return s.jobs.Enqueue(dbc, plan.OwnerUserID, JobTypeStrategyMaterialize, EntityTypeStrategyPlan, &id, map[string]any{
		"strategy_plan_id": plan.ID.String(),
	})
}

func (s *strategyService) GetPlanForOwner(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) (*types.StrategyPlan, error) {
	plan, err := s.plans.GetByID(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || plan.OwnerUserID != ownerUserID {
		return nil, apierr.NotFound("strategy_not_found", "strategy not found")
	}
	return plan, nil
}

// Resume re-enqueues the batches a plan is still missing, or the
// materialization when every batch landed but no items were written.
func (s *strategyService) Resume(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) ([]*types.JobRun, error) {
	plan, err := s.GetPlanForOwner(dbc, ownerUserID, planID)
	if err != nil {
		return nil, err
	}
	inner := dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}
	for _, jt := range []string{JobTypeStrategyBatch, JobTypeStrategyMaterialize} {
		busy, err := s.jobRuns.HasRunnableForEntity(inner, EntityTypeStrategyPlan, plan.ID, jt)
		if err != nil {
			return nil, err
		}
		if busy {
			return nil, apierr.Conflict("strategy_in_progress", "strategy %s still has %s jobs running", plan.ID, jt)
		}
	}

	if plan.Status == types.PlanStatusComplete {
		if plan.MaterializedAt != nil {
			return []*types.JobRun{}, nil
		}
		job, err := s.enqueueMaterialize(inner, plan)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return []*types.JobRun{}, nil
		}
		return []*types.JobRun{job}, nil
	}

	pending := strategy.PendingBatches(plan)
	out := make([]*types.JobRun, 0, len(pending))
	err = dbc.Conn(s.db).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		for _, batch := range pending {
			job, err := s.enqueueBatch(txc, plan, batch)
			if err != nil {
				return err
			}
			out = append(out, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("strategy plan resumed", "strategy_plan_id", plan.ID, "pending_batches", pending)
	return out, nil
}

func (s *strategyService) RequestRefinement(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) (*types.JobRun, error) {
	plan, err := s.GetPlanForOwner(dbc, ownerUserID, planID)
	if err != nil {
		return nil, err
	}
	if plan.MaterializedAt == nil {
		return nil, apierr.Conflict("strategy_not_materialized", "strategy %s has no content items yet", plan.ID)
	}
	id := plan.ID
	return s.jobs.Enqueue(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}, plan.OwnerUserID, JobTypeContentRefine, EntityTypeStrategyPlan, &id, map[string]any{
		"strategy_plan_id": plan.ID.String(),
	})
}

func (s *strategyService) Delete(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) error {
	plan, err := s.GetPlanForOwner(dbc, ownerUserID, planID)
	if err != nil {
		return err
	}
	if err := s.plans.Delete(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}, plan.ID); err != nil {
		return fmt.Errorf("delete strategy plan: %w", err)
	}
	s.log.Info("strategy plan deleted", "strategy_plan_id", plan.ID)
	return nil
}

func (s *strategyService) ListContentItems(dbc dbctx.Context, ownerUserID uuid.UUID, planID uuid.UUID) ([]*types.ContentItem, error) {
	plan, err := s.GetPlanForOwner(dbc, ownerUserID, planID)
	if err != nil {
		return nil, err
	}
	return s.items.ListByPlan(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Conn(s.db)}, plan.ID)
}

func (s *strategyService) loadPlan(ctx context.Context, planID uuid.UUID) (*types.StrategyPlan, error) {
	plan, err := s.plans.GetByID(dbctx.Context{Ctx: ctx}, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", strategy.ErrPlanNotFound, planID)
	}
	return plan, nil
}

func (s *strategyService) callModel(ctx context.Context, stage, system, user string) (string, error) {
	if s.model == nil {
		return "", ErrModelUnavailable
	}
	start := time.Now()
	text, err := s.model.GenerateText(ctx, system, user)
	observability.Current().ObserveLLMRequest(stage, err, time.Since(start))
	return text, err
}

// GenerateBatch asks the model for one batch of weeks and folds the answer
// into the plan. A batch already recorded is not generated again.
func (s *strategyService) GenerateBatch(ctx context.Context, planID uuid.UUID, batch int) (*strategy.BatchOutcome, error) {
	ctx, span := tracer.Start(ctx, "strategy.generate_batch")
	defer span.End()
	span.SetAttributes(attribute.String("strategy_plan_id", planID.String()), attribute.Int("batch", batch))

	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	done := strategy.DecodeCompletedBatches(plan)
	for _, b := range done {
		if b == batch {
			return &strategy.BatchOutcome{AlreadyMerged: true, CompletedBatches: done}, nil
		}
	}
	snap := strategy.DecodeBrandSnapshot(plan.BrandSnapshot)
	system, user := strategy.StrategyPrompts(snap, batch, plan.BatchesTotal)
	text, err := s.callModel(ctx, "strategy_batch", system, user)
	if err != nil {
		return nil, fmt.Errorf("generate strategy batch %d: %w", batch, err)
	}
	raw, err := strategy.ParseStrategyResponse(text)
	if err != nil {
		s.log.Warn("strategy batch response rejected", "strategy_plan_id", planID, "batch", batch, "error", err)
		return nil, err
	}
	return s.merger.MergeBatch(ctx, planID, batch, raw, text)
}

// Finalize validates the merged plan, persists the repaired weekly plan and
// materializes its content items.
func (s *strategyService) Finalize(ctx context.Context, planID uuid.UUID) (*strategy.MaterializationResult, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != types.PlanStatusComplete {
		return nil, fmt.Errorf("%w: %s is %s", ErrPlanNotComplete, plan.ID, plan.Status)
	}
	snap := strategy.DecodeBrandSnapshot(plan.BrandSnapshot)
	vr := s.validator.Validate(strategy.PlanPayloadJSON(plan), snap.Slug)

	report, _ := json.Marshal(vr.Report)
	updates := map[string]interface{}{"validation": datatypes.JSON(report)}
	if vr.Validated() {
		weekly, err := json.Marshal(vr.Plan.WeeklyPlan)
		if err != nil {
			return nil, fmt.Errorf("encode validated weekly plan: %w", err)
		}
		updates["weekly_plan"] = datatypes.JSON(weekly)
		updates["frequency_per_week"] = vr.Plan.FrequencyPerWeek
	}
	if err := s.plans.UpdateFields(dbctx.Context{Ctx: ctx}, plan.ID, updates); err != nil {
		return nil, fmt.Errorf("persist validation: %w", err)
	}
	if plan, err = s.loadPlan(ctx, planID); err != nil {
		return nil, err
	}

	res, err := s.materializer.Materialize(ctx, plan)
	if err != nil {
		return nil, err
	}
	count, err := s.items.CountByPlan(dbctx.Context{Ctx: ctx}, plan.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.plans.UpdateFields(dbctx.Context{Ctx: ctx}, plan.ID, map[string]interface{}{
		"content_count":   int(count),
		"materialized_at": now,
	}); err != nil {
		return nil, fmt.Errorf("record materialization: %w", err)
	}
	observability.Current().ObserveMaterialization(len(res.Expected), res.Persisted(), len(res.MissingIDs), len(res.Dropped))
	return res, nil
}

type weekChunk struct {
	week  int
	items []*types.ContentItem
}

func chunkByWeek(items []*types.ContentItem) []weekChunk {
	byWeek := map[int][]*types.ContentItem{}
	for _, it := range items {
		byWeek[it.Week] = append(byWeek[it.Week], it)
	}
	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	out := make([]weekChunk, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, weekChunk{week: w, items: byWeek[w]})
	}
	return out
}

// RefineContent sends each week's items to the model concurrently. Every
// chunk must parse before anything is written.
func (s *strategyService) RefineContent(ctx context.Context, planID uuid.UUID) (*strategy.RefinementResult, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListByPlan(dbctx.Context{Ctx: ctx}, plan.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return &strategy.RefinementResult{}, nil
	}
	snap := strategy.DecodeBrandSnapshot(plan.BrandSnapshot)
	chunks := chunkByWeek(items)
	refined := make([][]strategy.RefinedItem, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.settings.RefineConcurrency)
	for i, ch := range chunks {
		g.Go(func() error {
			system, user, err := strategy.RefinementPrompts(snap, ch.week, ch.items)
			if err != nil {
				return err
			}
			text, err := s.callModel(gctx, "content_refine", system, user)
			if err != nil {
				return fmt.Errorf("refine week %d: %w", ch.week, err)
			}
			resp, err := strategy.ParseRefinementResponse(text)
			if err != nil {
				return fmt.Errorf("refine week %d: %w", ch.week, err)
			}
			if len(resp.Rejected) > 0 {
				s.log.Warn("refined items rejected", "strategy_plan_id", plan.ID, "week", ch.week, "positions", resp.Rejected)
			}
			refined[i] = resp.Items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make([]strategy.RefinedItem, 0, len(items))
	for _, r := range refined {
		all = append(all, r...)
	}
	res, err := s.upserter.Refine(ctx, plan, all)
	if err != nil {
		return nil, err
	}
	if count, err := s.items.CountByPlan(dbctx.Context{Ctx: ctx}, plan.ID); err == nil {
		_ = s.plans.UpdateFields(dbctx.Context{Ctx: ctx}, plan.ID, map[string]interface{}{"content_count": int(count)})
	}
	observability.Current().ObserveRefinement(len(res.Updated), len(res.Created), len(res.Skipped))
	return res, nil
}

// GenerateInline runs every pending batch in-process and then finalizes,
// without the job queue.
func (s *strategyService) GenerateInline(ctx context.Context, planID uuid.UUID) (*strategy.MaterializationResult, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != types.PlanStatusComplete {
		g, gctx := errgroup.WithContext(ctx)
		for _, batch := range strategy.PendingBatches(plan) {
			g.Go(func() error {
				_, err := s.GenerateBatch(gctx, plan.ID, batch)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return s.Finalize(ctx, plan.ID)
}
