package strategy_batch_generate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/data/repos"
	"github.com/yungbote/contentplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	jobrt "github.com/yungbote/contentplan-backend/internal/jobs/runtime"
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/services"
)

const weekFourAnswer = `{
  "month": "2025-3",
  "objective_of_the_month": "grow reach",
  "frequency_per_week": 1,
  "monthly_themes": ["discipline"],
  "content_distribution": {},
  "weekly_plan": [
    {"week": 4, "theme": "Consistency", "ideas": [
      {"id": "202503-acme-fitness-C-w4-i1", "title": "Week 4 idea", "hook": "Stop scrolling",
       "description": "A short drill", "cta": "Follow", "platform": "Instagram", "pilar": "C",
       "recommended_template": "only avatars", "video_source": "none"}
    ]}
  ]
}`

type fixedModel struct{ calls int }

func (m *fixedModel) GenerateText(ctx context.Context, system, user string) (string, error) {
	m.calls++
	return weekFourAnswer, nil
}

type fixture struct {
	db       *gorm.DB
	pipeline *Pipeline
	jobs     services.JobService
	jobRuns  repos.JobRunRepo
	notify   services.JobNotifier
	model    *fixedModel
	brand    *types.Brand
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	jobRuns := repos.NewJobRunRepo(db, log)
	notify := services.NewJobNotifier(log, nil)
	jobSvc := services.NewJobService(db, log, jobRuns, notify)
	model := &fixedModel{}
	svc := services.NewStrategyService(services.StrategyServiceDeps{
		DB:       db,
		Log:      log,
		Brands:   repos.NewBrandRepo(db, log),
		Plans:    repos.NewStrategyPlanRepo(db, log),
		Items:    repos.NewContentItemRepo(db, log),
		JobRuns:  jobRuns,
		Jobs:     jobSvc,
		Model:    model,
		Settings: strategy.DefaultSettings(),
	})
	return &fixture{
		db:       db,
		pipeline: New(log, svc),
		jobs:     jobSvc,
		jobRuns:  jobRuns,
		notify:   notify,
		model:    model,
		brand:    testutil.SeedBrand(t, db, "Acme Fitness"),
	}
}

func (f *fixture) run(t *testing.T, owner uuid.UUID, payload map[string]any) *types.JobRun {
	t.Helper()
	dbc := dbctx.Context{Ctx: t.Context()}
	job, err := f.jobs.Enqueue(dbc, owner, f.pipeline.Type(), "", nil, payload)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	jc := jobrt.NewContext(t.Context(), nil, job, f.jobRuns, f.notify)
	if err := f.pipeline.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got, err := f.jobRuns.GetByID(dbc, job.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return got
}

func TestBatchPipelineValidatesPayload(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, uuid.New(), map[string]any{"batch": 1})
	if got.Status != types.JobStatusFailed || got.Stage != "validate" {
		t.Fatalf("job: status=%s stage=%s", got.Status, got.Stage)
	}
	got = f.run(t, uuid.New(), map[string]any{"strategy_plan_id": uuid.NewString()})
	if got.Status != types.JobStatusFailed || got.Stage != "validate" {
		t.Fatalf("missing batch: status=%s stage=%s", got.Status, got.Stage)
	}
}

func TestBatchPipelineSkipsDeletedPlan(t *testing.T) {
	f := newFixture(t)
	got := f.run(t, uuid.New(), map[string]any{"strategy_plan_id": uuid.NewString(), "batch": 2})
	if got.Status != types.JobStatusSucceeded || got.Stage != "skipped" {
		t.Fatalf("job: status=%s stage=%s", got.Status, got.Stage)
	}
	if f.model.calls != 0 {
		t.Fatalf("model called %d times", f.model.calls)
	}
}

func TestBatchPipelineLastBatchQueuesMaterialization(t *testing.T) {
	f := newFixture(t)

	plan := testutil.SeedPlan(t, f.db, f.brand, "2025-3", 1, `[]`)
	if err := f.db.Model(&types.StrategyPlan{}).Where("id = ?", plan.ID).Updates(map[string]any{
		"status":            types.PlanStatusPending,
		"completed_batches": datatypes.JSON([]byte(`[1,2,3]`)),
	}).Error; err != nil {
		t.Fatalf("reset plan: %v", err)
	}

	payload := map[string]any{"strategy_plan_id": plan.ID.String(), "batch": 4}
	got := f.run(t, plan.OwnerUserID, payload)
	if got.Status != types.JobStatusSucceeded || got.Stage != "done" {
		t.Fatalf("job: status=%s stage=%s error=%s", got.Status, got.Stage, got.Error)
	}
	queued, err := f.jobRuns.HasRunnableForEntity(dbctx.Context{Ctx: t.Context()}, services.EntityTypeStrategyPlan, plan.ID, services.JobTypeStrategyMaterialize)
	if err != nil {
		t.Fatalf("HasRunnableForEntity: %v", err)
	}
	if !queued {
		t.Fatalf("expected a queued materialize job")
	}

	// a redelivered batch is recognized and does not queue a second materialization
	got = f.run(t, plan.OwnerUserID, payload)
	if got.Status != types.JobStatusSucceeded {
		t.Fatalf("redelivery: status=%s error=%s", got.Status, got.Error)
	}
	if f.model.calls != 1 {
		t.Fatalf("model calls: %d", f.model.calls)
	}
}

func TestBatchPipelineRedeliveryRequeuesLostMaterialization(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.Context{Ctx: t.Context()}

	// every batch merged and the plan complete, but the materialize enqueue
	// never happened
	plan := testutil.SeedPlan(t, f.db, f.brand, "2025-3", 1, `[]`)
	payload := map[string]any{"strategy_plan_id": plan.ID.String(), "batch": 4}

	got := f.run(t, plan.OwnerUserID, payload)
	if got.Status != types.JobStatusSucceeded || got.Stage != "done" {
		t.Fatalf("job: status=%s stage=%s error=%s", got.Status, got.Stage, got.Error)
	}
	if f.model.calls != 0 {
		t.Fatalf("merged batch called the model %d times", f.model.calls)
	}
	queued, err := f.jobRuns.HasRunnableForEntity(dbc, services.EntityTypeStrategyPlan, plan.ID, services.JobTypeStrategyMaterialize)
	if err != nil || !queued {
		t.Fatalf("expected a queued materialize job: queued=%v err=%v", queued, err)
	}

	// a second redelivery finds the queued job and adds nothing
	f.run(t, plan.OwnerUserID, payload)
	var n int64
	if err := f.db.Model(&types.JobRun{}).Where("job_type = ?", services.JobTypeStrategyMaterialize).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("materialize jobs: %d", n)
	}

	// a materialized plan is left alone
	if err := f.db.Model(&types.JobRun{}).Where("job_type = ?", services.JobTypeStrategyMaterialize).
		Update("status", types.JobStatusSucceeded).Error; err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := f.db.Model(&types.StrategyPlan{}).Where("id = ?", plan.ID).Update("materialized_at", time.Now()).Error; err != nil {
		t.Fatalf("mark materialized: %v", err)
	}
	f.run(t, plan.OwnerUserID, payload)
	if queued, _ := f.jobRuns.HasRunnableForEntity(dbc, services.EntityTypeStrategyPlan, plan.ID, services.JobTypeStrategyMaterialize); queued {
		t.Fatalf("materialized plan queued again")
	}
}
