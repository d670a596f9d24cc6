package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/contentplan-backend/internal/data/repos"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/jobs/runtime"
	"github.com/yungbote/contentplan-backend/internal/observability"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
	"github.com/yungbote/contentplan-backend/internal/platform/envutil"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
	"github.com/yungbote/contentplan-backend/internal/services"
)

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier

	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
	heartbeat    time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier) *Worker {
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker"),
		repo:         repo,
		registry:     registry,
		notify:       notify,
		maxAttempts:  envutil.Int("JOB_MAX_ATTEMPTS", 5),
		retryDelay:   time.Duration(envutil.Int("JOB_RETRY_DELAY_SECONDS", 30)) * time.Second,
		staleRunning: time.Duration(envutil.Int("JOB_STALE_RUNNING_SECONDS", 1800)) * time.Second,
		heartbeat:    30 * time.Second,
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := envutil.Int("WORKER_CONCURRENCY", 4)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting job worker pool", "concurrency", concurrency, "job_types", w.registry.Types())

	for i := 0; i < concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// drain while there is work, then go back to polling
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.maxAttempts, w.retryDelay, w.staleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		observability.Current().ObserveJob(job.JobType, types.JobStatusFailed)
		return true, nil
	}

	stop := w.keepAlive(ctx, job)
	defer stop()

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic",
					"job_id", job.ID,
					"job_type", job.JobType,
					"panic", r,
				)
				jc.Fail("panic", &panicError{Val: r})
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			// most pipelines call jc.Fail themselves
			jc.Fail("run", runErr)
		}
	}()
	observability.Current().ObserveJob(job.JobType, jc.Job.Status)
	return true, nil
}

// keepAlive bumps heartbeat_at so long model calls are not mistaken for a
// dead worker.
func (w *Worker) keepAlive(ctx context.Context, job *types.JobRun) func() {
	hbCtx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(w.heartbeat)
		defer t.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-t.C:
				if err := w.repo.Heartbeat(dbctx.Context{Ctx: hbCtx}, job.ID); err != nil {
					w.log.Debug("job heartbeat failed", "job_id", job.ID, "error", err)
				}
			}
		}
	}()
	return cancel
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
