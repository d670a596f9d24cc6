package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/yungbote/contentplan-backend/internal/clients/redis"
	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.JobRun)
}

// JobEventPublisher fans job events out to other processes.
type JobEventPublisher interface {
	Publish(ctx context.Context, ev redisclient.JobEvent) error
}

type jobNotifier struct {
	log *logger.Logger
	bus JobEventPublisher
}

// NewJobNotifier logs every job transition and, when bus is non-nil, publishes it.
func NewJobNotifier(baseLog *logger.Logger, bus JobEventPublisher) JobNotifier {
	return &jobNotifier{log: baseLog.With("service", "JobNotifier"), bus: bus}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	n.log.Debug("job created", "job_id", job.ID, "job_type", job.JobType)
	n.publish(userID, job, "job_created", "", "")
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string) {
	n.log.Debug("job progress", "job_id", job.ID, "job_type", job.JobType, "stage", stage, "progress", progress)
	n.publish(userID, job, "job_progress", message, "")
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	n.log.Warn("job failed", "job_id", job.ID, "job_type", job.JobType, "stage", stage, "error", errorMessage)
	n.publish(userID, job, "job_failed", "", errorMessage)
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	n.log.Info("job done", "job_id", job.ID, "job_type", job.JobType)
	n.publish(userID, job, "job_done", "", "")
}

func (n *jobNotifier) publish(userID uuid.UUID, job *types.JobRun, event, message, errMsg string) {
	if n.bus == nil || job == nil {
		return
	}
	ev := redisclient.JobEvent{
		Event:       event,
		OwnerUserID: userID,
		JobID:       job.ID,
		JobType:     job.JobType,
		Status:      job.Status,
		Stage:       job.Stage,
		Progress:    job.Progress,
		Message:     message,
		Error:       errMsg,
		At:          time.Now().UTC(),
	}
	if job.EntityID != nil {
		ev.EntityID = job.EntityID.String()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("job event publish failed", "job_id", job.ID, "event", event, "error", err)
	}
}
