package strategy_batch_generate

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/contentplan-backend/internal/jobs/runtime"
	"github.com/yungbote/contentplan-backend/internal/modules/strategy"
	"github.com/yungbote/contentplan-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	planID, ok := jc.PayloadUUID("strategy_plan_id")
	if !ok {
		jc.Fail("validate", fmt.Errorf("missing strategy_plan_id"))
		return nil
	}
	batch, ok := jc.PayloadInt("batch")
	if !ok || batch < 1 {
		jc.Fail("validate", fmt.Errorf("missing batch"))
		return nil
	}

	jc.Progress("generate", 10, fmt.Sprintf("Generating batch %d", batch))
	out, err := p.strategy.GenerateBatch(jc.Ctx, planID, batch)
	if err != nil {
		if errors.Is(err, strategy.ErrPlanNotFound) {
			// plan deleted while the batch was queued
			jc.Succeed("skipped", map[string]any{"strategy_plan_id": planID.String(), "reason": "plan not found"})
			return nil
		}
		jc.Fail("generate", err)
		return nil
	}

	result := map[string]any{
		"strategy_plan_id":  planID.String(),
		"batch":             batch,
		"completed_batches": out.CompletedBatches,
		"already_merged":    out.AlreadyMerged,
		"plan_complete":     out.Completed,
	}
	// the completing merge queues materialization; a redelivered batch
	// re-checks so a failed enqueue after that merge is not lost
	job, err := p.strategy.EnsureMaterialization(dbctx.Context{Ctx: jc.Ctx}, planID)
	if err != nil {
		jc.Fail("enqueue_materialize", err)
		return nil
	}
	if job != nil {
		result["materialize_job_id"] = job.ID.String()
		p.log.Info("strategy plan complete", "strategy_plan_id", planID, "materialize_job_id", job.ID)
	}
	jc.Succeed("done", result)
	return nil
}
