package content_refine

import (
	"fmt"

	jobrt "github.com/yungbote/contentplan-backend/internal/jobs/runtime"
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

	jc.Progress("refine", 10, "Refining content items")
	res, err := p.strategy.RefineContent(jc.Ctx, planID)
	if err != nil {
		jc.Fail("refine", err)
		return nil
	}
	jc.Succeed("done", map[string]any{
		"strategy_plan_id": planID.String(),
		"updated":          len(res.Updated),
		"created":          len(res.Created),
		"skipped":          res.Skipped,
	})
	return nil
}
