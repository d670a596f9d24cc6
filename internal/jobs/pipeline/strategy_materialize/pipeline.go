package strategy_materialize

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

	jc.Progress("materialize", 10, "Validating strategy and creating content items")
	res, err := p.strategy.Finalize(jc.Ctx, planID)
	if err != nil {
		jc.Fail("materialize", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"strategy_plan_id": planID.String(),
		"expected":         len(res.Expected),
		"created":          res.Persisted(),
		"ratio":            res.Ratio(),
		"retried":          res.MissingIDs,
		"dropped":          res.Dropped,
	})
	return nil
}
