package strategy_materialize

import (
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
	"github.com/yungbote/contentplan-backend/internal/services"
)

type Pipeline struct {
	log      *logger.Logger
	strategy services.StrategyService
}

func New(baseLog *logger.Logger, strategy services.StrategyService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", services.JobTypeStrategyMaterialize),
		strategy: strategy,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeStrategyMaterialize }
