package di

import (
	"context"

	"github.com/zhstock/dsa/internal/agent"
	"github.com/zhstock/dsa/internal/pipeline"
	"github.com/zhstock/dsa/pkg/strategy"
)

// executorRunner adapts agent.Executor to pipeline.AgentRunner: the
// pipeline only knows strategy names, not the strategy.Strategy map
// itself, to avoid importing pkg/strategy into internal/pipeline.
type executorRunner struct {
	executor   *agent.Executor
	strategies map[string]strategy.Strategy
}

func (r *executorRunner) Run(ctx context.Context, sessionID string, strategyNames []string, userPrompt string) (pipeline.AgentResult, error) {
	result, err := r.executor.Run(ctx, sessionID, r.strategies, strategyNames, userPrompt)
	if err != nil {
		return pipeline.AgentResult{}, err
	}
	return pipeline.AgentResult{FinalText: result.FinalText}, nil
}
