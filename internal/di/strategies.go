package di

import (
	"fmt"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/pkg/strategy"
)

// builtinStrategyDir ships with the repo; AGENT_STRATEGY_DIR layers an
// operator's own strategies on top, winning on name conflict (§4.6).
const builtinStrategyDir = "strategies"

func buildStrategies(cfg *config.Config) (map[string]strategy.Strategy, error) {
	builtins, err := strategy.LoadDir(builtinStrategyDir)
	if err != nil {
		return nil, fmt.Errorf("di: load builtin strategies: %w", err)
	}
	userDefined, err := strategy.LoadDir(cfg.AgentStrategyDir)
	if err != nil {
		return nil, fmt.Errorf("di: load user strategies: %w", err)
	}
	return strategy.Merge(builtins, userDefined), nil
}
