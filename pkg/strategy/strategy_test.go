package strategy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStrategyFile(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644))
}

func TestLoadDir_ParsesValidStrategy(t *testing.T) {
	dir := t.TempDir()
	writeStrategyFile(t, dir, "swing.yaml", `
name: swing_trading
display_name: Swing Trading
category: technical
core_rules:
  - Favor multi-day holding periods
required_tools:
  - get_daily_history
instructions: Focus on multi-day swing setups.
`)

	strategies, err := LoadDir(dir)
	require.NoError(t, err)
	require.Contains(t, strategies, "swing_trading")
	assert.Equal(t, "Swing Trading", strategies["swing_trading"].DisplayName)
}

func TestMerge_UserOverridesBuiltinOnNameConflict(t *testing.T) {
	builtins := map[string]Strategy{"core": {Name: "core", DisplayName: "Built-in"}}
	user := map[string]Strategy{"core": {Name: "core", DisplayName: "User Override"}}

	merged := Merge(builtins, user)
	assert.Equal(t, "User Override", merged["core"].DisplayName)
}

func TestComposeSystemPrompt_UnknownStrategyErrors(t *testing.T) {
	_, err := ComposeSystemPrompt(map[string]Strategy{}, []string{"missing"})
	assert.Error(t, err)
}

func TestRequiredTools_DedupsAcrossStrategies(t *testing.T) {
	all := map[string]Strategy{
		"a": {Name: "a", RequiredTools: []string{"get_daily_history", "get_realtime_quote"}},
		"b": {Name: "b", RequiredTools: []string{"get_realtime_quote", "search_stock_news"}},
	}
	tools := RequiredTools(all, []string{"a", "b"})
	assert.ElementsMatch(t, []string{"get_daily_history", "get_realtime_quote", "search_stock_news"}, tools)
}
