package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStrategyYAML = `
name: test-strategy
description: a strategy used only by this test
`

func TestBuildStrategies_MergesUserOverridesOverBuiltins(t *testing.T) {
	userDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "test-strategy.yaml"), []byte(testStrategyYAML), 0o644))

	cfg := loadTestConfig(t)
	cfg.AgentStrategyDir = userDir

	strategies, err := buildStrategies(cfg)
	require.NoError(t, err)
	assert.Contains(t, strategies, "test-strategy")
}

func TestBuildStrategies_MissingUserDirIsNotAnError(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.AgentStrategyDir = filepath.Join(t.TempDir(), "does-not-exist")

	strategies, err := buildStrategies(cfg)
	require.NoError(t, err)
	assert.NotNil(t, strategies)
}
