package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/config"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func TestBuild_MinimalConfigProducesUsableContainer(t *testing.T) {
	cfg := loadTestConfig(t)

	c, err := Build(context.Background(), cfg, false, true, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, c)
	defer c.Close()

	assert.NotNil(t, c.DB)
	assert.NotNil(t, c.Bus)
	assert.NotNil(t, c.Pool)
	assert.NotNil(t, c.TaskStore)
	assert.NotNil(t, c.Pipeline)
	assert.NotNil(t, c.BatchJob)
	assert.NotNil(t, c.Scheduler)
	assert.NotNil(t, c.Backup)
	assert.NotNil(t, c.AuthService)
	assert.NotNil(t, c.HTTPServer)
	assert.Nil(t, c.Dispatcher, "noNotify=true must leave the dispatcher unset")
}

func TestBuild_SingleNotifyWithoutChannelsStillBuilds(t *testing.T) {
	cfg := loadTestConfig(t)

	c, err := Build(context.Background(), cfg, true, false, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Dispatcher, "a Dispatcher is always built, even with zero channels configured")
}
