package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBuildNewsService_NoKeysConfiguredStillBuilds(t *testing.T) {
	cfg := loadTestConfig(t)

	svc := buildNewsService(cfg, zerolog.Nop())
	assert.NotNil(t, svc)
}

func TestBuildNewsService_RegistersConfiguredProviders(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.TavilyAPIKeys = []string{"tavily-key"}
	cfg.BochaAPIKeys = []string{"bocha-key"}

	svc := buildNewsService(cfg, zerolog.Nop())
	assert.NotNil(t, svc)
}
