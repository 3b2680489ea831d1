package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/zhstock/dsa/internal/config"
)

func TestBuildFetcherPool_NoSourcesConfiguredYieldsEmptyPool(t *testing.T) {
	cfg := loadTestConfig(t)

	pool := buildFetcherPool(context.Background(), cfg, zerolog.Nop())
	assert.NotNil(t, pool)
}

func TestBuildFetcherPool_RegistersConfiguredSourcesOnly(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.USQuoteBaseURL = "https://quotes.example.internal"
	cfg.USQuoteAPIKey = "test-key"

	pool := buildFetcherPool(context.Background(), cfg, zerolog.Nop())
	assert.NotNil(t, pool)
}
