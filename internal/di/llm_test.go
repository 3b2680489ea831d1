package di

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLLMRouter_NoKeysConfiguredStillBuilds(t *testing.T) {
	cfg := loadTestConfig(t)

	router := buildLLMRouter(cfg, zerolog.Nop())
	assert.NotNil(t, router)
}

func TestSplitModelSpec(t *testing.T) {
	cases := []struct {
		spec       string
		providerID string
		model      string
	}{
		{"gemini/gemini-1.5-pro", "gemini", "gemini-1.5-pro"},
		{"anthropic/claude-3-5-sonnet-20241022", "anthropic", "claude-3-5-sonnet-20241022"},
		{"gemini-1.5-flash", "gemini", "gemini-1.5-flash"},
	}
	for _, c := range cases {
		providerID, model := splitModelSpec(c.spec)
		assert.Equal(t, c.providerID, providerID, c.spec)
		assert.Equal(t, c.model, model, c.spec)
	}
}

func TestModelChain_DropsEntriesForUnregisteredProviders(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.LiteLLMModel = "gemini/gemini-1.5-pro"
	cfg.LiteLLMFallbackModels = []string{"anthropic/claude-3-5-sonnet-20241022", ""}

	registered := map[string]bool{"gemini": true}
	chain := modelChain(cfg, registered)

	require.Len(t, chain, 1)
	assert.Equal(t, "gemini", chain[0].ProviderID)
	assert.Equal(t, "gemini-1.5-pro", chain[0].Model)
}

func TestModelChain_KeepsEveryRegisteredEntry(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.LiteLLMModel = "gemini/gemini-1.5-pro"
	cfg.LiteLLMFallbackModels = []string{"anthropic/claude-3-5-sonnet-20241022"}

	registered := map[string]bool{"gemini": true, "anthropic": true}
	chain := modelChain(cfg, registered)

	require.Len(t, chain, 2)
	assert.Equal(t, "anthropic", chain[1].ProviderID)
}
