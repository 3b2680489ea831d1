package di

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/llm"
	"github.com/zhstock/dsa/internal/llm/providers"
)

// llmKeyCooldown is the router's default per-key cooldown after a 429.
const llmKeyCooldown = 60 * time.Second

// buildLLMRouter registers a provider only when it has at least one
// key, then builds the primary+fallback chain from LITELLM_MODEL and
// LITELLM_FALLBACK_MODELS. Every chain entry names a provider via its
// "<provider>/<model>" prefix (e.g. "gemini/gemini-1.5-pro"); entries
// whose provider was never registered are skipped rather than making
// the router fail the whole chain for one bad entry.
func buildLLMRouter(cfg *config.Config, log zerolog.Logger) *llm.Router {
	var configs []llm.ProviderConfig

	if len(cfg.GeminiAPIKeys) > 0 {
		configs = append(configs, llm.ProviderConfig{
			Provider: providers.NewGeminiProvider(),
			Keys:     cfg.GeminiAPIKeys,
			Cooldown: llmKeyCooldown,
		})
	}
	if len(cfg.AnthropicAPIKeys) > 0 {
		configs = append(configs, llm.ProviderConfig{
			Provider: providers.NewAnthropicProvider(""),
			Keys:     cfg.AnthropicAPIKeys,
			Cooldown: llmKeyCooldown,
		})
	}
	if len(cfg.OpenAIAPIKeys) > 0 {
		configs = append(configs, llm.ProviderConfig{
			Provider: providers.NewOpenAICompatibleProvider("openai", "https://api.openai.com/v1"),
			Keys:     cfg.OpenAIAPIKeys,
			Cooldown: llmKeyCooldown,
		})
	}

	registeredProviders := map[string]bool{}
	for _, c := range configs {
		registeredProviders[c.Provider.ID()] = true
	}

	chain := modelChain(cfg, registeredProviders)
	return llm.NewRouter(configs, chain, log)
}

// modelChain builds the primary+fallback ModelSpec list, dropping any
// entry whose provider prefix wasn't registered above.
func modelChain(cfg *config.Config, registeredProviders map[string]bool) []llm.ModelSpec {
	raw := append([]string{cfg.LiteLLMModel}, cfg.LiteLLMFallbackModels...)
	var chain []llm.ModelSpec
	for _, entry := range raw {
		if entry == "" {
			continue
		}
		providerID, model := splitModelSpec(entry)
		if !registeredProviders[providerID] {
			continue
		}
		chain = append(chain, llm.ModelSpec{Model: model, ProviderID: providerID})
	}
	return chain
}

// splitModelSpec splits "provider/model" into its two halves. A spec
// with no "/" is treated as a gemini-hosted model name, matching
// LiteLLM's own default when no provider prefix is given.
func splitModelSpec(spec string) (providerID, model string) {
	for i := 0; i < len(spec); i++ {
		if spec[i] == '/' {
			return spec[:i], spec[i+1:]
		}
	}
	return "gemini", spec
}
