package di

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/news"
	"github.com/zhstock/dsa/internal/news/providers"
)

// newsKeyCooldown matches the router's own 429 cooldown window (C5),
// since both are "back off a rate-limited key for a while" problems.
const newsKeyCooldown = 60 * time.Second

// buildNewsService binds each provider only when its key list is
// non-empty; a provider with no keys contributes nothing rather than
// failing every search with an empty key.
func buildNewsService(cfg *config.Config, log zerolog.Logger) *news.Service {
	var configs []news.ProviderConfig

	if len(cfg.TavilyAPIKeys) > 0 {
		configs = append(configs, news.ProviderConfig{
			Provider: providers.NewTavilyProvider(""),
			Keys:     cfg.TavilyAPIKeys,
			Cooldown: newsKeyCooldown,
		})
	}
	if len(cfg.SerpAPIKeys) > 0 {
		configs = append(configs, news.ProviderConfig{
			Provider: providers.NewSerpAPIProvider(""),
			Keys:     cfg.SerpAPIKeys,
			Cooldown: newsKeyCooldown,
		})
	}
	if len(cfg.BochaAPIKeys) > 0 {
		configs = append(configs, news.ProviderConfig{
			Provider: providers.NewBochaProvider(""),
			Keys:     cfg.BochaAPIKeys,
			Cooldown: newsKeyCooldown,
		})
	}

	maxAge := time.Duration(cfg.NewsMaxAgeDays) * 24 * time.Hour
	return news.NewService(configs, 5, maxAge, log)
}
