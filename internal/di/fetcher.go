package di

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/fetcher"
	"github.com/zhstock/dsa/internal/fetcher/sources"
)

// buildFetcherPool wires a data source only when the operator has
// supplied its base URL: an empty URL means "not configured", not "use
// a default vendor", so no source gets fabricated endpoints. The push
// feed, if configured, starts its reconnect loop in its own goroutine
// bound to ctx.
func buildFetcherPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) *fetcher.Pool {
	var registered []fetcher.Source

	usSourceID := ""
	if cfg.USQuoteBaseURL != "" {
		src := sources.NewUSQuoteSource(cfg.USQuoteBaseURL, cfg.USQuoteAPIKey)
		registered = append(registered, src)
		usSourceID = src.ID()
	}
	if cfg.AsiaQuoteBaseURL != "" {
		registered = append(registered, sources.NewAsiaQuoteSource(cfg.AsiaQuoteBaseURL, cfg.AsiaQuoteAPIKey, 0))
	}
	if cfg.PushQuoteURL != "" {
		push := sources.NewPushQuoteSource(cfg.PushQuoteURL, log)
		push.Subscribe(cfg.StockList...)
		go push.Run(ctx)
		registered = append(registered, push)
	}

	return fetcher.NewPool(registered, cfg.RealtimeSourcePriority, nil, usSourceID, log)
}
