package fetcher

import (
	"context"

	"github.com/zhstock/dsa/internal/domain"
)

// Source is the vendor-agnostic capability every data-source adapter
// implements. Concrete vendor client libraries are out of scope (per
// spec.md §1); this interface is the entire contract a real adapter
// must satisfy.
type Source interface {
	ID() string
	Priority() int
	SupportsMarket(m domain.Market) bool

	GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error)
	GetRealtime(ctx context.Context, ticker string) (domain.Quote, error)
	GetName(ctx context.Context, ticker string) (string, error)
}

// BatchRealtimeSource is implemented by sources that can fetch many
// tickers' quotes in a single round trip (§4.1 "batch prefetch").
type BatchRealtimeSource interface {
	Source
	GetRealtimeBatch(ctx context.Context, tickers []string) (map[string]domain.Quote, error)
}
