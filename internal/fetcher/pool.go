package fetcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/domain"
)

// registeredSource pairs a Source with its breaker and effective
// priority (config overrides the source's own declared priority).
type registeredSource struct {
	source            Source
	breaker           *CircuitBreaker
	effectivePriority int
	disabled          bool
}

// Pool is the Data Fetcher Pool (C3).
type Pool struct {
	log zerolog.Logger

	sources   []*registeredSource
	usSource  Source // dedicated US-quote source, routed to regardless of global priority

	quoteCache   *QuoteCache
	historyCache *HistoryCache
}

// NewPool builds a pool from a source list and config priority
// overrides. usSourceID, if non-empty and present in sources, becomes
// the dedicated US-quote/index source (§4.1).
func NewPool(sources []Source, priorityOverrides map[string]int, disabledIDs map[string]bool, usSourceID string, log zerolog.Logger) *Pool {
	p := &Pool{
		log:          log.With().Str("component", "fetcher-pool").Logger(),
		quoteCache:   NewQuoteCache(60 * time.Second),
		historyCache: NewHistoryCache(6 * time.Hour),
	}

	for _, s := range sources {
		eff := s.Priority()
		if override, ok := priorityOverrides[s.ID()]; ok {
			eff = override
		}
		rs := &registeredSource{
			source:            s,
			breaker:           NewCircuitBreaker(3, 10*time.Minute),
			effectivePriority: eff,
			disabled:          disabledIDs[s.ID()],
		}
		p.sources = append(p.sources, rs)
		if s.ID() == usSourceID {
			p.usSource = s
		}
	}

	sort.SliceStable(p.sources, func(i, j int) bool {
		return p.sources[i].effectivePriority < p.sources[j].effectivePriority
	})

	return p
}

// candidatesFor returns the enabled, market-supporting sources in
// priority order.
func (p *Pool) candidatesFor(m domain.Market) []*registeredSource {
	var out []*registeredSource
	for _, rs := range p.sources {
		if rs.disabled {
			continue
		}
		if !rs.source.SupportsMarket(m) {
			continue
		}
		out = append(out, rs)
	}
	return out
}

// GetHistory returns candle history for ticker, honoring the
// dedicated US-quote routing rule, priority fallback, cache, and
// circuit breaker.
func (p *Pool) GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error) {
	if cached, ok := p.historyCache.Get(ticker, days); ok {
		return cached, nil
	}

	market := domain.InferMarket(ticker)
	dispatchTicker := ticker
	var candidates []*registeredSource

	if market == domain.MarketUS && p.usSource != nil {
		dispatchTicker = domain.ResolveUSIndexSymbol(ticker)
		candidates = []*registeredSource{{source: p.usSource, breaker: p.breakerFor(p.usSource)}}
	} else {
		candidates = p.candidatesFor(market)
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("history for %s: %w", ticker, ErrMarketUnsupported)
	}

	for _, rs := range candidates {
		if !rs.breaker.Allow() {
			continue
		}
		candles, err := rs.source.GetHistory(ctx, dispatchTicker, days)
		if err != nil {
			rs.breaker.RecordFailure()
			p.log.Warn().Str("source", rs.source.ID()).Str("ticker", ticker).Err(err).Msg("history fetch failed")
			continue
		}
		if !monotonicCandles(candles) {
			rs.breaker.RecordFailure()
			p.log.Warn().Str("source", rs.source.ID()).Str("ticker", ticker).Msg("malformed candle series, treated as failure")
			continue
		}
		rs.breaker.RecordSuccess()
		p.historyCache.Set(ticker, days, candles)
		return candles, nil
	}

	return nil, fmt.Errorf("history for %s: %w", ticker, ErrAllSourcesFailed)
}

// GetRealtime returns a realtime quote for ticker, falling back
// through priority-ordered sources.
func (p *Pool) GetRealtime(ctx context.Context, ticker string) (domain.Quote, error) {
	if q, ok := p.quoteCache.Get(ticker); ok {
		return q, nil
	}

	market := domain.InferMarket(ticker)
	dispatchTicker := ticker
	var candidates []*registeredSource

	if market == domain.MarketUS && p.usSource != nil {
		dispatchTicker = domain.ResolveUSIndexSymbol(ticker)
		candidates = []*registeredSource{{source: p.usSource, breaker: p.breakerFor(p.usSource)}}
	} else {
		candidates = p.candidatesFor(market)
	}

	if len(candidates) == 0 {
		return domain.Quote{}, fmt.Errorf("realtime for %s: %w", ticker, ErrMarketUnsupported)
	}

	for _, rs := range candidates {
		if !rs.breaker.Allow() {
			continue
		}
		q, err := rs.source.GetRealtime(ctx, dispatchTicker)
		if err != nil {
			rs.breaker.RecordFailure()
			p.log.Warn().Str("source", rs.source.ID()).Str("ticker", ticker).Err(err).Msg("realtime fetch failed")
			continue
		}
		rs.breaker.RecordSuccess()
		p.quoteCache.Set(ticker, q)
		return q, nil
	}

	return domain.Quote{}, fmt.Errorf("realtime for %s: %w", ticker, ErrAllSourcesFailed)
}

// GetName resolves a human-readable name for ticker.
func (p *Pool) GetName(ctx context.Context, ticker string) (string, error) {
	market := domain.InferMarket(ticker)
	candidates := p.candidatesFor(market)
	if len(candidates) == 0 {
		return "", fmt.Errorf("name for %s: %w", ticker, ErrMarketUnsupported)
	}
	for _, rs := range candidates {
		if !rs.breaker.Allow() {
			continue
		}
		name, err := rs.source.GetName(ctx, ticker)
		if err != nil {
			rs.breaker.RecordFailure()
			continue
		}
		rs.breaker.RecordSuccess()
		return name, nil
	}
	return "", fmt.Errorf("name for %s: %w", ticker, ErrAllSourcesFailed)
}

// PrefetchRealtimeBatch fetches quotes for many tickers in as few
// round trips as possible, using BatchRealtimeSource where available.
func (p *Pool) PrefetchRealtimeBatch(ctx context.Context, tickers []string) {
	byMarket := map[domain.Market][]string{}
	for _, t := range tickers {
		if _, ok := p.quoteCache.Get(t); ok {
			continue
		}
		m := domain.InferMarket(t)
		byMarket[m] = append(byMarket[m], t)
	}

	for market, group := range byMarket {
		for _, rs := range p.candidatesFor(market) {
			batchSrc, ok := rs.source.(BatchRealtimeSource)
			if !ok || !rs.breaker.Allow() {
				continue
			}
			quotes, err := batchSrc.GetRealtimeBatch(ctx, group)
			if err != nil {
				rs.breaker.RecordFailure()
				continue
			}
			rs.breaker.RecordSuccess()
			for ticker, q := range quotes {
				p.quoteCache.Set(ticker, q)
			}
			break
		}
	}
}

func (p *Pool) breakerFor(s Source) *CircuitBreaker {
	for _, rs := range p.sources {
		if rs.source == s {
			return rs.breaker
		}
	}
	return NewCircuitBreaker(3, 10*time.Minute)
}

func monotonicCandles(candles []domain.Candle) bool {
	for i := 1; i < len(candles); i++ {
		if !candles[i].Date.After(candles[i-1].Date) {
			return false
		}
	}
	return true
}
