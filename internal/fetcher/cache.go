package fetcher

import (
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zhstock/dsa/internal/domain"
)

// entry is a TTL-wrapped cache value, stored as its msgpack-encoded
// envelope so the cache can later be spilled to disk or shared across
// processes without a second encoding scheme (the pack's other TTL
// cache, exchangerate/client.go, persists to a repository; this one
// stays in-process but keeps the same envelope discipline).
type entry struct {
	payload   []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// QuoteCache is a concurrent-safe, TTL'd, ticker-keyed quote cache.
// Set overwrites unconditionally under the lock: the last writer wins,
// and no compare-and-set against an existing unexpired entry is done.
type QuoteCache struct {
	mu   sync.Mutex
	data map[string]entry
	ttl  time.Duration
}

// NewQuoteCache builds a cache with the given TTL (spec default 60s).
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &QuoteCache{data: make(map[string]entry), ttl: ttl}
}

// Get returns a cached quote for ticker if present and unexpired.
func (c *QuoteCache) Get(ticker string) (domain.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[ticker]
	if !ok || e.expired(time.Now()) {
		return domain.Quote{}, false
	}
	var q domain.Quote
	if err := msgpack.Unmarshal(e.payload, &q); err != nil {
		return domain.Quote{}, false
	}
	return q, true
}

// Set stores q under ticker with the cache's configured TTL.
func (c *QuoteCache) Set(ticker string, q domain.Quote) {
	payload, err := msgpack.Marshal(q)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[ticker] = entry{payload: payload, expiresAt: time.Now().Add(c.ttl)}
}

// historyKey identifies a cached candle slice by ticker and lookback window.
type historyKey struct {
	ticker string
	days   int
}

// HistoryCache caches candle slices per (ticker, lookback_days), with
// a TTL equal to the trading-session length (configurable; default
// matches one trading day).
type HistoryCache struct {
	mu   sync.Mutex
	data map[historyKey]entry
	ttl  time.Duration
}

// NewHistoryCache builds a history cache with the given TTL.
func NewHistoryCache(ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &HistoryCache{data: make(map[historyKey]entry), ttl: ttl}
}

// Get returns cached candles for (ticker, days) if present and unexpired.
func (c *HistoryCache) Get(ticker string, days int) ([]domain.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[historyKey{ticker, days}]
	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	var candles []domain.Candle
	if err := msgpack.Unmarshal(e.payload, &candles); err != nil {
		return nil, false
	}
	return candles, true
}

// Set stores candles under (ticker, days).
func (c *HistoryCache) Set(ticker string, days int, candles []domain.Candle) {
	payload, err := msgpack.Marshal(candles)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[historyKey{ticker, days}] = entry{payload: payload, expiresAt: time.Now().Add(c.ttl)}
}
