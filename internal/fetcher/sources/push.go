package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/zhstock/dsa/internal/domain"
)

// PushQuoteSource is a supplemental realtime source (§4.1's "push
// feed" note) that maintains a single long-lived websocket connection
// to a vendor streaming endpoint and serves GetRealtime from an
// in-memory last-tick cache rather than issuing a request per call.
// It never implements GetHistory: history always falls through to the
// next source in the pool's priority list.
type PushQuoteSource struct {
	log zerolog.Logger
	url string

	mu   sync.RWMutex
	last map[string]domain.Quote

	subscribeMu sync.Mutex
	subscribed  map[string]bool
}

// NewPushQuoteSource builds an idle adapter; call Run to start the
// connection loop in a goroutine.
func NewPushQuoteSource(url string, log zerolog.Logger) *PushQuoteSource {
	return &PushQuoteSource{
		log:        log.With().Str("component", "push-quote-source").Logger(),
		url:        url,
		last:       make(map[string]domain.Quote),
		subscribed: make(map[string]bool),
	}
}

func (s *PushQuoteSource) ID() string    { return "push-realtime" }
func (s *PushQuoteSource) Priority() int { return 0 }

func (s *PushQuoteSource) SupportsMarket(m domain.Market) bool {
	return m == domain.MarketUS || m == domain.MarketAShare || m == domain.MarketHK
}

// tickMessage is the vendor's streamed quote-update shape.
type tickMessage struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Timestamp int64   `json:"t"`
}

type subscribeMessage struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols"`
}

// Run dials the streaming endpoint and reads ticks until ctx is
// canceled, reconnecting with a fixed backoff on disconnect. Intended
// to be started once in its own goroutine by the caller.
func (s *PushQuoteSource) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.connectAndRead(ctx); err != nil {
			s.log.Warn().Err(err).Msg("push feed disconnected, retrying")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *PushQuoteSource) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial push feed: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	s.subscribeMu.Lock()
	symbols := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		symbols = append(symbols, sym)
	}
	s.subscribeMu.Unlock()
	if len(symbols) > 0 {
		if err := wsjson.Write(ctx, conn, subscribeMessage{Action: "subscribe", Symbols: symbols}); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			return err
		}
		var tick tickMessage
		if err := json.Unmarshal(raw, &tick); err != nil {
			continue
		}
		s.mu.Lock()
		s.last[tick.Symbol] = domain.Quote{
			Ticker:    tick.Symbol,
			Price:     tick.Price,
			ChangePct: tick.ChangePct,
			Timestamp: time.Unix(tick.Timestamp, 0).UTC(),
			SourceID:  s.ID(),
		}
		s.mu.Unlock()
	}
}

// Subscribe registers tickers for push updates; takes effect on the
// next (re)connect.
func (s *PushQuoteSource) Subscribe(tickers ...string) {
	s.subscribeMu.Lock()
	defer s.subscribeMu.Unlock()
	for _, t := range tickers {
		s.subscribed[t] = true
	}
}

func (s *PushQuoteSource) GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error) {
	return nil, fmt.Errorf("push-realtime source does not serve history")
}

func (s *PushQuoteSource) GetRealtime(ctx context.Context, ticker string) (domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.last[ticker]
	if !ok {
		return domain.Quote{}, fmt.Errorf("push-realtime: no tick seen yet for %s", ticker)
	}
	if time.Since(q.Timestamp) > 2*time.Minute {
		return domain.Quote{}, fmt.Errorf("push-realtime: stale tick for %s", ticker)
	}
	return q, nil
}

func (s *PushQuoteSource) GetRealtimeBatch(ctx context.Context, tickers []string) (map[string]domain.Quote, error) {
	out := make(map[string]domain.Quote, len(tickers))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range tickers {
		q, ok := s.last[t]
		if !ok || time.Since(q.Timestamp) > 2*time.Minute {
			continue
		}
		out[t] = q
	}
	return out, nil
}

func (s *PushQuoteSource) GetName(ctx context.Context, ticker string) (string, error) {
	return "", fmt.Errorf("push-realtime source does not resolve names")
}
