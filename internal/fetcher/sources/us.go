// Package sources holds concrete Source adapters for the fetcher pool.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zhstock/dsa/internal/domain"
)

// USQuoteSource is the dedicated US-market source (§4.1): every US
// ticker and index alias routes here regardless of the pool's general
// priority ordering, since US symbols and index aliases need the
// vendor-specific quote endpoint this adapter wraps.
type USQuoteSource struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewUSQuoteSource builds the dedicated US source against baseURL
// (vendor endpoint) using apiKey for auth.
func NewUSQuoteSource(baseURL, apiKey string) *USQuoteSource {
	return &USQuoteSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

func (s *USQuoteSource) ID() string       { return "us-primary" }
func (s *USQuoteSource) Priority() int    { return 0 }
func (s *USQuoteSource) SupportsMarket(m domain.Market) bool {
	return m == domain.MarketUS
}

// GetHistory fetches daily candles for a US ticker or resolved index
// symbol over the trailing `days` sessions.
func (s *USQuoteSource) GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error) {
	resolved := domain.ResolveUSIndexSymbol(ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/history?symbol=%s&days=%d&token=%s", s.baseURL, resolved, days, s.apiKey), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("us source: unexpected status %d", resp.StatusCode)
	}
	return decodeCandles(resp.Body)
}

// GetRealtime fetches the current quote for a US ticker or index alias.
func (s *USQuoteSource) GetRealtime(ctx context.Context, ticker string) (domain.Quote, error) {
	resolved := domain.ResolveUSIndexSymbol(ticker)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/quote?symbol=%s&token=%s", s.baseURL, resolved, s.apiKey), nil)
	if err != nil {
		return domain.Quote{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, fmt.Errorf("us source: unexpected status %d", resp.StatusCode)
	}
	q, err := decodeQuote(resp.Body)
	if err != nil {
		return domain.Quote{}, err
	}
	q.Ticker = ticker
	q.SourceID = s.ID()
	return q, nil
}

// GetRealtimeBatch fetches quotes for many US tickers with one
// GetRealtime request per ticker, skipping tickers that fail,
// satisfying fetcher.BatchRealtimeSource.
func (s *USQuoteSource) GetRealtimeBatch(ctx context.Context, tickers []string) (map[string]domain.Quote, error) {
	out := make(map[string]domain.Quote, len(tickers))
	for _, t := range tickers {
		q, err := s.GetRealtime(ctx, t)
		if err != nil {
			continue
		}
		out[t] = q
	}
	return out, nil
}

// GetName resolves a US ticker's display name.
func (s *USQuoteSource) GetName(ctx context.Context, ticker string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/profile?symbol=%s&token=%s", s.baseURL, ticker, s.apiKey), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("us source: unexpected status %d", resp.StatusCode)
	}
	return decodeName(resp.Body)
}
