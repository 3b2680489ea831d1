package sources

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zhstock/dsa/internal/domain"
)

// AsiaQuoteSource serves both A-share and Hong Kong tickers through a
// single vendor endpoint that multiplexes on the exchange suffix the
// vendor API expects (SH/SZ for A-shares, HK for Hong Kong).
type AsiaQuoteSource struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	priority   int
}

// NewAsiaQuoteSource builds the shared A-share/HK adapter at the
// given priority (lower runs first in the pool's fallback order).
func NewAsiaQuoteSource(baseURL, apiKey string, priority int) *AsiaQuoteSource {
	return &AsiaQuoteSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		priority:   priority,
	}
}

func (s *AsiaQuoteSource) ID() string    { return "asia-primary" }
func (s *AsiaQuoteSource) Priority() int { return s.priority }

func (s *AsiaQuoteSource) SupportsMarket(m domain.Market) bool {
	return m == domain.MarketAShare || m == domain.MarketHK
}

func (s *AsiaQuoteSource) vendorSymbol(ticker string, m domain.Market) string {
	switch m {
	case domain.MarketHK:
		return "HK:" + ticker
	case domain.MarketAShare:
		if len(ticker) == 6 && ticker[0] == '6' {
			return ticker + ".SH"
		}
		return ticker + ".SZ"
	default:
		return ticker
	}
}

func (s *AsiaQuoteSource) GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error) {
	market := domain.InferMarket(ticker)
	symbol := s.vendorSymbol(ticker, market)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/kline?symbol=%s&days=%d&key=%s", s.baseURL, symbol, days, s.apiKey), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asia source: unexpected status %d", resp.StatusCode)
	}
	return decodeCandles(resp.Body)
}

func (s *AsiaQuoteSource) GetRealtime(ctx context.Context, ticker string) (domain.Quote, error) {
	market := domain.InferMarket(ticker)
	symbol := s.vendorSymbol(ticker, market)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/quote?symbol=%s&key=%s", s.baseURL, symbol, s.apiKey), nil)
	if err != nil {
		return domain.Quote{}, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Quote{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Quote{}, fmt.Errorf("asia source: unexpected status %d", resp.StatusCode)
	}
	q, err := decodeQuote(resp.Body)
	if err != nil {
		return domain.Quote{}, err
	}
	q.Ticker = ticker
	q.SourceID = s.ID()
	return q, nil
}

// GetRealtimeBatch satisfies fetcher.BatchRealtimeSource by issuing
// one request per ticker; the vendor this adapter wraps has no native
// batch endpoint for mixed A-share/HK symbols.
func (s *AsiaQuoteSource) GetRealtimeBatch(ctx context.Context, tickers []string) (map[string]domain.Quote, error) {
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

func (s *AsiaQuoteSource) GetName(ctx context.Context, ticker string) (string, error) {
	market := domain.InferMarket(ticker)
	symbol := s.vendorSymbol(ticker, market)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/profile?symbol=%s&key=%s", s.baseURL, symbol, s.apiKey), nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asia source: unexpected status %d", resp.StatusCode)
	}
	return decodeName(resp.Body)
}
