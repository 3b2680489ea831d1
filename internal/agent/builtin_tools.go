package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/indicators"
)

// HistorySource is the subset of fetcher.Pool the agent's builtin
// tools need; kept as a narrow interface so tests can fake it without
// constructing a real Pool.
type HistorySource interface {
	GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error)
	GetRealtime(ctx context.Context, ticker string) (domain.Quote, error)
}

// NewsSource is the subset of news.Service the agent's
// search_stock_news tool needs.
type NewsSource interface {
	Fetch(ctx context.Context, ticker, displayName string, isETF bool) domain.NewsIntel
}

// SectorRanker provides the get_sector_rankings tool's data; no
// single corpus file owns sector ranking, so this stays a narrow
// interface the caller wires to whatever ranking source it has.
type SectorRanker interface {
	SectorRank(ctx context.Context, ticker string) (rank int, total int, err error)
}

type historyArgs struct {
	Ticker string `json:"ticker"`
	Days   int    `json:"days"`
}

type tickerArgs struct {
	Ticker string `json:"ticker"`
}

// RegisterBuiltinTools wires get_daily_history, get_realtime_quote,
// analyze_trend, get_sector_rankings, and search_stock_news (§4.6)
// into reg. get_sector_rankings is registered only when ranker is
// non-nil.
func RegisterBuiltinTools(reg *ToolRegistry, history HistorySource, newsSvc NewsSource, ranker SectorRanker) {
	reg.Register(Tool{
		Name:        "get_daily_history",
		Description: "Fetch daily OHLCV candles for a ticker over a trailing window.",
		Parameters:  mustSchema(`{"type":"object","properties":{"ticker":{"type":"string"},"days":{"type":"integer"}},"required":["ticker"]}`),
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args historyArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("get_daily_history: %w", err)
			}
			if args.Days <= 0 {
				args.Days = 60
			}
			candles, err := history.GetHistory(ctx, args.Ticker, args.Days)
			if err != nil {
				return "", err
			}
			return encodeResult(candles)
		},
	})

	reg.Register(Tool{
		Name:        "get_realtime_quote",
		Description: "Fetch the current realtime quote for a ticker.",
		Parameters:  mustSchema(`{"type":"object","properties":{"ticker":{"type":"string"}},"required":["ticker"]}`),
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args tickerArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("get_realtime_quote: %w", err)
			}
			q, err := history.GetRealtime(ctx, args.Ticker)
			if err != nil {
				return "", err
			}
			return encodeResult(q)
		},
	})

	reg.Register(Tool{
		Name:        "analyze_trend",
		Description: "Compute technical indicators (MA/MACD/RSI/bias/trend-strength) over a ticker's recent history.",
		Parameters:  mustSchema(`{"type":"object","properties":{"ticker":{"type":"string"},"days":{"type":"integer"}},"required":["ticker"]}`),
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args historyArgs
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("analyze_trend: %w", err)
			}
			if args.Days <= 0 {
				args.Days = 60
			}
			candles, err := history.GetHistory(ctx, args.Ticker, args.Days)
			if err != nil {
				return "", err
			}
			quote, err := history.GetRealtime(ctx, args.Ticker)
			var q *domain.Quote
			if err == nil {
				q = &quote
			}
			snap := indicators.Snapshot(candles, q, true)
			return encodeResult(snap)
		},
	})

	if ranker != nil {
		reg.Register(Tool{
			Name:        "get_sector_rankings",
			Description: "Get the ticker's sector rank out of all tracked peers.",
			Parameters:  mustSchema(`{"type":"object","properties":{"ticker":{"type":"string"}},"required":["ticker"]}`),
			Handler: func(ctx context.Context, raw string) (string, error) {
				var args tickerArgs
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return "", fmt.Errorf("get_sector_rankings: %w", err)
				}
				rank, total, err := ranker.SectorRank(ctx, args.Ticker)
				if err != nil {
					return "", err
				}
				return encodeResult(map[string]int{"rank": rank, "total": total})
			},
		})
	}

	reg.Register(Tool{
		Name:        "search_stock_news",
		Description: "Search ranked, deduplicated news for a ticker.",
		Parameters:  mustSchema(`{"type":"object","properties":{"ticker":{"type":"string"},"display_name":{"type":"string"},"is_etf":{"type":"boolean"}},"required":["ticker"]}`),
		Handler: func(ctx context.Context, raw string) (string, error) {
			var args struct {
				Ticker      string `json:"ticker"`
				DisplayName string `json:"display_name"`
				IsETF       bool   `json:"is_etf"`
			}
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return "", fmt.Errorf("search_stock_news: %w", err)
			}
			intel := newsSvc.Fetch(ctx, args.Ticker, args.DisplayName, args.IsETF)
			return encodeResult(intel)
		},
	})
}

func mustSchema(s string) json.RawMessage { return json.RawMessage(s) }

func encodeResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("agent: encode tool result: %w", err)
	}
	return string(b), nil
}
