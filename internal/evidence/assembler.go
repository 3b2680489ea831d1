// Package evidence is the Context Assembler (C7): merges history,
// realtime quote, technicals, and news into one EvidenceBundle sized
// to fit the LLM's context budget, truncating the largest optional
// fields first when oversize.
package evidence

import (
	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/indicators"
)

// Budget bounds how large each optional field of the bundle may be
// before it gets truncated, in element counts (not bytes — the LLM
// consumes structured fields, not raw prompt text).
type Budget struct {
	MaxCandles  int
	MaxNewsItems int
}

// DefaultBudget matches the values the pipeline uses absent an
// explicit override.
var DefaultBudget = Budget{MaxCandles: 60, MaxNewsItems: 15}

// Assemble merges the fan-out results (§4.5 step 2-3) into one bundle,
// applying size budgets and recording which fields were truncated.
func Assemble(
	ticker, name string,
	market domain.Market,
	candles []domain.Candle,
	quote *domain.Quote,
	news domain.NewsIntel,
	previous *domain.AnalysisReportSummary,
	intradayEnabled bool,
	budget Budget,
) domain.EvidenceBundle {
	var truncated []string

	snapshot := indicators.Snapshot(candles, quote, intradayEnabled)

	workingCandles := candles
	if budget.MaxCandles > 0 && len(workingCandles) > budget.MaxCandles {
		workingCandles = workingCandles[len(workingCandles)-budget.MaxCandles:]
		truncated = append(truncated, "candles")
	}

	workingNews := news
	if budget.MaxNewsItems > 0 && len(workingNews.Items) > budget.MaxNewsItems {
		workingNews.Items = workingNews.Items[:budget.MaxNewsItems]
		truncated = append(truncated, "news.items")
	}

	return domain.EvidenceBundle{
		Ticker:         ticker,
		Name:           name,
		Market:         market,
		Quote:          quote,
		Candles:        workingCandles,
		Technicals:     snapshot,
		News:           workingNews,
		PreviousReport: previous,
		Truncated:      truncated,
	}
}
