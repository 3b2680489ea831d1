package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zhstock/dsa/internal/domain"
)

func TestAssemble_TruncatesOversizeCandlesAndNews(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]domain.Candle, 100)
	for i := range candles {
		candles[i] = domain.Candle{Date: base.AddDate(0, 0, i), Close: 10}
	}
	news := domain.NewsIntel{Items: make([]domain.NewsItem, 20)}

	bundle := Assemble("600000", "Test Co", domain.MarketAShare, candles, nil, news, nil, false, Budget{MaxCandles: 60, MaxNewsItems: 15})

	assert.Len(t, bundle.Candles, 60)
	assert.Len(t, bundle.News.Items, 15)
	assert.Contains(t, bundle.Truncated, "candles")
	assert.Contains(t, bundle.Truncated, "news.items")
}

func TestAssemble_NoTruncationWhenWithinBudget(t *testing.T) {
	candles := []domain.Candle{{Close: 10}}
	bundle := Assemble("600000", "Test Co", domain.MarketAShare, candles, nil, domain.NewsIntel{}, nil, false, DefaultBudget)
	assert.Empty(t, bundle.Truncated)
}
