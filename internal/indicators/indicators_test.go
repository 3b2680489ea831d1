package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zhstock/dsa/internal/domain"
)

func seriesOf(n int, start float64, step float64) []domain.Candle {
	out := make([]domain.Candle, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		out[i] = domain.Candle{Date: base.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return out
}

func TestMA_InsufficientDataReturnsNil(t *testing.T) {
	closes := []float64{1, 2, 3}
	assert.Nil(t, MA(closes, 5))
}

func TestSnapshot_BullishAlignmentOnUptrend(t *testing.T) {
	candles := seriesOf(40, 10, 0.5)
	snap := Snapshot(candles, nil, false)
	assert.NotNil(t, snap.MA5)
	assert.NotNil(t, snap.MA20)
	assert.True(t, snap.BullishAlignment, "steady uptrend should align MA5>MA10>MA20")
}

func TestSnapshot_IntradayVirtualCandleUsesLivePrice(t *testing.T) {
	candles := seriesOf(30, 10, 0.2)
	quote := &domain.Quote{Ticker: "600519", Price: 999, Timestamp: time.Now()}
	snap := Snapshot(candles, quote, true)
	assert.True(t, snap.IntradayVirtualBar)
}

func TestSnapshot_IntradayDisabledIgnoresQuote(t *testing.T) {
	candles := seriesOf(30, 10, 0.2)
	quote := &domain.Quote{Ticker: "600519", Price: 999, Timestamp: time.Now()}
	snap := Snapshot(candles, quote, false)
	assert.False(t, snap.IntradayVirtualBar)
}

func TestEffectiveBiasThreshold_WidensUnderStrongTrend(t *testing.T) {
	snap := domain.TechnicalSnapshot{StrongTrend: true}
	assert.Equal(t, 12.0, EffectiveBiasThreshold(8.0, snap))
	snap.StrongTrend = false
	assert.Equal(t, 8.0, EffectiveBiasThreshold(8.0, snap))
}
