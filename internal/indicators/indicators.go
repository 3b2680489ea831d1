// Package indicators implements the Technical Indicator Engine (C6):
// pure functions over a candle series, no I/O.
package indicators

import (
	"time"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"

	"github.com/zhstock/dsa/internal/domain"
)

// isNaN avoids importing math for a single check, matching the
// teacher's formulas package convention.
func isNaN(f float64) bool {
	return f != f
}

// MA computes a simple moving average of the given length. Returns nil
// if there is not enough data.
func MA(closes []float64, length int) *float64 {
	if len(closes) < length {
		return nil
	}
	out := talib.Sma(closes, length)
	if len(out) == 0 || isNaN(out[len(out)-1]) {
		return nil
	}
	v := out[len(out)-1]
	return &v
}

// RSI computes the Relative Strength Index over length periods
// (typically 14). Returns nil if there is not enough data.
func RSI(closes []float64, length int) *float64 {
	if len(closes) < length+1 {
		return nil
	}
	out := talib.Rsi(closes, length)
	if len(out) == 0 || isNaN(out[len(out)-1]) {
		return nil
	}
	v := out[len(out)-1]
	return &v
}

// MACDResult holds the three MACD series' latest values.
type MACDResult struct {
	Line, Signal, Hist *float64
}

// MACD computes MACD(fast, slow, signal) — typically (12, 26, 9).
func MACD(closes []float64, fast, slow, signalPeriod int) MACDResult {
	if len(closes) < slow+signalPeriod {
		return MACDResult{}
	}
	line, signal, hist := talib.Macd(closes, fast, slow, signalPeriod)
	if len(line) == 0 {
		return MACDResult{}
	}
	i := len(line) - 1
	var res MACDResult
	if !isNaN(line[i]) {
		v := line[i]
		res.Line = &v
	}
	if !isNaN(signal[i]) {
		v := signal[i]
		res.Signal = &v
	}
	if !isNaN(hist[i]) {
		v := hist[i]
		res.Hist = &v
	}
	return res
}

// Bias computes the percentage deviation of the latest close from its
// N-day moving average: (close - MA_N) / MA_N * 100. Returns nil when
// the moving average is unavailable.
func Bias(closes []float64, length int) *float64 {
	ma := MA(closes, length)
	if ma == nil || *ma == 0 {
		return nil
	}
	last := closes[len(closes)-1]
	v := (last - *ma) / *ma * 100
	return &v
}

// BullishAlignment reports MA5 > MA10 > MA20 at the most recent bar.
func BullishAlignment(ma5, ma10, ma20 *float64) bool {
	if ma5 == nil || ma10 == nil || ma20 == nil {
		return false
	}
	return *ma5 > *ma10 && *ma10 > *ma20
}

// TrendStrength scores 0..100 using the R^2 of a linear regression of
// the last `window` closes against their index; the score carries no
// direction (see the note below). This is the only consumer of gonum's
// stat package in this engine.
func TrendStrength(closes []float64, window int) float64 {
	if len(closes) < window || window < 3 {
		return 0
	}
	slice := closes[len(closes)-window:]
	xs := make([]float64, window)
	for i := range xs {
		xs[i] = float64(i)
	}
	r := stat.Correlation(xs, slice, nil)
	// R^2 as a 0..100 strength score; direction is carried separately
	// by BullishAlignment, not by this magnitude.
	strength := r * r * 100
	if strength < 0 {
		strength = 0
	}
	if strength > 100 {
		strength = 100
	}
	return strength
}

// appendVirtualCandle returns closes with one synthetic bar appended
// whose close equals livePrice, implementing the intraday virtual
// candle rule (§4.4). Only the close series is extended; the
// indicators here read closes alone, so the synthetic bar has no
// open/high/low.
func appendVirtualCandle(closes []float64, livePrice float64) []float64 {
	out := make([]float64, len(closes)+1)
	copy(out, closes)
	out[len(out)-1] = livePrice
	return out
}

// Snapshot computes the full TechnicalSnapshot for a candle series,
// optionally folding in a live quote as a virtual intraday candle.
func Snapshot(candles []domain.Candle, quote *domain.Quote, intradayEnabled bool) domain.TechnicalSnapshot {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	snap := domain.TechnicalSnapshot{}

	if intradayEnabled && quote != nil && len(candles) > 0 && isToday(quote.Timestamp) {
		closes = appendVirtualCandle(closes, quote.Price)
		snap.IntradayVirtualBar = true
	}

	snap.MA5 = MA(closes, 5)
	snap.MA10 = MA(closes, 10)
	snap.MA20 = MA(closes, 20)
	macd := MACD(closes, 12, 26, 9)
	snap.MACDLine, snap.MACDSignal, snap.MACDHist = macd.Line, macd.Signal, macd.Hist
	snap.RSI14 = RSI(closes, 14)
	snap.Bias20Pct = Bias(closes, 20)
	snap.BullishAlignment = BullishAlignment(snap.MA5, snap.MA10, snap.MA20)
	snap.TrendStrength = TrendStrength(closes, 20)
	snap.StrongTrend = snap.BullishAlignment && snap.TrendStrength >= 70

	return snap
}

// EffectiveBiasThreshold widens the threshold 1.5x under the
// strong-trend rule (§4.4).
func EffectiveBiasThreshold(base float64, snap domain.TechnicalSnapshot) float64 {
	if snap.StrongTrend {
		return base * 1.5
	}
	return base
}

// isToday reports whether t falls on the current calendar day, in t's
// own location. Used to gate the intraday virtual-candle rule.
func isToday(t time.Time) bool {
	now := time.Now().In(t.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
