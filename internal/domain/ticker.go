// Package domain holds the shared data model (§3 of the spec): tickers,
// candles, quotes, technical snapshots, news items, evidence bundles,
// analysis reports, and tasks.
package domain

import (
	"regexp"
	"strings"
)

// Market identifies a trading venue's calendar and routing family.
type Market string

const (
	MarketAShare Market = "ashare"
	MarketHK     Market = "hk"
	MarketUS     Market = "us"
	MarketUnknown Market = "unknown"
)

var (
	reAShare  = regexp.MustCompile(`^\d{6}$`)
	reHKDigit = regexp.MustCompile(`^\d{5}$`)
	reHKPrefixed = regexp.MustCompile(`^HK\d{4,5}$`)
	reUS      = regexp.MustCompile(`^[A-Z]{1,6}(\.[A-Z])?$`)
)

// usIndexAliases maps bare index tickers to the vendor symbol expected
// by the dedicated US-quote source.
var usIndexAliases = map[string]string{
	"SPX":  "^GSPC",
	"DJI":  "^DJI",
	"IXIC": "^IXIC",
	"NDX":  "^NDX",
}

// Canonical normalizes a raw ticker string to its canonical uppercase
// form. canonical(canonical(x)) == canonical(x) for all x.
func Canonical(raw string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))
	for strings.HasPrefix(t, "$") {
		t = strings.TrimSpace(strings.TrimPrefix(t, "$"))
	}
	return t
}

// InferMarket determines which market a canonical ticker belongs to.
func InferMarket(canonicalTicker string) Market {
	t := canonicalTicker
	switch {
	case reAShare.MatchString(t):
		return MarketAShare
	case reHKDigit.MatchString(t), reHKPrefixed.MatchString(t):
		return MarketHK
	case reUS.MatchString(t):
		return MarketUS
	default:
		return MarketUnknown
	}
}

// ResolveUSIndexSymbol maps a bare US index ticker (SPX, DJI, ...) to
// the vendor symbol the dedicated US-quote source expects. Returns the
// input unchanged if it is not a known index alias.
func ResolveUSIndexSymbol(canonicalTicker string) string {
	if sym, ok := usIndexAliases[canonicalTicker]; ok {
		return sym
	}
	return canonicalTicker
}
