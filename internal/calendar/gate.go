// Package calendar implements the Calendar Gate (C2): a pure per-market
// trading-day decision, with no I/O and no mutable state beyond the
// static holiday tables below.
package calendar

import (
	"time"

	"github.com/zhstock/dsa/internal/domain"
)

// Decision is the gate's verdict for one ticker.
type Decision string

const (
	Run  Decision = "run"
	Skip Decision = "skip"
)

// holidaySet is a per-market set of fixed-date holidays, "MM-DD" keyed.
// This is a pragmatic subset (observed statutory holidays); a real
// deployment would load a data-driven exchange calendar, but the gate's
// contract (a pure function of date+market+calendar) does not require it.
type holidaySet map[string]bool

var holidays = map[domain.Market]holidaySet{
	domain.MarketAShare: {
		"01-01": true, "05-01": true, "10-01": true, "10-02": true, "10-03": true,
	},
	domain.MarketHK: {
		"01-01": true, "05-01": true, "12-25": true, "12-26": true,
	},
	domain.MarketUS: {
		"01-01": true, "07-04": true, "12-25": true, "11-11": true,
	},
}

// IsTradingDay reports whether date is a trading day for market. It is
// a pure function: same inputs always produce the same output, which
// is what makes it property-testable across a 10-year span.
func IsTradingDay(date time.Time, market domain.Market) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	key := date.Format("01-02")
	if set, ok := holidays[market]; ok && set[key] {
		return false
	}
	return true
}

// Gate decides whether to run the pipeline for ticker today, given its
// market and whether the operator forced a run.
func Gate(now time.Time, market domain.Market, forceRun bool, checkEnabled bool) Decision {
	if forceRun || !checkEnabled {
		return Run
	}
	if IsTradingDay(now, market) {
		return Run
	}
	return Skip
}

// BatchPlan partitions a list of canonical tickers into those that
// should run today and those that should be skipped, given each
// ticker's market. If every ticker in the batch is skipped, the whole
// batch is skipped: no data fetch, no notification (§4.8).
type BatchPlan struct {
	Run  []string
	Skip []string
}

// PlanBatch applies the gate to every ticker, keyed by its market.
func PlanBatch(now time.Time, tickers []string, marketOf func(string) domain.Market, forceRun bool, checkEnabled bool) BatchPlan {
	plan := BatchPlan{}
	for _, t := range tickers {
		m := marketOf(t)
		if Gate(now, m, forceRun, checkEnabled) == Run {
			plan.Run = append(plan.Run, t)
		} else {
			plan.Skip = append(plan.Skip, t)
		}
	}
	return plan
}

// AllSkipped reports whether the batch plan skipped every ticker.
func (p BatchPlan) AllSkipped() bool {
	return len(p.Run) == 0 && len(p.Skip) > 0
}
