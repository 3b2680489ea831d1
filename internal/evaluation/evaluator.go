// Package evaluation implements the backtest engine (supplemented
// feature, SPEC_FULL.md section C): it replays a persisted report's
// strategy price levels against subsequent candle data to compute a
// hit/miss outcome, and aggregates outcome statistics with gonum.
package evaluation

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/domain"
)

// EngineVersion is stamped onto every report and backtest row produced
// by this build. Per SPEC_FULL.md §D.2, invalidating prior backtests
// on a version bump is an operator decision, not automatic.
const EngineVersion = "dsa-go/1"

// Evaluate checks whether subsequent candles touched the report's
// take-profit or stop-loss level first, and records the outcome.
func Evaluate(ctx context.Context, repo_ *repo.BacktestRepo, rep domain.AnalysisReport, following []domain.Candle) (repo.BacktestResult, error) {
	outcome := repo.OutcomeOpen
	notes := "no strategy levels stated"

	if rep.Strategy.TakeProfit != nil || rep.Strategy.StopLoss != nil {
		for _, c := range following {
			if rep.Strategy.TakeProfit != nil && c.High >= *rep.Strategy.TakeProfit {
				outcome = repo.OutcomeHit
				notes = fmt.Sprintf("take-profit %.2f reached on %s", *rep.Strategy.TakeProfit, c.Date.Format("2006-01-02"))
				break
			}
			if rep.Strategy.StopLoss != nil && c.Low <= *rep.Strategy.StopLoss {
				outcome = repo.OutcomeMiss
				notes = fmt.Sprintf("stop-loss %.2f breached on %s", *rep.Strategy.StopLoss, c.Date.Format("2006-01-02"))
				break
			}
		}
	}

	res := repo.BacktestResult{
		RecordID:      rep.Meta.ID,
		Ticker:        rep.Meta.Ticker,
		EngineVersion: rep.Meta.EngineVersion,
		Outcome:       outcome,
		EvaluatedAt:   time.Now(),
		Notes:         notes,
	}
	id, err := repo_.Save(ctx, res)
	if err != nil {
		return repo.BacktestResult{}, err
	}
	res.ID = id
	return res, nil
}

// HitRate computes the fraction of resolved (non-open) backtests that
// hit their target, plus the standard deviation of the 0/1 outcome
// series — the only place gonum/stat's descriptive statistics are
// exercised outside the indicator engine.
func HitRate(results []repo.BacktestResult) (rate, stddev float64) {
	var outcomes []float64
	for _, r := range results {
		switch r.Outcome {
		case repo.OutcomeHit:
			outcomes = append(outcomes, 1)
		case repo.OutcomeMiss:
			outcomes = append(outcomes, 0)
		}
	}
	if len(outcomes) == 0 {
		return 0, 0
	}
	mean := stat.Mean(outcomes, nil)
	sd := stat.StdDev(outcomes, nil)
	return mean, sd
}
