package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/zhstock/dsa/internal/db"
)

// BacktestOutcome is the hit/miss verdict of one backtest evaluation.
type BacktestOutcome string

const (
	OutcomeHit   BacktestOutcome = "hit"
	OutcomeMiss  BacktestOutcome = "miss"
	OutcomeOpen  BacktestOutcome = "open" // not yet resolved by subsequent candles
)

// BacktestResult is one row of the backtest_results table (§6,
// supplemented per SPEC_FULL.md section C — gives engine_version an
// actual writer).
type BacktestResult struct {
	ID            int64
	RecordID      int64
	Ticker        string
	EngineVersion string
	Outcome       BacktestOutcome
	EvaluatedAt   time.Time
	Notes         string
}

// BacktestRepo persists backtest_results rows.
type BacktestRepo struct {
	db *db.DB
}

// NewBacktestRepo constructs a BacktestRepo.
func NewBacktestRepo(d *db.DB) *BacktestRepo { return &BacktestRepo{db: d} }

// Save inserts one backtest result.
func (r *BacktestRepo) Save(ctx context.Context, res BacktestResult) (int64, error) {
	out, err := r.db.ExecContext(ctx, `
		INSERT INTO backtest_results (record_id, ticker, engine_version, outcome, evaluated_at, notes)
		VALUES (?,?,?,?,?,?)`,
		res.RecordID, res.Ticker, res.EngineVersion, string(res.Outcome),
		res.EvaluatedAt.Format(time.RFC3339), res.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("insert backtest_results: %w", err)
	}
	return out.LastInsertId()
}

// ByTicker lists backtest results for a ticker, newest first.
func (r *BacktestRepo) ByTicker(ctx context.Context, ticker string, limit int) ([]BacktestResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, record_id, ticker, engine_version, outcome, evaluated_at, notes
		FROM backtest_results WHERE ticker = ? ORDER BY evaluated_at DESC LIMIT ?`, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("list backtest_results: %w", err)
	}
	defer rows.Close()

	var out []BacktestResult
	for rows.Next() {
		var res BacktestResult
		var evaluatedAt string
		if err := rows.Scan(&res.ID, &res.RecordID, &res.Ticker, &res.EngineVersion, &res.Outcome, &evaluatedAt, &res.Notes); err != nil {
			return nil, fmt.Errorf("scan backtest_results: %w", err)
		}
		res.EvaluatedAt, _ = time.Parse(time.RFC3339, evaluatedAt)
		out = append(out, res)
	}
	return out, rows.Err()
}
