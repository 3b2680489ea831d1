// Package repo holds the per-entity persistence repositories (C11).
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/domain"
)

// HistoryRepo persists and reads AnalysisReport rows.
type HistoryRepo struct {
	db *db.DB
}

// NewHistoryRepo constructs a HistoryRepo.
func NewHistoryRepo(d *db.DB) *HistoryRepo { return &HistoryRepo{db: d} }

// Save inserts a report and returns the database-assigned primary key,
// which callers use as the record_id for the subsequent news write
// (§9 "cyclic report <-> news relationship": write report, get id,
// write news referencing it — no cyclic structure needed).
func (r *HistoryRepo) Save(ctx context.Context, rep domain.AnalysisReport) (int64, error) {
	alerts, err := json.Marshal(rep.Summary.RiskAlerts)
	if err != nil {
		return 0, fmt.Errorf("marshal risk alerts: %w", err)
	}

	var id int64
	err = db.WithTransaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_history
				(query_id, ticker, name, created_at, current_price, change_pct,
				 report_type, engine_version, sentiment_score, analysis_summary,
				 operation_advice, trend_prediction, risk_alerts,
				 ideal_buy, secondary_buy, stop_loss, take_profit,
				 raw_result, context_snapshot)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			rep.Meta.QueryID, rep.Meta.Ticker, rep.Meta.Name, rep.Meta.CreatedAt.Format(time.RFC3339),
			rep.Meta.CurrentPrice, rep.Meta.ChangePct, rep.Meta.ReportType, rep.Meta.EngineVersion,
			rep.Summary.SentimentScore, rep.Summary.AnalysisSummary, rep.Summary.OperationAdvice,
			rep.Summary.TrendPrediction, string(alerts),
			rep.Strategy.IdealBuy, rep.Strategy.SecondaryBuy, rep.Strategy.StopLoss, rep.Strategy.TakeProfit,
			rep.Details.RawResult, rep.Details.ContextSnapshot,
		)
		if err != nil {
			return fmt.Errorf("insert analysis_history: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ByID fetches one report by its primary key.
func (r *HistoryRepo) ByID(ctx context.Context, id int64) (*domain.AnalysisReport, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, query_id, ticker, name, created_at, current_price, change_pct,
		       report_type, engine_version, sentiment_score, analysis_summary,
		       operation_advice, trend_prediction, risk_alerts,
		       ideal_buy, secondary_buy, stop_loss, take_profit,
		       raw_result, context_snapshot
		FROM analysis_history WHERE id = ?`, id)
	return scanReport(row)
}

// List returns a page of reports, optionally filtered by ticker,
// ordered newest-first.
func (r *HistoryRepo) List(ctx context.Context, ticker string, limit, offset int) ([]domain.AnalysisReport, error) {
	q := `SELECT id, query_id, ticker, name, created_at, current_price, change_pct,
		       report_type, engine_version, sentiment_score, analysis_summary,
		       operation_advice, trend_prediction, risk_alerts,
		       ideal_buy, secondary_buy, stop_loss, take_profit,
		       raw_result, context_snapshot
		FROM analysis_history`
	args := []interface{}{}
	if ticker != "" {
		q += " WHERE ticker = ?"
		args = append(args, ticker)
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list analysis_history: %w", err)
	}
	defer rows.Close()

	var out []domain.AnalysisReport
	for rows.Next() {
		rep, err := scanReportRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*domain.AnalysisReport, error) {
	return scanInto(row)
}

func scanReportRows(rows *sql.Rows) (*domain.AnalysisReport, error) {
	return scanInto(rows)
}

func scanInto(s rowScanner) (*domain.AnalysisReport, error) {
	var rep domain.AnalysisReport
	var createdAt, alerts string
	var idealBuy, secondaryBuy, stopLoss, takeProfit sql.NullFloat64

	err := s.Scan(
		&rep.Meta.ID, &rep.Meta.QueryID, &rep.Meta.Ticker, &rep.Meta.Name, &createdAt,
		&rep.Meta.CurrentPrice, &rep.Meta.ChangePct, &rep.Meta.ReportType, &rep.Meta.EngineVersion,
		&rep.Summary.SentimentScore, &rep.Summary.AnalysisSummary, &rep.Summary.OperationAdvice,
		&rep.Summary.TrendPrediction, &alerts,
		&idealBuy, &secondaryBuy, &stopLoss, &takeProfit,
		&rep.Details.RawResult, &rep.Details.ContextSnapshot,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis_history: %w", err)
	}

	rep.Meta.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	_ = json.Unmarshal([]byte(alerts), &rep.Summary.RiskAlerts)
	if idealBuy.Valid {
		rep.Strategy.IdealBuy = &idealBuy.Float64
	}
	if secondaryBuy.Valid {
		rep.Strategy.SecondaryBuy = &secondaryBuy.Float64
	}
	if stopLoss.Valid {
		rep.Strategy.StopLoss = &stopLoss.Float64
	}
	if takeProfit.Valid {
		rep.Strategy.TakeProfit = &takeProfit.Float64
	}
	return &rep, nil
}

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = sql.ErrNoRows

// BackfillName updates a persisted report's name, used when the LLM
// response contains a more authoritative stock_name than the
// placeholder used during the run (§4.5 step 7).
func (r *HistoryRepo) BackfillName(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE analysis_history SET name = ? WHERE id = ?`, name, id)
	return err
}
