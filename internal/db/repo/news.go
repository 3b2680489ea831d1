package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/domain"
)

// NewsRepo persists the news_intel rows associated with one report.
type NewsRepo struct {
	db *db.DB
}

// NewNewsRepo constructs a NewsRepo.
func NewNewsRepo(d *db.DB) *NewsRepo { return &NewsRepo{db: d} }

// SaveForRecord writes every item of intel, referencing recordID
// (an analysis_history.id obtained from HistoryRepo.Save).
func (r *NewsRepo) SaveForRecord(ctx context.Context, recordID int64, ticker string, intel domain.NewsIntel) error {
	if len(intel.Items) == 0 {
		return nil
	}
	for _, item := range intel.Items {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO news_intel (record_id, ticker, title, snippet, url, published_at, source, fingerprint, relevance)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			recordID, ticker, item.Title, item.Snippet, item.URL,
			item.PublishedAt.Format(time.RFC3339), item.Source, item.Fingerprint, item.Relevance,
		)
		if err != nil {
			return fmt.Errorf("insert news_intel: %w", err)
		}
	}
	return nil
}

// ByRecordID returns the news items saved for one report.
func (r *NewsRepo) ByRecordID(ctx context.Context, recordID int64) ([]domain.NewsItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT title, snippet, url, published_at, source, fingerprint, relevance
		FROM news_intel WHERE record_id = ? ORDER BY relevance DESC`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query news_intel: %w", err)
	}
	defer rows.Close()

	var out []domain.NewsItem
	for rows.Next() {
		var item domain.NewsItem
		var publishedAt string
		if err := rows.Scan(&item.Title, &item.Snippet, &item.URL, &publishedAt, &item.Source, &item.Fingerprint, &item.Relevance); err != nil {
			return nil, fmt.Errorf("scan news_intel: %w", err)
		}
		item.PublishedAt, _ = time.Parse(time.RFC3339, publishedAt)
		out = append(out, item)
	}
	return out, rows.Err()
}
