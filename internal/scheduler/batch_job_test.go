package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/db"
	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/notify"
	"github.com/zhstock/dsa/internal/queue"
)

type recordingChannel struct {
	mu   sync.Mutex
	id   string
	sent int
}

func (c *recordingChannel) ID() string { return c.id }
func (c *recordingChannel) Send(ctx context.Context, recipients []string, subject, body string) error {
	c.mu.Lock()
	c.sent++
	c.mu.Unlock()
	return nil
}

func openBatchTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.Open(":memory:", db.ProfileStandard, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Migrate(context.Background()))
	t.Cleanup(func() { d.Close() })
	return d
}

func TestBatchJob_CollectsSuccessesAndDispatches(t *testing.T) {
	d := openBatchTestDB(t)
	historyRepo := repo.NewHistoryRepo(d)
	bus := events.NewBus()

	handler := func(ctx context.Context, job *queue.Job, report *queue.ProgressReporter) error {
		if job.Ticker == "FAIL" {
			return fmt.Errorf("simulated failure")
		}
		id, err := historyRepo.Save(ctx, domain.AnalysisReport{
			Meta: domain.ReportMeta{QueryID: job.TaskID, Ticker: job.Ticker, Name: job.Ticker, CreatedAt: time.Now()},
			Summary: domain.ReportSummary{OperationAdvice: "hold"},
		})
		if err != nil {
			return err
		}
		bus.Emit("pipeline", events.TaskCompletedData{TaskID: job.TaskID, Ticker: job.Ticker, ReportID: id})
		return nil
	}
	pool := queue.NewPool(2, bus, handler, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	channel := &recordingChannel{id: "email"}
	dispatcher := notify.New([]notify.Channel{channel}, nil, nil, zerolog.Nop())

	cfg := &config.Config{StockList: []string{"AAPL", "FAIL"}, TradingDayCheckEnabled: false, MarketReviewRegion: "us"}
	job := NewBatchJob(cfg, pool, bus, historyRepo, dispatcher, zerolog.Nop())
	job.deadline = 5 * time.Second

	err := job.Run()
	require.NoError(t, err)

	reports, err := historyRepo.List(context.Background(), "AAPL", 10, 0)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	channel.mu.Lock()
	defer channel.mu.Unlock()
	assert.True(t, channel.sent > 0, "expected at least one notification send for the successful report")
}

func TestBatchJob_EmptyWatchlistIsNoOp(t *testing.T) {
	d := openBatchTestDB(t)
	historyRepo := repo.NewHistoryRepo(d)
	bus := events.NewBus()
	pool := queue.NewPool(1, bus, func(ctx context.Context, job *queue.Job, r *queue.ProgressReporter) error { return nil }, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	cfg := &config.Config{}
	job := NewBatchJob(cfg, pool, bus, historyRepo, nil, zerolog.Nop())

	err := job.Run()
	require.NoError(t, err)
}

func TestBatchJob_AllMarketsClosedSkipsEntireBatch(t *testing.T) {
	d := openBatchTestDB(t)
	historyRepo := repo.NewHistoryRepo(d)
	bus := events.NewBus()

	called := false
	handler := func(ctx context.Context, job *queue.Job, r *queue.ProgressReporter) error {
		called = true
		return nil
	}
	pool := queue.NewPool(1, bus, handler, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	cfg := &config.Config{StockList: []string{"AAPL"}, TradingDayCheckEnabled: true}
	job := NewBatchJob(cfg, pool, bus, historyRepo, nil, zerolog.Nop())

	// A known Saturday: AAPL is a US ticker, so every market in this
	// single-ticker batch is closed and the whole batch must be skipped.
	saturday := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	job.WithClock(func() time.Time { return saturday })

	err := job.Run()
	require.NoError(t, err)
	assert.False(t, called, "handler must never run when the whole batch is gated closed")
}
