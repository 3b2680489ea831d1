package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/calendar"
	"github.com/zhstock/dsa/internal/config"
	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/notify"
	"github.com/zhstock/dsa/internal/queue"
)

// BatchDeadline bounds how long a batch waits for all submitted tasks
// to complete before giving up on the stragglers and dispatching with
// what it has.
const BatchDeadline = 20 * time.Minute

// BatchJob is the daily watchlist run: gate the whole batch, submit
// every runnable ticker to the Task Queue, collect the reports that
// complete, and hand them to the Notification Dispatcher (§4.10).
type BatchJob struct {
	cfg         *config.Config
	pool        *queue.Pool
	bus         *events.Bus
	historyRepo *repo.HistoryRepo
	dispatcher  *notify.Dispatcher
	log         zerolog.Logger
	deadline    time.Duration
	now         func() time.Time
	forceRun    bool
}

// NewBatchJob builds a BatchJob. dispatcher may be nil to disable
// notification entirely (the CLI's --no-notify).
func NewBatchJob(cfg *config.Config, pool *queue.Pool, bus *events.Bus, historyRepo *repo.HistoryRepo, dispatcher *notify.Dispatcher, log zerolog.Logger) *BatchJob {
	return &BatchJob{
		cfg:         cfg,
		pool:        pool,
		bus:         bus,
		historyRepo: historyRepo,
		dispatcher:  dispatcher,
		log:         log.With().Str("component", "batch-job").Logger(),
		deadline:    BatchDeadline,
		now:         time.Now,
	}
}

// WithClock overrides the batch job's time source. Used by tests to
// pin the calendar gate's reference instant deterministically.
func (b *BatchJob) WithClock(now func() time.Time) *BatchJob {
	b.now = now
	return b
}

// WithForceRun makes the batch bypass the calendar gate (the CLI's
// --force-run), same as Gate's own forceRun parameter.
func (b *BatchJob) WithForceRun(force bool) *BatchJob {
	b.forceRun = force
	return b
}

// Name implements scheduler.Job.
func (b *BatchJob) Name() string { return "daily-watchlist-batch" }

// Run implements scheduler.Job.
func (b *BatchJob) Run() error {
	b.cfg.ReloadWatchlist()
	tickers := b.cfg.Watchlist()
	if len(tickers) == 0 {
		b.log.Info().Msg("empty watchlist, nothing to do")
		return nil
	}

	canonical := make([]string, len(tickers))
	for i, t := range tickers {
		canonical[i] = domain.Canonical(t)
	}

	plan := calendar.PlanBatch(b.now(), canonical, domain.InferMarket, b.forceRun, b.cfg.TradingDayCheckEnabled)
	if plan.AllSkipped() {
		b.log.Info().Int("tickers", len(plan.Skip)).Msg("every market closed, batch skipped")
		return nil
	}
	if len(plan.Skip) > 0 {
		b.log.Info().Strs("tickers", plan.Skip).Msg("skipping tickers for closed markets")
	}

	reports := b.runAndCollect(plan.Run)
	if b.dispatcher == nil || len(reports) == 0 {
		return nil
	}

	ctx := context.Background()
	b.dispatcher.DispatchBatch(ctx, reports, b.cfg.MergeEmailNotification)
	if err := b.dispatcher.DispatchMarketReview(ctx, b.cfg.MarketReviewRegion, reports); err != nil {
		b.log.Warn().Err(err).Msg("market review dispatch failed")
	}
	return nil
}

// runAndCollect submits every ticker and blocks until each submitted
// task finishes (success or failure) or the batch deadline passes,
// returning the reports for every ticker that completed successfully.
func (b *BatchJob) runAndCollect(tickers []string) []domain.AnalysisReport {
	sub, ch := b.bus.Subscribe([]events.EventType{events.TaskCompleted, events.TaskFailed})
	defer b.bus.Unsubscribe(sub)

	pending := map[string]bool{}
	for _, t := range tickers {
		taskID, err := b.pool.Submit(t, queue.ReportTypeStandard, false, queue.PriorityNormal)
		if err != nil {
			b.log.Warn().Str("ticker", t).Err(err).Msg("submit failed, skipping for this batch")
			continue
		}
		pending[taskID] = true
	}

	var reportIDs []int64
	deadline := time.NewTimer(b.deadline)
	defer deadline.Stop()

	for len(pending) > 0 {
		select {
		case evt := <-ch:
			switch data := evt.Data.(type) {
			case events.TaskCompletedData:
				if pending[data.TaskID] {
					delete(pending, data.TaskID)
					reportIDs = append(reportIDs, data.ReportID)
				}
			case events.TaskFailedData:
				if pending[data.TaskID] {
					delete(pending, data.TaskID)
				}
			}
		case <-deadline.C:
			b.log.Warn().Int("stragglers", len(pending)).Msg("batch deadline reached, dispatching with partial results")
			pending = nil
		}
	}

	var reports []domain.AnalysisReport
	ctx := context.Background()
	for _, id := range reportIDs {
		rep, err := b.historyRepo.ByID(ctx, id)
		if err != nil {
			b.log.Warn().Int64("report_id", id).Err(err).Msg("report lookup failed post-batch")
			continue
		}
		reports = append(reports, *rep)
	}
	return reports
}
