// Package pipeline is the Context Assembler + Pipeline orchestration
// (C7+C8): it runs the gate-fan out-assemble-generate-parse-persist
// sequence for one ticker, per §4.5.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/calendar"
	"github.com/zhstock/dsa/internal/db/repo"
	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/evidence"
	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/llm"
	"github.com/zhstock/dsa/internal/queue"
)

// HistorySource is the subset of fetcher.Pool the pipeline needs.
type HistorySource interface {
	GetHistory(ctx context.Context, ticker string, days int) ([]domain.Candle, error)
	GetRealtime(ctx context.Context, ticker string) (domain.Quote, error)
	GetName(ctx context.Context, ticker string) (string, error)
}

// NewsSource is the subset of news.Service the pipeline needs.
type NewsSource interface {
	Fetch(ctx context.Context, ticker, displayName string, isETF bool) domain.NewsIntel
}

// Chat is the subset of llm.Router the single-shot generation path needs.
type Chat interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
}

// AgentRunner is the subset of agent.Executor the agent-mode
// generation path needs. Kept as an interface so the pipeline package
// never imports internal/agent directly (avoids an import cycle with
// internal/agent's own narrow HistorySource/NewsSource interfaces).
type AgentRunner interface {
	Run(ctx context.Context, sessionID string, strategyNames []string, userPrompt string) (AgentResult, error)
}

// AgentResult is the generation-relevant subset of agent.Result.
type AgentResult struct {
	FinalText string
}

// Dispatcher is the subset of notify.Dispatcher the pipeline needs for
// single-stock-notify mode (§4.5 step 8).
type Dispatcher interface {
	DispatchOne(ctx context.Context, rep domain.AnalysisReport) error
}

// HistoryDays is the trailing window fetched for technicals/evidence.
const HistoryDays = 120

// Options configures one Pipeline.
type Options struct {
	EngineVersion     string
	IntradayEnabled   bool
	TradingDayCheck   bool
	AgentMode         bool
	AgentStrategies   []string
	Budget            evidence.Budget
	Deadline          time.Duration // per-run deadline; zero means DefaultDeadline
}

// DefaultDeadline matches spec.md §5's 10-minute pipeline budget.
const DefaultDeadline = 10 * time.Minute

// Pipeline ties C2 (gate), C3 (fetcher), C4 (news), C6/C7
// (indicators/evidence), C5/C9 (generation), C11 (persistence), and
// C10/C13 (publish/dispatch) together for one ticker at a time.
type Pipeline struct {
	log zerolog.Logger

	history HistorySource
	news    NewsSource
	chat    Chat
	agent   AgentRunner // nil unless agent mode is wired

	historyRepo *repo.HistoryRepo
	newsRepo    *repo.NewsRepo

	bus        *events.Bus
	dispatcher Dispatcher // nil unless single-stock-notify is wired

	isETF func(ticker string) bool
	opts  Options

	now func() time.Time // clock seam; defaults to time.Now
}

// New builds a Pipeline. agent and dispatcher may be nil: agent mode
// falls back to single-shot generation, and dispatch is skipped when
// no dispatcher is wired (batch-level dispatch is the caller's job).
func New(history HistorySource, news NewsSource, chat Chat, agentRunner AgentRunner, historyRepo *repo.HistoryRepo, newsRepo *repo.NewsRepo, bus *events.Bus, dispatcher Dispatcher, isETF func(string) bool, opts Options, log zerolog.Logger) *Pipeline {
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.Budget == (evidence.Budget{}) {
		opts.Budget = evidence.DefaultBudget
	}
	return &Pipeline{
		log:         log.With().Str("component", "pipeline").Logger(),
		history:     history,
		news:        news,
		chat:        chat,
		agent:       agentRunner,
		historyRepo: historyRepo,
		newsRepo:    newsRepo,
		bus:         bus,
		dispatcher:  dispatcher,
		isETF:       isETF,
		opts:        opts,
		now:         time.Now,
	}
}

// WithClock overrides the pipeline's time source. Used by tests to pin
// the calendar gate's reference instant without sleeping or waiting.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// fanOutResult collects the four concurrent fetches' results.
type fanOutResult struct {
	candles    []domain.Candle
	candlesErr error

	quote    domain.Quote
	quoteErr error

	name    string
	nameErr error

	intel domain.NewsIntel
}

// Run executes the pipeline for job.Ticker, matching queue.Handler's
// signature so it can be wired straight into queue.NewPool.
func (p *Pipeline) Run(ctx context.Context, job *queue.Job, progress *queue.ProgressReporter) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Deadline)
	defer cancel()

	ticker := job.Ticker
	market := domain.InferMarket(ticker)

	// Step 1: Gate.
	progress.ReportUnthrottled(0, 7, "checking trading calendar")
	if calendar.Gate(p.now(), market, job.ForceRefresh, p.opts.TradingDayCheck) == calendar.Skip {
		p.log.Info().Str("ticker", ticker).Msg("calendar gate: skipped")
		progress.ReportUnthrottled(7, 7, "skipped: market closed")
		return nil
	}

	// Step 2: Fan-out.
	progress.ReportUnthrottled(1, 7, "fetching history, quote, news, name")
	fo := p.fanOut(ctx, ticker, market)
	if fo.candlesErr != nil {
		return fmt.Errorf("pipeline: history fetch fatal for %s: %w", ticker, fo.candlesErr)
	}

	var quotePtr *domain.Quote
	if fo.quoteErr != nil {
		p.log.Warn().Str("ticker", ticker).Err(fo.quoteErr).Msg("realtime quote unavailable, falling back to last close")
		if len(fo.candles) > 0 {
			last := fo.candles[len(fo.candles)-1]
			quotePtr = &domain.Quote{Ticker: ticker, Price: last.Close, Timestamp: last.Date, SourceID: "last-close-fallback"}
		}
	} else {
		quotePtr = &fo.quote
	}

	displayName := ticker
	if fo.nameErr != nil {
		p.log.Warn().Str("ticker", ticker).Err(fo.nameErr).Msg("name resolution degraded, using ticker as placeholder")
	} else if fo.name != "" {
		displayName = fo.name
	}

	// Step 3+4: Technicals + Assemble.
	progress.ReportUnthrottled(2, 7, "assembling evidence")
	bundle := evidence.Assemble(ticker, displayName, market, fo.candles, quotePtr, fo.intel, nil, p.opts.IntradayEnabled, p.opts.Budget)

	// Step 5: Generate.
	progress.ReportUnthrottled(3, 7, "generating analysis")
	rawText, err := p.generate(ctx, bundle)
	if err != nil {
		return fmt.Errorf("pipeline: generation fatal for %s: %w", ticker, err)
	}

	// Step 6: Parse.
	progress.ReportUnthrottled(4, 7, "parsing response")
	parsed, err := ParseReport(rawText)
	if err != nil {
		return fmt.Errorf("pipeline: parse fatal for %s: %w", ticker, err)
	}

	// Step 7: Backfill.
	finalName := displayName
	if parsed.StockName != "" {
		finalName = parsed.StockName
	}

	rep := domain.AnalysisReport{
		Meta: domain.ReportMeta{
			QueryID:       job.TaskID,
			Ticker:        ticker,
			Name:          finalName,
			CreatedAt:     p.now(),
			ReportType:    string(job.ReportType),
			EngineVersion: p.opts.EngineVersion,
		},
		Summary:  parsed.Summary,
		Strategy: parsed.Strategy,
		Details: domain.ReportDetails{
			RawResult:       rawText,
			ContextSnapshot: summarizeBundle(bundle),
		},
	}
	if quotePtr != nil {
		rep.Meta.CurrentPrice = quotePtr.Price
		rep.Meta.ChangePct = quotePtr.ChangePct
	}

	// Step 8: Persist, Publish, Dispatch.
	progress.ReportUnthrottled(5, 7, "persisting report")
	recordID, err := p.historyRepo.Save(ctx, rep)
	if err != nil {
		return fmt.Errorf("pipeline: persist fatal for %s: %w", ticker, err)
	}
	rep.Meta.ID = recordID

	if len(bundle.News.Items) > 0 {
		if err := p.newsRepo.SaveForRecord(ctx, recordID, ticker, domain.NewsIntel{Ticker: ticker, Items: bundle.News.Items}); err != nil {
			p.log.Warn().Str("ticker", ticker).Err(err).Msg("news persist failed, report saved without news rows")
		}
	}

	progress.Report(6, 7, "done")
	if p.bus != nil {
		p.bus.Emit("pipeline", events.TaskCompletedData{TaskID: job.TaskID, Ticker: ticker, ReportID: recordID})
	}

	if job.ReportType == queue.ReportTypeAgent || p.dispatcher == nil {
		return nil
	}
	if err := p.dispatcher.DispatchOne(ctx, rep); err != nil {
		p.log.Warn().Str("ticker", ticker).Err(err).Msg("single-stock dispatch failed")
	}
	return nil
}

// fanOut runs history, realtime quote, news, and name resolution
// concurrently, grounded on the teacher's HealthCheckAll
// wait-group-plus-mutex fan-out shape.
func (p *Pipeline) fanOut(ctx context.Context, ticker string, market domain.Market) fanOutResult {
	var fo fanOutResult
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		fo.candles, fo.candlesErr = p.history.GetHistory(ctx, ticker, HistoryDays)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		fo.quote, fo.quoteErr = p.history.GetRealtime(ctx, ticker)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		fo.name, fo.nameErr = p.history.GetName(ctx, ticker)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		isETF := p.isETF != nil && p.isETF(ticker)
		fo.intel = p.news.Fetch(ctx, ticker, ticker, isETF)
	}()

	wg.Wait()
	_ = market
	return fo
}

// generate dispatches to the agent executor in agent mode, or a
// single-shot prompt to the LLM router otherwise (§4.5 step 5).
func (p *Pipeline) generate(ctx context.Context, bundle domain.EvidenceBundle) (string, error) {
	if p.opts.AgentMode && p.agent != nil {
		result, err := p.agent.Run(ctx, bundle.Ticker, p.opts.AgentStrategies, buildAgentPrompt(bundle))
		if err != nil {
			return "", err
		}
		return result.FinalText, nil
	}

	req := llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: []llm.ContentPart{{Type: "text", Text: systemPromptText}}},
			{Role: "user", Content: []llm.ContentPart{{Type: "text", Text: buildSingleShotPrompt(bundle)}}},
		},
	}
	resp, err := p.chat.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	var out string
	for _, part := range resp.Message.Content {
		if part.Type == "text" {
			out += part.Text
		}
	}
	return out, nil
}
