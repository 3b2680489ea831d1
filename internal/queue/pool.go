package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/events"
)

// Handler processes one Job; ctx is cancelled on pool shutdown.
type Handler func(ctx context.Context, job *Job, report *ProgressReporter) error

// jobHeap orders pending jobs by priority (high first), then FIFO
// within a priority tier via each Job's own seq field (set by the
// caller before Push, so reordering during sift-up never loses track
// of which sequence number belongs to which job).
type jobHeap struct {
	items []*Job
}

func (h jobHeap) Len() int { return len(h.items) }
func (h jobHeap) Less(i, j int) bool {
	if h.items[i].Priority != h.items[j].Priority {
		return h.items[i].Priority > h.items[j].Priority
	}
	return h.items[i].seq < h.items[j].seq
}
func (h jobHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}
func (h *jobHeap) Push(x any) {
	h.items = append(h.items, x.(*Job))
}
func (h *jobHeap) Pop() any {
	n := len(h.items)
	item := h.items[n-1]
	h.items = h.items[:n-1]
	return item
}

// Pool is the bounded worker pool consuming ticker analysis
// submissions (§4.7). Dedup rejects a resubmission of a ticker that
// already has a non-terminal task.
type Pool struct {
	log      zerolog.Logger
	bus      *events.Bus
	handler  Handler
	workers  int

	mu          sync.Mutex
	pending     jobHeap
	nextSeq     int64
	activeByTicker map[string]string // ticker -> task ID
	cond        *sync.Cond

	closed bool
}

// NewPool builds a pool with the given worker concurrency.
func NewPool(workers int, bus *events.Bus, handler Handler, log zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		log:            log.With().Str("component", "task-queue").Logger(),
		bus:            bus,
		handler:        handler,
		workers:        workers,
		activeByTicker: make(map[string]string),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the worker goroutines; they exit when ctx is done.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		go p.runWorker(ctx)
	}
	go func() {
		<-ctx.Done()
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.cond.Broadcast()
	}()
}

// Submit enqueues ticker for analysis, returning the new task ID, or
// ErrDuplicateTicker with the existing task ID if one is already
// in flight.
func (p *Pool) Submit(ticker string, reportType ReportType, forceRefresh bool, priority Priority) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.activeByTicker[ticker]; ok && !forceRefresh {
		return "", &ErrDuplicateTicker{Ticker: ticker, ExistingID: existing}
	}

	p.nextSeq++
	taskID := uuid.NewString()
	job := &Job{
		TaskID:       taskID,
		Ticker:       ticker,
		ReportType:   reportType,
		ForceRefresh: forceRefresh,
		Priority:     priority,
		CreatedAt:    time.Now(),
		seq:          p.nextSeq,
	}
	p.activeByTicker[ticker] = taskID
	heap.Push(&p.pending, job)

	p.bus.Emit("queue", events.TaskCreatedData{TaskID: taskID, Ticker: ticker})
	p.cond.Signal()
	return taskID, nil
}

// ActiveCount reports how many tickers currently have a non-terminal task.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.activeByTicker)
}

func (p *Pool) runWorker(ctx context.Context) {
	for {
		job := p.nextJob()
		if job == nil {
			return // pool closed
		}

		p.bus.Emit("queue", events.TaskStartedData{TaskID: job.TaskID, Ticker: job.Ticker})
		reporter := NewProgressReporter(p.bus, job.TaskID, job.Ticker)
		job.progressReporter = reporter

		err := p.runJob(ctx, job, reporter)

		p.mu.Lock()
		if p.activeByTicker[job.Ticker] == job.TaskID {
			delete(p.activeByTicker, job.Ticker)
		}
		p.mu.Unlock()

		if err != nil {
			p.bus.Emit("queue", events.TaskFailedData{TaskID: job.TaskID, Ticker: job.Ticker, Error: err.Error()})
			p.log.Warn().Str("ticker", job.Ticker).Str("task_id", job.TaskID).Err(err).Msg("task failed")
		}
	}
}

func (p *Pool) runJob(ctx context.Context, job *Job, reporter *ProgressReporter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job handler: %v", r)
		}
	}()
	return p.handler(ctx, job, reporter)
}

// nextJob blocks until a job is available or the pool closes.
func (p *Pool) nextJob() *Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.pending.Len() == 0 {
		return nil
	}
	return heap.Pop(&p.pending).(*Job)
}
