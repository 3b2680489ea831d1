package queue

import (
	"sync"
	"time"

	"github.com/zhstock/dsa/internal/domain"
	"github.com/zhstock/dsa/internal/events"
)

// TaskStore maintains the latest known domain.Task for every task ID
// by observing the Event Bus, giving the HTTP API (GET
// /analysis/status/{task_id}, GET /analysis/tasks) something to read
// without coupling it to Pool's internal heap/dedup state.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.Task
	subID uint64
	bus   *events.Bus
}

// NewTaskStore subscribes to the task lifecycle event types and starts
// tracking them immediately.
func NewTaskStore(bus *events.Bus) *TaskStore {
	ts := &TaskStore{tasks: make(map[string]domain.Task), bus: bus}
	subID, ch := bus.Subscribe([]events.EventType{
		events.TaskCreated, events.TaskStarted, events.TaskProgress,
		events.TaskCompleted, events.TaskFailed,
	})
	ts.subID = subID
	go ts.consume(ch)
	return ts
}

func (ts *TaskStore) consume(ch <-chan events.Event) {
	for evt := range ch {
		ts.apply(evt)
	}
}

func (ts *TaskStore) apply(evt events.Event) {
	now := time.Now()
	ts.mu.Lock()
	defer ts.mu.Unlock()

	switch data := evt.Data.(type) {
	case events.TaskCreatedData:
		ts.tasks[data.TaskID] = domain.Task{TaskID: data.TaskID, Ticker: data.Ticker, Status: domain.TaskPending, CreatedAt: now}
	case events.TaskStartedData:
		t := ts.tasks[data.TaskID]
		t.TaskID, t.Ticker = data.TaskID, data.Ticker
		t.Status = domain.TaskProcessing
		started := now
		t.StartedAt = &started
		ts.tasks[data.TaskID] = t
	case events.TaskProgressData:
		t := ts.tasks[data.TaskID]
		t.TaskID, t.Ticker = data.TaskID, data.Ticker
		if data.Total > 0 {
			t.Progress = float64(data.Current) / float64(data.Total)
		}
		t.Message = data.Message
		if t.Status == "" {
			t.Status = domain.TaskProcessing
		}
		ts.tasks[data.TaskID] = t
	case events.TaskCompletedData:
		t := ts.tasks[data.TaskID]
		t.TaskID, t.Ticker = data.TaskID, data.Ticker
		t.Status = domain.TaskCompleted
		t.Progress = 1
		completed := now
		t.CompletedAt = &completed
		ts.tasks[data.TaskID] = t
	case events.TaskFailedData:
		t := ts.tasks[data.TaskID]
		t.TaskID, t.Ticker = data.TaskID, data.Ticker
		t.Status = domain.TaskFailed
		t.Error = data.Error
		completed := now
		t.CompletedAt = &completed
		ts.tasks[data.TaskID] = t
	}
}

// Get returns the task with id, if known.
func (ts *TaskStore) Get(id string) (domain.Task, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	t, ok := ts.tasks[id]
	return t, ok
}

// List returns every known task, optionally filtered by status
// ("" means no filter), newest first.
func (ts *TaskStore) List(status domain.TaskStatus) []domain.Task {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	out := make([]domain.Task, 0, len(ts.tasks))
	for _, t := range ts.tasks {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

// Close unsubscribes from the bus. Safe to call once.
func (ts *TaskStore) Close() {
	ts.bus.Unsubscribe(ts.subID)
}
