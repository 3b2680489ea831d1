// Package events is the in-process pub/sub event bus (part of C10).
//
// The Manager/Bus body has no surviving reference implementation in
// the teacher corpus — only call sites (subscribe-and-stream-over-SSE,
// emit-on-job-transition) — so it is authored here directly against
// the spec's ordering and back-pressure requirements: the subscriber
// list is mutex-guarded, and the lock is released before writing to
// any individual subscriber so one slow consumer cannot stall the
// publisher or other subscribers.
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of an event.
type EventType string

const (
	TaskCreated   EventType = "task_created"
	TaskStarted   EventType = "task_started"
	TaskCompleted EventType = "task_completed"
	TaskFailed    EventType = "task_failed"
	Heartbeat     EventType = "heartbeat"

	AgentThinking  EventType = "thinking"
	AgentToolStart EventType = "tool_start"
	AgentToolDone  EventType = "tool_done"
	AgentGenerating EventType = "generating"
	AgentDone      EventType = "done"
	AgentError     EventType = "error"

	TaskProgress EventType = "task_progress"
)

// EventData is implemented by every concrete event payload type.
type EventData interface {
	EventType() EventType
}

// Event is one published occurrence.
type Event struct {
	Type      EventType
	Module    string
	Timestamp time.Time
	Data      EventData
}

// subscriberQueueSize bounds the per-subscriber channel; publish drops
// the event for a subscriber whose queue is full rather than blocking.
const subscriberQueueSize = 256

type subscriber struct {
	id      uint64
	filter  map[EventType]bool // nil means "all types"
	ch      chan Event
}

// Bus is the mutex-guarded subscriber registry and publish path.
type Bus struct {
	mu        sync.Mutex
	subs      map[uint64]*subscriber
	nextID    uint64
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscriber)}
}

// Subscribe registers a new subscriber and returns its id plus the
// channel it should drain. Pass nil types to receive every event.
func (b *Bus) Subscribe(types []EventType) (uint64, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID

	var filter map[EventType]bool
	if len(types) > 0 {
		filter = make(map[EventType]bool, len(types))
		for _, t := range types {
			filter[t] = true
		}
	}

	sub := &subscriber{id: id, filter: filter, ch: make(chan Event, subscriberQueueSize)}
	b.subs[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.ch)
	}
}

// Emit publishes an event to every matching subscriber. The subscriber
// list is copied under the lock, then released before the (potentially
// slow) per-subscriber sends happen — this is the back-pressure
// isolation property required by the spec.
func (b *Bus) Emit(module string, data EventData) {
	evt := Event{Type: data.EventType(), Module: module, Timestamp: time.Now(), Data: data}

	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.filter == nil || s.filter[evt.Type] {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- evt:
		default:
			// Subscriber's queue is full; drop rather than block the
			// publisher or other subscribers.
		}
	}
}
