package queue

import (
	"time"

	"github.com/zhstock/dsa/internal/events"
)

// ProgressReporter emits throttled progress events for one running
// job, grounded on the teacher's queue.ProgressReporter (100ms
// throttle, with an unthrottled variant for milestones that must not
// be dropped).
type ProgressReporter struct {
	bus         *events.Bus
	taskID      string
	ticker      string
	lastReport  time.Time
	minInterval time.Duration
}

// NewProgressReporter builds a reporter throttled to 10 updates/sec.
func NewProgressReporter(bus *events.Bus, taskID, ticker string) *ProgressReporter {
	return &ProgressReporter{
		bus:         bus,
		taskID:      taskID,
		ticker:      ticker,
		minInterval: 100 * time.Millisecond,
	}
}

// Report emits a step-progress event (throttled unless current==total).
func (r *ProgressReporter) Report(current, total int, message string) {
	if r.bus == nil {
		return
	}
	now := time.Now()
	if now.Sub(r.lastReport) < r.minInterval && current != total {
		return
	}
	r.lastReport = now
	r.bus.Emit("queue", events.TaskProgressData{
		TaskID:  r.taskID,
		Ticker:  r.ticker,
		Current: current,
		Total:   total,
		Message: message,
	})
}

// ReportUnthrottled always emits, for milestones that must not be
// dropped by the throttle window.
func (r *ProgressReporter) ReportUnthrottled(current, total int, message string) {
	if r.bus == nil {
		return
	}
	r.lastReport = time.Now()
	r.bus.Emit("queue", events.TaskProgressData{
		TaskID:  r.taskID,
		Ticker:  r.ticker,
		Current: current,
		Total:   total,
		Message: message,
	})
}
