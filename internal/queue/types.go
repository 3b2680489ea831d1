// Package queue is the Task Queue half of C10: a bounded worker pool
// that consumes ticker analysis submissions, deduplicating by active
// ticker and reporting progress on the Event Bus.
package queue

import "time"

// Priority orders pending submissions; higher runs first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// ReportType distinguishes the two analysis modes the pipeline runs.
type ReportType string

const (
	ReportTypeStandard ReportType = "standard"
	ReportTypeAgent    ReportType = "agent"
)

// Job is one ticker's analysis submission.
type Job struct {
	TaskID       string
	Ticker       string
	ReportType   ReportType
	ForceRefresh bool
	Priority     Priority
	CreatedAt    time.Time

	// seq orders jobs FIFO within a priority tier; assigned by Submit
	// before the job is pushed onto the heap.
	seq int64

	progressReporter *ProgressReporter
}

// ProgressReporter returns the reporter injected by the pool for this
// job; nil until the job starts running.
func (j *Job) ProgressReporter() *ProgressReporter {
	return j.progressReporter
}

// ErrDuplicateTicker is returned by Submit when the ticker already has
// a non-terminal task in flight; the caller gets the existing task ID.
type ErrDuplicateTicker struct {
	Ticker      string
	ExistingID  string
}

func (e *ErrDuplicateTicker) Error() string {
	return "queue: " + e.Ticker + " already has an active task " + e.ExistingID
}
