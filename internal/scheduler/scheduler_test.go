package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	mu    sync.Mutex
	name  string
	count int
	done  chan struct{}
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Run() error {
	j.mu.Lock()
	j.count++
	n := j.count
	j.mu.Unlock()
	if n == 1 && j.done != nil {
		close(j.done)
	}
	return nil
}

func TestDailyCronExpr(t *testing.T) {
	expr, err := DailyCronExpr("09:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 9 * * *", expr)
}

func TestDailyCronExpr_RejectsMalformed(t *testing.T) {
	_, err := DailyCronExpr("not-a-time")
	assert.Error(t, err)

	_, err = DailyCronExpr("25:00")
	assert.Error(t, err)

	_, err = DailyCronExpr("09:70")
	assert.Error(t, err)
}

func TestScheduler_RunNow_ExecutesImmediately(t *testing.T) {
	s := New(time.UTC, zerolog.Nop())
	job := &countingJob{name: "test-job"}

	err := s.RunNow(job)
	require.NoError(t, err)

	job.mu.Lock()
	defer job.mu.Unlock()
	assert.Equal(t, 1, job.count)
}

func TestScheduler_AddJobFiresOnSchedule(t *testing.T) {
	s := New(time.UTC, zerolog.Nop())
	done := make(chan struct{})
	job := &countingJob{name: "ticking-job", done: done}

	require.NoError(t, s.AddJob("* * * * * *", job))
	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job never fired within 3 seconds of an every-second schedule")
	}
}
