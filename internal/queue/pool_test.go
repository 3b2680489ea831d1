package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhstock/dsa/internal/events"
)

func TestPool_DuplicateSubmitReturnsExistingTaskID(t *testing.T) {
	bus := events.NewBus()
	block := make(chan struct{})
	var once sync.Once

	p := NewPool(1, bus, func(ctx context.Context, job *Job, r *ProgressReporter) error {
		once.Do(func() { <-block })
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	id1, err := p.Submit("600000", ReportTypeStandard, false, PriorityNormal)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond) // let the worker pick it up

	_, err = p.Submit("600000", ReportTypeStandard, false, PriorityNormal)
	require.Error(t, err)
	dupErr, ok := err.(*ErrDuplicateTicker)
	require.True(t, ok)
	assert.Equal(t, id1, dupErr.ExistingID)

	close(block)
}

func TestPool_ProcessesJobAndClearsActiveSet(t *testing.T) {
	bus := events.NewBus()
	done := make(chan struct{})

	p := NewPool(1, bus, func(ctx context.Context, job *Job, r *ProgressReporter) error {
		close(done)
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	_, err := p.Submit("AAPL", ReportTypeStandard, false, PriorityHigh)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never ran")
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, p.ActiveCount())
}

func TestPool_HandlerPanicIsRecoveredAsFailure(t *testing.T) {
	bus := events.NewBus()
	id, ch := bus.Subscribe([]events.EventType{events.TaskFailed})
	defer bus.Unsubscribe(id)

	p := NewPool(1, bus, func(ctx context.Context, job *Job, r *ProgressReporter) error {
		panic("boom")
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	_, err := p.Submit("600000", ReportTypeStandard, false, PriorityNormal)
	require.NoError(t, err)

	select {
	case evt := <-ch:
		failed, ok := evt.Data.(events.TaskFailedData)
		require.True(t, ok)
		assert.Contains(t, failed.Error, "panic")
	case <-time.After(time.Second):
		t.Fatal("expected task_failed event")
	}
}
