package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ddrelay/internal/domain"
)

type countingRunner struct {
	mu        sync.Mutex
	calls     int
	deadlines []bool
	err       error
	ticked    chan struct{}
}

func newCountingRunner(err error) *countingRunner {
	return &countingRunner{err: err, ticked: make(chan struct{}, 16)}
}

func (r *countingRunner) Run(ctx context.Context) (*domain.CycleStats, error) {
	r.mu.Lock()
	r.calls++
	_, hasDeadline := ctx.Deadline()
	r.deadlines = append(r.deadlines, hasDeadline)
	r.mu.Unlock()

	select {
	case r.ticked <- struct{}{}:
	default:
	}
	return &domain.CycleStats{}, r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitTicks(t *testing.T, r *countingRunner, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.ticked:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d did not happen", i+1)
		}
	}
}

func TestScheduler_TicksImmediatelyAndOnInterval(t *testing.T) {
	runner := newCountingRunner(nil)
	s := NewScheduler(runner, 10*time.Millisecond, 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitTicks(t, runner, 3)
	cancel()

	require.ErrorIs(t, <-done, context.Canceled)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.GreaterOrEqual(t, runner.calls, 3)
	assert.False(t, runner.deadlines[0], "ticks are unbounded without a timeout")
}

func TestScheduler_AppliesTickTimeout(t *testing.T) {
	runner := newCountingRunner(nil)
	s := NewScheduler(runner, time.Hour, time.Minute, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitTicks(t, runner, 1)
	cancel()
	<-done

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.True(t, runner.deadlines[0])
}

func TestScheduler_KeepsRunningAfterTickError(t *testing.T) {
	runner := newCountingRunner(errors.New("fetch listing: boom"))
	s := NewScheduler(runner, 10*time.Millisecond, 0, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	waitTicks(t, runner, 2)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}
