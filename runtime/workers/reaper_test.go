package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls   atomic.Int32
	evicted int32
}

func (s *fakeSweeper) Sweep(time.Duration) int {
	s.calls.Add(1)
	return int(s.evicted)
}

func Test_Reaper_Sweeps_On_Every_Tick(t *testing.T) {
	req := require.New(t)
	sweeper := &fakeSweeper{evicted: 2}
	worker := NewReaperWorker(slog.Default(), sweeper, 10*time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	req.Eventually(func() bool { return sweeper.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on cancellation")
	}
}

func Test_Reaper_Stops_Before_The_First_Tick(t *testing.T) {
	req := require.New(t)
	sweeper := &fakeSweeper{}
	worker := NewReaperWorker(slog.Default(), sweeper, time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := worker.Run(ctx)

	req.ErrorIs(err, context.Canceled)
	req.Equal(int32(0), sweeper.calls.Load())
}
