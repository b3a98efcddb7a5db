package workers

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper evicts idle empty rooms; implemented by the room registry.
type Sweeper interface {
	Sweep(threshold time.Duration) int
}

// ReaperWorker periodically drops empty, long-inactive rooms from memory.
// It never touches durable history, which expires under the store's own
// retention policy.
type ReaperWorker struct {
	log       *slog.Logger
	sweeper   Sweeper
	interval  time.Duration
	threshold time.Duration
}

func NewReaperWorker(log *slog.Logger, sweeper Sweeper, interval, threshold time.Duration) *ReaperWorker {
	return &ReaperWorker{log: log, sweeper: sweeper, interval: interval, threshold: threshold}
}

func (w *ReaperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if evicted := w.sweeper.Sweep(w.threshold); evicted > 0 {
				w.log.Info("Reaped idle rooms", "count", evicted)
			}
		}
	}
}
