package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically removes expired posts.
type Sweeper struct {
	posts    *PostService
	interval time.Duration
}

// NewSweeper creates a Sweeper that runs every interval.
func NewSweeper(posts *PostService, interval time.Duration) *Sweeper {
	return &Sweeper{posts: posts, interval: interval}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
// Failures are logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.posts.SweepExpired(ctx, s.posts.Now()); err != nil && ctx.Err() == nil {
		slog.Error("background sweep failed", "error", err)
	}
}
