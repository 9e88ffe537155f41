// Package worker holds background jobs that run independently of the
// request path.
package worker

import (
	"context"
	"time"

	"github.com/Aphatheology/future-stack-assessment/internal/repository"

	"go.uber.org/zap"
)

// IdempotencySweeper periodically deletes idempotency records past
// their expiry. Lookups already ignore expired records, so the sweep
// only reclaims storage; it never affects request semantics.
type IdempotencySweeper struct {
	repo     repository.IdempotencyRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewIdempotencySweeper creates a new IdempotencySweeper
func NewIdempotencySweeper(repo repository.IdempotencyRepository, interval time.Duration, logger *zap.Logger) *IdempotencySweeper {
	return &IdempotencySweeper{
		repo:     repo,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until ctx is cancelled. It performs one
// sweep immediately so a restart does not postpone cleanup by a full
// interval.
func (s *IdempotencySweeper) Start(ctx context.Context) {
	s.logger.Info("Starting idempotency key sweeper",
		zap.Duration("interval", s.interval),
	)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Idempotency key sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *IdempotencySweeper) sweep(ctx context.Context) {
	deleted, err := s.repo.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("Idempotency key sweep failed", zap.Error(err))
		return
	}

	if deleted > 0 {
		s.logger.Info("Swept expired idempotency keys",
			zap.Int64("deleted", deleted),
		)
	}
}
