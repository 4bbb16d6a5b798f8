package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired sessions are swept.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes expired sessions to bound storage growth.
type Sweeper struct {
	auth     *AuthService
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a sweeper for the service's session store.
func NewSweeper(auth *AuthService, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{auth: auth, interval: interval, logger: logger}
}

// Run sweeps on a ticker until ctx is cancelled. Each pass is independent
// and idempotent, so a failed pass is logged and the next one proceeds.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := s.auth.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			deleted, err := s.auth.SweepExpiredSessions(ctx)
			if err != nil {
				s.logger.Warn("session sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("swept expired sessions", zap.Int64("deleted", deleted))
			}
		}
	}
}
