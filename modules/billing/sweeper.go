package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/billingkit/pkg/logger"
	"github.com/dmitrymomot/billingkit/pkg/subscription"
)

// Sweeper periodically expires pending subscriptions whose approval window
// has elapsed. Run one instance per deployment; concurrent sweeps are safe
// because expiry is a compare-and-swap on the stored status, but they waste
// provider API calls.
type Sweeper struct {
	svc      subscription.Service
	interval time.Duration
	log      *slog.Logger
}

// NewSweeper panics if svc is nil or interval is not positive.
func NewSweeper(svc subscription.Service, interval time.Duration, log *slog.Logger) *Sweeper {
	if svc == nil {
		panic("billing: sweeper requires a subscription service")
	}
	if interval <= 0 {
		panic("billing: sweep interval must be positive")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{svc: svc, interval: interval, log: log.With(logger.Component("billing.sweeper"))}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
// It always returns ctx.Err(); sweep failures are logged and retried on the
// next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.svc.ExpireStale(ctx, time.Now())
	if err != nil {
		s.log.ErrorContext(ctx, "Stale approval sweep failed", logger.Error(err))
		return
	}
	if expired > 0 {
		s.log.InfoContext(ctx, "Expired stale pending subscriptions", slog.Int("count", expired))
	}
}
