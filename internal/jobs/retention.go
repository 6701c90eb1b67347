package jobs

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

// MessagePurger deletes messages created before a cutoff.
type MessagePurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSweeper removes messages older than the retention window, once at
// start and then on every interval.
type RetentionSweeper struct {
	purger   MessagePurger
	window   time.Duration
	interval time.Duration
	logger   *zap.Logger
	deleted  prometheus.Counter
	failures prometheus.Counter
	now      func() time.Time
}

func NewRetentionSweeper(
	purger MessagePurger,
	window time.Duration,
	interval time.Duration,
	logger *zap.Logger,
	reg prometheus.Registerer,
) *RetentionSweeper {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	s := &RetentionSweeper{
		purger:   purger,
		window:   window,
		interval: interval,
		logger:   logger,
		deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photochat_retention_deleted_total",
			Help: "Messages deleted by the retention sweep.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photochat_retention_failures_total",
			Help: "Retention sweeps that failed.",
		}),
		now: time.Now,
	}
	reg.MustRegister(s.deleted, s.failures)
	return s
}

// Run sweeps until ctx is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) error {
	s.logger.Info("retention sweeper started",
		zap.Duration("window", s.window),
		zap.Duration("interval", s.interval))

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context) {
	if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
		s.failures.Inc()
		s.logger.Error("retention sweep failed", zap.Error(err))
	}
}

// SweepOnce deletes every message created before now minus the window.
func (s *RetentionSweeper) SweepOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.window)
	deleted, err := s.purger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.deleted.Add(float64(deleted))
	s.logger.Info("retention sweep finished",
		zap.Time("cutoff", cutoff),
		zap.Int64("deleted", deleted))
	return deleted, nil
}
