// Package worker hosts background loops that run for the lifetime of
// the process.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/globalbeauty/concierge-api/internal/repository"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
)

// SessionCleanup periodically hard-deletes sessions whose expiry is past
// the retention window. Revoked sessions are kept until then so recent
// logouts stay auditable.
type SessionCleanup struct {
	sessionRepo repository.SessionRepository
	interval    time.Duration
	retention   time.Duration
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

func NewSessionCleanup(
	sessionRepo repository.SessionRepository,
	interval time.Duration,
	retentionDays int,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *SessionCleanup {
	return &SessionCleanup{
		sessionRepo: sessionRepo,
		interval:    interval,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
		metrics:     m,
		logger:      logger.With().Str("worker", "session_cleanup").Logger(),
	}
}

// Run sweeps on the configured interval until ctx is cancelled. One
// sweep runs immediately at startup.
func (w *SessionCleanup) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SessionCleanup) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.retention)
	deleted, err := w.sessionRepo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("session sweep failed")
		return
	}
	if deleted > 0 {
		w.metrics.SessionsSwept.Add(float64(deleted))
		w.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("session sweep completed")
	}
}
