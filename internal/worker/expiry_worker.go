package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/service"
	"github.com/rs/zerolog"
)

// sweepLimit bounds the attempts auto-submitted per tick.
const sweepLimit = 100

type expiredLister interface {
	ListExpired(ctx context.Context, grace time.Duration, limit int) ([]model.Attempt, error)
}

type autoSubmitter interface {
	AutoSubmitFromProgress(ctx context.Context, attemptID uuid.UUID) (*model.SubmitResponse, error)
}

// ExpiryWorker auto-submits in-progress attempts whose deadline passed without a
// client submission, e.g. because the candidate closed the browser.
type ExpiryWorker struct {
	attempts    expiredLister
	submissions autoSubmitter
	grace       time.Duration
	interval    time.Duration
	log         zerolog.Logger
}

// NewExpiryWorker creates a new ExpiryWorker.
func NewExpiryWorker(attempts expiredLister, submissions autoSubmitter, grace, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		attempts:    attempts,
		submissions: submissions,
		grace:       grace,
		interval:    interval,
		log:         log.With().Str("component", "expiry_worker").Logger(),
	}
}

// Start sweeps on every interval until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Dur("grace", w.grace).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep submits one page of expired attempts and returns how many it completed.
func (w *ExpiryWorker) sweep(ctx context.Context) int {
	expired, err := w.attempts.ListExpired(ctx, w.grace, sweepLimit)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("List expired attempts failed")
		}
		return 0
	}

	submitted := 0
	for _, a := range expired {
		res, err := w.submissions.AutoSubmitFromProgress(ctx, a.ID)
		if err != nil {
			if errors.Is(err, service.ErrInvalidState) {
				// The client submitted or HR reset the attempt in the meantime.
				continue
			}
			metrics.WorkerJobs.WithLabelValues("expiry", "retry").Inc()
			w.log.Error().Err(err).Str("attempt_id", a.ID.String()).Msg("Auto-submit failed")
			continue
		}
		submitted++
		metrics.WorkerJobs.WithLabelValues("expiry", "ok").Inc()
		w.log.Info().
			Str("attempt_id", a.ID.String()).
			Int("score", res.Score).
			Msg("Expired attempt auto-submitted")
	}
	return submitted
}
