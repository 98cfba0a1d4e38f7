package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// progressPersister copies an attempt's cached progress snapshot to PostgreSQL.
type progressPersister interface {
	Persist(ctx context.Context, attemptID uuid.UUID) error
}

// ProgressWorker consumes persist_progress_queue and writes the cached snapshots
// to PostgreSQL. Repeated saves of one attempt inside a batch window are persisted once.
type ProgressWorker struct {
	rdb      *redis.Client
	progress progressPersister
	log      zerolog.Logger
}

// NewProgressWorker creates a new ProgressWorker.
func NewProgressWorker(rdb *redis.Client, progress progressPersister, log zerolog.Logger) *ProgressWorker {
	return &ProgressWorker{
		rdb:      rdb,
		progress: progress,
		log:      log.With().Str("component", "progress_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ProgressWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	pending := make([]uuid.UUID, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(pending) > 0 && (len(pending) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flush(ctx, dedupe(pending))
			pending = pending[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.shutdown(pending)
			w.log.Info().Msg("Worker stopped")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProgressQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		id, err := uuid.Parse(result[1])
		if err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed attempt id")
			continue
		}
		pending = append(pending, id)
	}
}

func (w *ProgressWorker) flush(ctx context.Context, ids []uuid.UUID) {
	failed := make([]uuid.UUID, 0)
	for _, id := range ids {
		if err := w.progress.Persist(ctx, id); err != nil {
			w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Persist failed, requeueing")
			failed = append(failed, id)
			continue
		}
		metrics.WorkerJobs.WithLabelValues("progress", "ok").Inc()
	}

	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *ProgressWorker) requeue(ctx context.Context, ids []uuid.UUID) {
	pipe := w.rdb.Pipeline()
	for _, id := range ids {
		pipe.RPush(ctx, config.WorkerKey.PersistProgressQueue, id.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.WorkerJobs.WithLabelValues("progress", "dropped").Add(float64(len(ids)))
		w.log.Error().Err(err).Int("count", len(ids)).Msg("Failed to requeue progress snapshots, the cached copy is kept until it expires")
		return
	}
	metrics.WorkerJobs.WithLabelValues("progress", "retry").Add(float64(len(ids)))
	// Back off when the database is down hard.
	time.Sleep(2 * time.Second)
}

// shutdown persists the buffered ids and whatever is still queued.
func (w *ProgressWorker) shutdown(pending []uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistProgressQueue).Result()
		if err != nil {
			break
		}
		if id, err := uuid.Parse(raw); err == nil {
			pending = append(pending, id)
		}
	}

	ids := dedupe(pending)
	drained := 0
	for _, id := range ids {
		if err := w.progress.Persist(ctx, id); err != nil {
			w.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Drain persist error")
			w.rdb.RPush(context.Background(), config.WorkerKey.PersistProgressQueue, id.String())
			continue
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}

// dedupe returns ids in first-seen order without repeats.
func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
