package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// proctorEventStore writes proctor events.
type proctorEventStore interface {
	InsertBatch(ctx context.Context, events []*model.ProctorEvent) error
	Insert(ctx context.Context, e *model.ProctorEvent) error
}

// ProctorWorker consumes persist_proctor_queue and bulk inserts proctor events.
type ProctorWorker struct {
	rdb    *redis.Client
	events proctorEventStore
	log    zerolog.Logger
}

// NewProctorWorker creates a new ProctorWorker.
func NewProctorWorker(rdb *redis.Client, events proctorEventStore, log zerolog.Logger) *ProctorWorker {
	return &ProctorWorker{
		rdb:    rdb,
		events: events,
		log:    log.With().Str("component", "proctor_worker").Logger(),
	}
}

func (w *ProctorWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*model.ProctorEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age.
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown.
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistProctorQueue).Result()
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

		// 4. Decode. Malformed JSON cannot be retried.
		evt, err := decodeProctorEvent(result[1])
		if err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed event")
			continue
		}
		buffer = append(buffer, evt)
	}
}

func decodeProctorEvent(raw string) (*model.ProctorEvent, error) {
	var evt model.ProctorEvent
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return nil, err
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	return &evt, nil
}

// flushSafe tries a bulk COPY, then row-by-row inserts, then requeues.
func (w *ProctorWorker) flushSafe(ctx context.Context, batch []*model.ProctorEvent) {
	if err := w.events.InsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
		return
	}
	metrics.WorkerJobs.WithLabelValues("proctor", "ok").Add(float64(len(batch)))
}

func (w *ProctorWorker) fallbackInsert(ctx context.Context, batch []*model.ProctorEvent) {
	requeueList := make([]*model.ProctorEvent, 0)

	for _, e := range batch {
		err := w.events.Insert(ctx, e)
		switch {
		case err == nil:
			metrics.WorkerJobs.WithLabelValues("proctor", "ok").Inc()
		case errors.Is(err, repository.ErrReferenced):
			// The attempt was deleted while the event was queued.
			metrics.WorkerJobs.WithLabelValues("proctor", "dropped").Inc()
			w.log.Warn().Str("attempt_id", e.AttemptID.String()).Msg("Dropping event of deleted attempt")
		default:
			w.log.Error().Err(err).Str("attempt_id", e.AttemptID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, e)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ProctorWorker) requeue(ctx context.Context, items []*model.ProctorEvent) {
	pipe := w.rdb.Pipeline()
	for _, e := range items {
		data, _ := json.Marshal(e)
		pipe.RPush(ctx, config.WorkerKey.PersistProctorQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		metrics.WorkerJobs.WithLabelValues("proctor", "dropped").Add(float64(len(items)))
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	metrics.WorkerJobs.WithLabelValues("proctor", "retry").Add(float64(len(items)))
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	time.Sleep(2 * time.Second)
}

func (w *ProctorWorker) shutdown(buffer []*model.ProctorEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
