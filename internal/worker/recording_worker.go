package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/metrics"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxRecordingAttempts bounds uploads of one spooled recording before it is dropped.
const maxRecordingAttempts = 5

// blobPutter is the slice of storage.BlobStore used for recordings.
type blobPutter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// recordingURLSetter attaches an uploaded recording to its result.
type recordingURLSetter interface {
	SetRecordingURL(ctx context.Context, resultID uuid.UUID, url string) error
}

// RecordingWorker consumes upload_recordings_queue and moves spooled session
// recordings to blob storage.
type RecordingWorker struct {
	rdb     *redis.Client
	blobs   blobPutter
	results recordingURLSetter
	log     zerolog.Logger
}

// NewRecordingWorker creates a new RecordingWorker.
func NewRecordingWorker(rdb *redis.Client, blobs blobPutter, results recordingURLSetter, log zerolog.Logger) *RecordingWorker {
	return &RecordingWorker{
		rdb:     rdb,
		blobs:   blobs,
		results: results,
		log:     log.With().Str("component", "recording_worker").Logger(),
	}
}

// Start begins the worker loop. Jobs still queued at shutdown are picked up on the next start.
func (w *RecordingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *RecordingWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.UploadRecordingsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			time.Sleep(3 * time.Second)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var job model.RecordingJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed job")
		return
	}

	log := w.log.With().
		Str("attempt_id", job.AttemptID.String()).
		Str("result_id", job.ResultID.String()).
		Logger()

	// Uploads outlive the request that queued them and must finish during shutdown.
	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Minute)
	defer cancel()

	url, err := w.upload(uploadCtx, &job)
	switch {
	case err == nil:
		metrics.WorkerJobs.WithLabelValues("recording", "ok").Inc()
		log.Info().Str("url", url).Msg("Recording uploaded")
		if err := os.Remove(job.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Msg("Failed to remove spool file")
		}

	case errors.Is(err, os.ErrNotExist):
		metrics.WorkerJobs.WithLabelValues("recording", "dropped").Inc()
		log.Error().Err(err).Msg("Spool file missing, dropping job")

	case job.Attempts+1 >= maxRecordingAttempts:
		metrics.WorkerJobs.WithLabelValues("recording", "dropped").Inc()
		log.Error().Err(err).Int("attempts", job.Attempts+1).Str("path", job.Path).Msg("Giving up on recording, spool file kept")

	default:
		job.Attempts++
		log.Error().Err(err).Int("attempts", job.Attempts).Msg("Upload failed, retrying in 5s")
		metrics.WorkerJobs.WithLabelValues("recording", "retry").Inc()
		raw, _ := json.Marshal(job)
		w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.UploadRecordingsQueue, raw)
		time.Sleep(5 * time.Second)
	}
}

func (w *RecordingWorker) upload(ctx context.Context, job *model.RecordingJob) (string, error) {
	f, err := os.Open(job.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat spool file: %w", err)
	}

	url, err := w.blobs.Put(ctx, recordingKey(job), f, info.Size(), job.ContentType)
	if err != nil {
		return "", fmt.Errorf("put recording: %w", err)
	}
	if err := w.results.SetRecordingURL(ctx, job.ResultID, url); err != nil {
		return "", fmt.Errorf("set recording url: %w", err)
	}
	return url, nil
}

// recordingKey names the blob after the result so a retried upload overwrites itself.
func recordingKey(job *model.RecordingJob) string {
	return fmt.Sprintf("recordings/%s/%s%s", job.AttemptID, job.ResultID, job.Ext)
}
