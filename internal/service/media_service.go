package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/proctorly/interview-backend/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Sentinel errors for media uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)

// Allowed image MIME types.
var allowedMIMETypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Allowed recording MIME types. Browsers record webm; Safari records mp4.
var recordingMIMETypes = map[string]string{
	"video/webm": ".webm",
	"video/mp4":  ".mp4",
	"audio/webm": ".webm",
}

// MediaService handles question image uploads and recording spooling.
type MediaService struct {
	cfg   *config.Config
	blobs storage.BlobStore
	rdb   *redis.Client
}

// NewMediaService creates a new MediaService.
func NewMediaService(cfg *config.Config, blobs storage.BlobStore, rdb *redis.Client) *MediaService {
	return &MediaService{cfg: cfg, blobs: blobs, rdb: rdb}
}

// SaveUpload stores an uploaded question image with a UUID filename and returns its URL.
func (s *MediaService) SaveUpload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	contentType := header.Header.Get("Content-Type")
	ext, ok := allowedMIMETypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s (allowed: %s)",
			ErrUnsupportedFileType, contentType, strings.Join(mimeKeys(allowedMIMETypes), ", "))
	}

	if header.Size > s.cfg.MaxUploadBytes {
		return "", fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxUploadBytes)
	}

	key := "images/" + uuid.New().String() + ext
	url, err := s.blobs.Put(ctx, key, file, header.Size, contentType)
	if err != nil {
		return "", fmt.Errorf("store file: %w", err)
	}
	return url, nil
}

// SpoolRecording writes the recording to the local spool directory and queues it for upload.
func (s *MediaService) SpoolRecording(ctx context.Context, resultID, attemptID uuid.UUID, rec *RecordingUpload) error {
	contentType := strings.TrimSpace(strings.Split(rec.ContentType, ";")[0])
	ext, ok := recordingMIMETypes[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(rec.Filename))
		if ext == "" {
			ext = ".webm"
		}
		contentType = "application/octet-stream"
	}

	if rec.Size > s.cfg.MaxRecordingBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, rec.Size, s.cfg.MaxRecordingBytes)
	}

	if err := os.MkdirAll(s.cfg.SpoolDir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	path := filepath.Join(s.cfg.SpoolDir, uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create spool file: %w", err)
	}

	n, err := io.Copy(dst, io.LimitReader(rec.Reader, s.cfg.MaxRecordingBytes+1))
	closeErr := dst.Close()
	if err == nil && n > s.cfg.MaxRecordingBytes {
		err = fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.cfg.MaxRecordingBytes)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write spool file: %w", err)
	}

	job, err := json.Marshal(model.RecordingJob{
		ResultID:    resultID,
		AttemptID:   attemptID,
		Path:        path,
		Ext:         ext,
		ContentType: contentType,
	})
	if err != nil {
		os.Remove(path)
		return err
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.UploadRecordingsQueue, job).Err(); err != nil {
		os.Remove(path)
		return fmt.Errorf("queue recording: %w", err)
	}
	return nil
}

func mimeKeys(m map[string]string) []string {
	types := make([]string, 0, len(m))
	for k := range m {
		types = append(types, k)
	}
	sort.Strings(types)
	return types
}
