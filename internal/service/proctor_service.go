package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// ProctorService accepts monitoring signals from candidate clients and queues them for batch insert.
type ProctorService struct {
	rdb       *redis.Client
	publisher Publisher
}

// NewProctorService creates a new ProctorService.
func NewProctorService(rdb *redis.Client, publisher Publisher) *ProctorService {
	return &ProctorService{rdb: rdb, publisher: publisher}
}

// Report queues a proctor event for an in-progress attempt.
func (s *ProctorService) Report(ctx context.Context, a *model.Attempt, req *model.ReportProctorEventRequest) error {
	if !a.InProgress() {
		return ErrInvalidState
	}

	occurred := time.Now().UTC()
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() && req.OccurredAt.Before(occurred) {
		occurred = req.OccurredAt.UTC()
	}

	evt := model.ProctorEvent{
		AttemptID:  a.ID,
		EventType:  req.EventType,
		Payload:    req.Payload,
		OccurredAt: occurred,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistProctorQueue, data).Err(); err != nil {
		return fmt.Errorf("queue event: %w", err)
	}

	s.publisher.Publish(ctx, model.MonitorEvent{
		Type:        model.MonitorProctorEvent,
		AttemptID:   a.ID,
		CandidateID: a.CandidateID,
		PositionID:  a.PositionID,
		Data:        map[string]any{"event_type": req.EventType},
		At:          occurred,
	})
	return nil
}
