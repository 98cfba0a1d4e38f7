package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// liveLister lists in-progress attempts of a position.
type liveLister interface {
	ListLive(ctx context.Context, positionID uuid.UUID) ([]model.LiveAttempt, error)
}

// MonitorService publishes live attempt events over Redis PubSub and serves
// the initial snapshot for HR monitors.
type MonitorService struct {
	rdb      *redis.Client
	attempts liveLister
	log      zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, attempts liveLister, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		rdb:      rdb,
		attempts: attempts,
		log:      log.With().Str("component", "monitor_service").Logger(),
	}
}

// Publish sends evt to the position's monitor channel. Failures are logged only.
func (s *MonitorService) Publish(ctx context.Context, evt model.MonitorEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		s.log.Error().Err(err).Msg("Marshal monitor event")
		return
	}
	channel := config.CacheKey.PositionMonitorChannel(evt.PositionID.String())
	if err := s.rdb.Publish(ctx, channel, data).Err(); err != nil {
		s.log.Warn().Err(err).Str("type", string(evt.Type)).Msg("Failed to publish monitor event")
	}
}

// Snapshot returns the in-progress attempts of a position.
func (s *MonitorService) Snapshot(ctx context.Context, positionID uuid.UUID) ([]model.LiveAttempt, error) {
	return s.attempts.ListLive(ctx, positionID)
}

// Subscribe opens a subscription on the position's monitor channel. The caller closes it.
func (s *MonitorService) Subscribe(ctx context.Context, positionID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.PositionMonitorChannel(positionID.String()))
}
