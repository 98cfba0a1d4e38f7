package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/proctorly/interview-backend/internal/config"
	"github.com/proctorly/interview-backend/internal/model"
	"github.com/redis/go-redis/v9"
)

// progressTTL bounds how long an abandoned snapshot lingers in Redis.
const progressTTL = 24 * time.Hour

// ProgressCache keeps the hot copy of progress snapshots in Redis.
type ProgressCache struct {
	rdb *redis.Client
}

// NewProgressCache creates a new ProgressCache.
func NewProgressCache(rdb *redis.Client) *ProgressCache {
	return &ProgressCache{rdb: rdb}
}

// Get returns the cached snapshot, or ErrNotFound on a miss.
func (c *ProgressCache) Get(ctx context.Context, attemptID uuid.UUID) (*model.Progress, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.AttemptProgressKey(attemptID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var p model.Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Set stores the snapshot, replacing any previous one.
func (c *ProgressCache) Set(ctx context.Context, p *model.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, config.CacheKey.AttemptProgressKey(p.AttemptID.String()), data, progressTTL).Err()
}

// Delete drops the cached snapshot.
func (c *ProgressCache) Delete(ctx context.Context, attemptID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.AttemptProgressKey(attemptID.String())).Err()
}

// EnqueuePersist schedules the durable write of the attempt's current snapshot.
func (c *ProgressCache) EnqueuePersist(ctx context.Context, attemptID uuid.UUID) error {
	return c.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, attemptID.String()).Err()
}
