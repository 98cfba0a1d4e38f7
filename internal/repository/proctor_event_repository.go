package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

// ProctorEventRepository handles proctor event data access.
type ProctorEventRepository struct {
	pool *pgxpool.Pool
}

// NewProctorEventRepository creates a new ProctorEventRepository.
func NewProctorEventRepository(pool *pgxpool.Pool) *ProctorEventRepository {
	return &ProctorEventRepository{pool: pool}
}

func eventPayload(e *model.ProctorEvent) []byte {
	if len(e.Payload) == 0 {
		return []byte("{}")
	}
	return e.Payload
}

// InsertBatch bulk-inserts events with COPY.
func (r *ProctorEventRepository) InsertBatch(ctx context.Context, events []*model.ProctorEvent) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"proctor_events"},
		[]string{"attempt_id", "event_type", "payload", "occurred_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.AttemptID, string(e.EventType), string(eventPayload(e)), e.OccurredAt}, nil
		}),
	)
	return err
}

// Insert writes a single event.
func (r *ProctorEventRepository) Insert(ctx context.Context, e *model.ProctorEvent) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO proctor_events (attempt_id, event_type, payload, occurred_at)
		 VALUES ($1, $2, $3::jsonb, $4)
		 RETURNING id`,
		e.AttemptID, e.EventType, string(eventPayload(e)), e.OccurredAt,
	).Scan(&e.ID)
	return translate(err)
}

// CountsByAttempt returns the number of events per type recorded for an attempt.
func (r *ProctorEventRepository) CountsByAttempt(ctx context.Context, attemptID uuid.UUID) (map[model.ProctorEventType]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT event_type, COUNT(*)
		 FROM proctor_events
		 WHERE attempt_id = $1
		 GROUP BY event_type`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.ProctorEventType]int64)
	for rows.Next() {
		var t model.ProctorEventType
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}
