package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorly/interview-backend/internal/model"
)

// AnalyticsRepository aggregates attempt statistics for the admin dashboard.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// StatusCounts returns the number of attempts per status started at or after since.
func (r *AnalyticsRepository) StatusCounts(ctx context.Context, since time.Time) (map[model.AttemptStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM test_attempts WHERE started_at >= $1 GROUP BY status`, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AttemptStatus]int)
	for rows.Next() {
		var status model.AttemptStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// ScoreSummary returns the average score and the number of results at or above passScore.
func (r *AnalyticsRepository) ScoreSummary(ctx context.Context, since time.Time, passScore int) (avg float64, passCount int, err error) {
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(r.score), 0)::float8, COUNT(*) FILTER (WHERE r.score >= $2)
		 FROM test_results r
		 JOIN test_attempts a ON a.id = r.attempt_id
		 WHERE a.started_at >= $1`, since, passScore,
	).Scan(&avg, &passCount)
	return
}

// DailySeries returns started and completed counts per UTC day since the given time.
func (r *AnalyticsRepository) DailySeries(ctx context.Context, since time.Time) ([]model.DailyAttemptStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT to_char(d.day, 'YYYY-MM-DD'),
			COUNT(a.id) FILTER (WHERE date_trunc('day', a.started_at AT TIME ZONE 'UTC') = d.day),
			(SELECT COUNT(*) FROM test_attempts c
			 WHERE c.status = 'completed'
			   AND date_trunc('day', c.completed_at AT TIME ZONE 'UTC') = d.day)
		 FROM generate_series(
			date_trunc('day', $1::timestamptz AT TIME ZONE 'UTC'),
			date_trunc('day', NOW() AT TIME ZONE 'UTC'),
			interval '1 day'
		 ) AS d(day)
		 LEFT JOIN test_attempts a ON date_trunc('day', a.started_at AT TIME ZONE 'UTC') = d.day
		 GROUP BY d.day
		 ORDER BY d.day`, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := []model.DailyAttemptStat{}
	for rows.Next() {
		var s model.DailyAttemptStat
		if err := rows.Scan(&s.Date, &s.Started, &s.Completed); err != nil {
			return nil, err
		}
		series = append(series, s)
	}
	return series, rows.Err()
}
