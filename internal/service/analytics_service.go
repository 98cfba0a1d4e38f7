package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/proctorly/interview-backend/internal/model"
)

// unboundedSeriesDays caps the daily series for the "all" period.
const unboundedSeriesDays = 90

// AnalyticsStore aggregates attempt statistics.
type AnalyticsStore interface {
	StatusCounts(ctx context.Context, since time.Time) (map[model.AttemptStatus]int, error)
	ScoreSummary(ctx context.Context, since time.Time, passScore int) (float64, int, error)
	DailySeries(ctx context.Context, since time.Time) ([]model.DailyAttemptStat, error)
}

// AnalyticsService builds the admin attempt analytics report.
type AnalyticsService struct {
	store     AnalyticsStore
	passScore int
	now       func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(store AnalyticsStore, passScore int) *AnalyticsService {
	return &AnalyticsService{store: store, passScore: passScore, now: time.Now}
}

// Report returns totals, scores and a daily series for the period.
func (s *AnalyticsService) Report(ctx context.Context, period model.AnalyticsPeriod) (*model.AttemptAnalytics, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: unknown period %q", ErrValidation, period)
	}

	now := s.now().UTC()
	since := time.Time{}
	seriesSince := now.AddDate(0, 0, -unboundedSeriesDays+1)
	if days := period.Days(); days > 0 {
		since = now.AddDate(0, 0, -days+1).Truncate(24 * time.Hour)
		seriesSince = since
	}

	counts, err := s.store.StatusCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	avg, passCount, err := s.store.ScoreSummary(ctx, since, s.passScore)
	if err != nil {
		return nil, fmt.Errorf("score summary: %w", err)
	}
	daily, err := s.store.DailySeries(ctx, seriesSince)
	if err != nil {
		return nil, fmt.Errorf("daily series: %w", err)
	}

	report := &model.AttemptAnalytics{
		Period:       period,
		ByStatus:     counts,
		AverageScore: math.Round(avg*100) / 100,
		PassScore:    s.passScore,
		PassCount:    passCount,
		Daily:        daily,
	}
	for _, n := range counts {
		report.Total += n
	}
	if completed := counts[model.AttemptStatusCompleted]; completed > 0 {
		report.PassRate = math.Round(float64(passCount)/float64(completed)*10000) / 100
	}
	return report, nil
}
