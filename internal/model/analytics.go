package model

// AnalyticsPeriod is the lookback window for attempt analytics.
type AnalyticsPeriod string

const (
	Period7Days  AnalyticsPeriod = "7d"
	Period30Days AnalyticsPeriod = "30d"
	Period90Days AnalyticsPeriod = "90d"
	PeriodAll    AnalyticsPeriod = "all"
)

// Days returns the window length in days; zero means unbounded.
func (p AnalyticsPeriod) Days() int {
	switch p {
	case Period7Days:
		return 7
	case Period30Days:
		return 30
	case Period90Days:
		return 90
	default:
		return 0
	}
}

// Valid reports whether p is a known period.
func (p AnalyticsPeriod) Valid() bool {
	switch p {
	case Period7Days, Period30Days, Period90Days, PeriodAll:
		return true
	}
	return false
}

// DailyAttemptStat is one day of the analytics series.
type DailyAttemptStat struct {
	Date      string `json:"date"`
	Started   int    `json:"started"`
	Completed int    `json:"completed"`
}

// AttemptAnalytics summarizes attempts over a period.
type AttemptAnalytics struct {
	Period       AnalyticsPeriod       `json:"period"`
	Total        int                   `json:"total"`
	ByStatus     map[AttemptStatus]int `json:"by_status"`
	AverageScore float64               `json:"average_score"`
	PassScore    int                   `json:"pass_score"`
	PassCount    int                   `json:"pass_count"`
	PassRate     float64               `json:"pass_rate"`
	Daily        []DailyAttemptStat    `json:"daily"`
}
