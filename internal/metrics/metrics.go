package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attempts_created_total",
		Help: "Test attempts created",
	})

	// Submissions is labelled by mode (manual|auto).
	Submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempt_submissions_total",
			Help: "Successful test submissions",
		},
		[]string{"mode"},
	)

	ProgressSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "progress_saves_total",
		Help: "Progress snapshots accepted",
	})

	LiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "attempt_streams_open",
		Help: "Open candidate WebSocket streams",
	})

	// WorkerJobs is labelled by worker and outcome (ok|retry|dropped).
	WorkerJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_total",
			Help: "Background jobs processed",
		},
		[]string{"worker", "outcome"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(RequestCounter, RequestDuration, AttemptsCreated, Submissions, ProgressSaves, LiveStreams, WorkerJobs)
}

// Middleware records request counts and latencies per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
