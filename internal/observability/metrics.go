package observability

import (
	"strconv"
	"sync"
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
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_submissions_total",
			Help: "Graded submissions by quiz slug and outcome",
		},
		[]string{"slug", "outcome"},
	)

	SubmissionScoreRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_submission_score_ratio",
			Help:    "Score divided by total points for fully graded submissions",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"slug"},
	)

	GradingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quiz_grading_duration_seconds",
			Help:    "Time spent loading, grading and storing a submission",
			Buckets: prometheus.DefBuckets,
		},
	)

	registerOnce sync.Once
)

// RegisterMetrics adds the service collectors to the default registry. It is
// safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, SubmissionsTotal, SubmissionScoreRatio, GradingDuration)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
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

func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// SubmissionRecorder reports graded submissions to Prometheus.
type SubmissionRecorder struct{}

func (SubmissionRecorder) ObserveSubmission(slug string, score *int, totalPoints int, elapsed time.Duration) {
	GradingDuration.Observe(elapsed.Seconds())
	if score == nil {
		SubmissionsTotal.WithLabelValues(slug, "pending_review").Inc()
		return
	}
	SubmissionsTotal.WithLabelValues(slug, "graded").Inc()
	if totalPoints > 0 {
		SubmissionScoreRatio.WithLabelValues(slug).Observe(float64(*score) / float64(totalPoints))
	}
}
