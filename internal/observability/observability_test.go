package observability

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"quiz-portal-service/internal/config"
)

func TestNewLoggerWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	logger, err := NewLogger(config.LogConfig{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("expected JSON log line, got %s", data)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger(config.LogConfig{Level: "chatty"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSubmissionRecorder(t *testing.T) {
	var recorder SubmissionRecorder
	score := 2
	before := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("metrics-test", "graded"))
	pendingBefore := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("metrics-test", "pending_review"))

	recorder.ObserveSubmission("metrics-test", &score, 4, time.Millisecond)
	recorder.ObserveSubmission("metrics-test", nil, 4, time.Millisecond)

	if got := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("metrics-test", "graded")); got != before+1 {
		t.Fatalf("expected graded counter to increase, got %v", got)
	}
	if got := testutil.ToFloat64(SubmissionsTotal.WithLabelValues("metrics-test", "pending_review")); got != pendingBefore+1 {
		t.Fatalf("expected pending counter to increase, got %v", got)
	}
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	RegisterMetrics()
	RegisterMetrics()

	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", MetricsHandler())

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/ping", "200"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/ping", "200")); got != before+1 {
		t.Fatalf("expected request counter to increase, got %v", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("expected exposition output, got %d", rec.Code)
	}
}
