package monitoring

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
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	AttemptsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgen_attempts_started_total",
			Help: "Attempt tickets issued to students",
		},
	)

	// ResultsSubmitted outcome: graded, full, replayed, invalid
	ResultsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgen_results_submitted_total",
			Help: "Submissions by outcome",
		},
		[]string{"outcome"},
	)

	CapacityRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgen_capacity_rejections_total",
			Help: "Requests refused because a test was full",
		},
		[]string{"stage"},
	)

	ScoreRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quizgen_score_ratio",
			Help:    "Score divided by graded questions per submission",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizgen_generation_duration_seconds",
			Help:    "Time spent waiting for the question generator",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"status"},
	)

	GeneratedQuestions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgen_generated_questions_total",
			Help: "Questions stored after normalization",
		},
	)

	ActiveTests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "quizgen_active_tests",
			Help: "Tests that are not deleted",
		},
	)

	PurgedTests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quizgen_purged_tests_total",
			Help: "Soft-deleted tests removed by the retention job",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptsStarted,
			ResultsSubmitted,
			ScoreRatio,
			CapacityRejections,
			GenerationDuration,
			GeneratedQuestions,
			ActiveTests,
			PurgedTests,
		)
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

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
