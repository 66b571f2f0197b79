package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pavelanni/exampro/internal/model"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)

	SubmissionsGraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exampro_submissions_graded_total",
			Help: "Graded submissions by source (submit, regrade, override)",
		},
		[]string{"source"},
	)

	ScoreDistribution = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "exampro_score",
			Help:    "Distribution of reported scores of graded submissions",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		},
	)

	ExceedsScale = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "exampro_score_exceeds_scale_total",
			Help: "Graded submissions whose raw score is above the configured maximum",
		},
	)
)

var registerOnce sync.Once

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		RequestCounter, RequestDuration, SubmissionsGraded, ScoreDistribution, ExceedsScale,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		if err := Register(prometheus.DefaultRegisterer); err != nil {
			panic(err)
		}
	})
}

// ObserveGrade records one grading outcome.
func ObserveGrade(source string, res model.GradingResult) {
	SubmissionsGraded.WithLabelValues(source).Inc()
	ScoreDistribution.Observe(res.Score)
	if res.ExceedsScale {
		ExceedsScale.Inc()
	}
}

// Middleware counts requests per chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
