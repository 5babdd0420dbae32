package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager bundles the service's Prometheus collectors.
type MetricsManager struct {
	ListingsCreatedTotal   prometheus.Counter
	ListingsDeletedTotal   prometheus.Counter
	FeaturedChangesTotal   prometheus.Counter
	StoreRefreshesTotal    prometheus.Counter
	APIErrorsTotal         *prometheus.CounterVec
	RequestDurationSeconds *prometheus.HistogramVec
}

func NewMetricsManager() *MetricsManager {
	return &MetricsManager{
		ListingsCreatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caravan_listings_created_total",
			Help: "Total number of listings created.",
		}),
		ListingsDeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caravan_listings_deleted_total",
			Help: "Total number of listings deleted.",
		}),
		FeaturedChangesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caravan_featured_changes_total",
			Help: "Total number of featured listing changes.",
		}),
		StoreRefreshesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "caravan_store_refreshes_total",
			Help: "Total number of listing snapshot refreshes.",
		}),
		APIErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "caravan_api_errors_total",
			Help: "Total number of API errors by status code.",
		}, []string{"status"}),
		RequestDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "caravan_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Instrument records latency per route and counts error responses.
func (m *MetricsManager) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		m.RequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		if ww.Status() >= 400 {
			m.APIErrorsTotal.WithLabelValues(strconv.Itoa(ww.Status())).Inc()
		}
	})
}

// StartMetricsServer exposes /metrics on its own port. It blocks, so run it
// in a goroutine.
func StartMetricsServer(port string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("Metrics server listening", zap.String("port", port))
	return http.ListenAndServe(":"+port, mux)
}
