package httphandler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the credential service.
// A nil *Metrics records nothing.
type Metrics struct {
	requests      *prometheus.CounterVec
	storeOps      *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teampanel",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
		storeOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teampanel",
			Name:      "store_operations_total",
			Help:      "Credential store operations by operation and result.",
		}, []string{"op", "result"}),
		storeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teampanel",
			Name:      "store_operation_duration_seconds",
			Help:      "Credential store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// MetricsHandler serves the collectors gathered by g in the Prometheus
// exposition format.
func MetricsHandler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) observeStore(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeOps.WithLabelValues(op, result).Inc()
	m.storeDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeRequest(method string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(methodLabel(method), strconv.Itoa(status)).Inc()
}

// methodLabel folds every method the API does not serve into "other" so
// clients cannot mint new series.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodPost:
		return method
	default:
		return "other"
	}
}

// metricsMiddleware counts requests by method and final status.
func metricsMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.observeRequest(r.Method, sw.status)
	})
}
