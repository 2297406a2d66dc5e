package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabricctl",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total control-plane API requests.",
		},
		[]string{"method", "path", "status"},
	)
	apiDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fabricctl",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Control-plane API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	itemOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabricctl",
			Subsystem: "deploy",
			Name:      "items_total",
			Help:      "Deployed item outcomes by type and status.",
		},
		[]string{"type", "status"},
	)
	tokenExchanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fabricctl",
			Subsystem: "auth",
			Name:      "token_exchanges_total",
			Help:      "Client-credentials token exchanges performed.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(apiRequests, apiDuration, itemOutcomes, tokenExchanges)
	})
}

// RecordAPICall records one control-plane request; status 0 means the call
// never produced a response (network failure or timeout).
func RecordAPICall(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	apiRequests.WithLabelValues(method, path, statusLabel).Inc()
	apiDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordItemOutcome(itemType, status string) {
	RegisterMetrics()
	itemOutcomes.WithLabelValues(itemType, status).Inc()
}

func RecordTokenExchange() {
	RegisterMetrics()
	tokenExchanges.Inc()
}
