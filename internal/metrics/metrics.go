// Package metrics registers the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecowaste",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ecowaste",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecowaste",
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"route"},
	)

	certTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecowaste",
			Subsystem: "certification",
			Name:      "transitions_total",
			Help:      "Certification lifecycle transitions.",
		},
		[]string{"from", "to"},
	)

	sideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecowaste",
			Subsystem: "side_effects",
			Name:      "failures_total",
			Help:      "Best-effort side effects (audit, notification, email) that failed after retry.",
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		rateLimited,
		certTransitions,
		sideEffectFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one completed request.
func ObserveHTTP(method, route, status string, seconds float64) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(seconds)
}

func RateLimited(route string) { rateLimited.WithLabelValues(route).Inc() }

func CertificationTransition(from, to string) { certTransitions.WithLabelValues(from, to).Inc() }

func SideEffectFailed(kind string) { sideEffectFailures.WithLabelValues(kind).Inc() }
