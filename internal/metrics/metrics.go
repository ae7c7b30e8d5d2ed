package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatrelay"

// Metrics groups the relay's Prometheus collectors. All methods are safe for
// concurrent use.
type Metrics struct {
	registry           *prometheus.Registry
	chatRequests       *prometheus.CounterVec
	fallbacks          *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
}

// New creates the collectors on a private registry, so tests can build as
// many instances as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by backend and outcome.",
		}, []string{"backend", "outcome"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_substitutions_total",
			Help:      "Replies replaced by the fallback string.",
		}, []string{"backend"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent waiting on the generation backend.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"backend"}),
	}
	m.registry.MustRegister(
		m.chatRequests,
		m.fallbacks,
		m.generationDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveGeneration records one backend call.
func (m *Metrics) ObserveGeneration(backend string, elapsed time.Duration, err error) {
	m.generationDuration.WithLabelValues(backend).Observe(elapsed.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.chatRequests.WithLabelValues(backend, outcome).Inc()
}

// ObserveFallback records a fallback substitution.
func (m *Metrics) ObserveFallback(backend string) {
	m.fallbacks.WithLabelValues(backend).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
