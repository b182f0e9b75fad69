package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry *prometheus.Registry
	runs     *prometheus.CounterVec
	active   prometheus.Gauge
	calls    *prometheus.HistogramVec
	duration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "simplexopt",
			Name:      "optimizations_total",
			Help:      "Finished optimizations by problem and final status.",
		}, []string{"problem", "status"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "simplexopt",
			Name:      "optimizations_active",
			Help:      "Optimizations currently pending or running.",
		}),
		calls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simplexopt",
			Name:      "objective_calls",
			Help:      "Objective evaluations per optimization.",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}, []string{"problem"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "simplexopt",
			Name:      "optimization_duration_seconds",
			Help:      "Wall time per optimization.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"problem"}),
	}
	m.registry.MustRegister(m.runs, m.active, m.calls, m.duration)
	return m
}

// MetricsHandler exposes the server's metrics in the Prometheus text format.
func (s *Server) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})
}
