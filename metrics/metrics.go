// Package metrics exposes Prometheus metrics for preview serving and generation.
//
// Metrics:
//   - <ns>_preview_serves_total: preview requests by result (hit, placeholder)
//   - <ns>_preview_generations_total: generation attempts by outcome (skipped, loaded, failed)
//   - <ns>_render_duration_seconds: latency of render calls
//
// All recording methods are safe to call on a nil *Collector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ServeHit         = "hit"
	ServePlaceholder = "placeholder"

	GenerationSkipped = "skipped"
	GenerationLoaded  = "loaded"
	GenerationFailed  = "failed"
)

type Collector struct {
	registry *prometheus.Registry

	servesTotal      *prometheus.CounterVec
	generationsTotal *prometheus.CounterVec
	renderDuration   prometheus.Histogram
}

// NewCollector creates and registers all metrics with the provided registry.
// If registry is nil, a new one is created.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Collector{
		registry: registry,

		servesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preview_serves_total",
				Help:      "Total number of preview image requests by result",
			},
			[]string{"result"},
		),

		generationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "preview_generations_total",
				Help:      "Total number of preview generation attempts by outcome",
			},
			[]string{"outcome"},
		),

		// PSI runs take seconds to tens of seconds
		renderDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Duration of screenshot render calls",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
		),
	}

	registry.MustRegister(
		c.servesTotal,
		c.generationsTotal,
		c.renderDuration,
	)

	return c
}

// RecordServe records the result of serving a preview request.
func (c *Collector) RecordServe(result string) {
	if c == nil {
		return
	}
	c.servesTotal.WithLabelValues(result).Inc()
}

// RecordGeneration records the outcome of a generation attempt.
func (c *Collector) RecordGeneration(outcome string) {
	if c == nil {
		return
	}
	c.generationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRender records the duration of a render call.
func (c *Collector) ObserveRender(d time.Duration) {
	if c == nil {
		return
	}
	c.renderDuration.Observe(d.Seconds())
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
