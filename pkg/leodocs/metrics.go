package leodocs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives engine observations.
type Metrics interface {
	ObserveRender(template string, duration time.Duration, err error)
	ObserveCache(hit bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRender(string, time.Duration, error) {}
func (nopMetrics) ObserveCache(bool)                          {}

// PrometheusMetrics records renders and cache lookups as Prometheus series.
type PrometheusMetrics struct {
	renders  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	cache    *prometheus.CounterVec
}

// NewPrometheusMetrics creates the collectors and registers them with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leodocs",
			Name:      "renders_total",
			Help:      "Template renders by template and result.",
		}, []string{"template", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "leodocs",
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering a template.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"template"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leodocs",
			Name:      "template_cache_lookups_total",
			Help:      "Template cache lookups by outcome.",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.renders, m.duration, m.cache} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) ObserveRender(template string, duration time.Duration, err error) {
	m.renders.WithLabelValues(template, ErrorClass(err)).Inc()
	m.duration.WithLabelValues(template).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) ObserveCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cache.WithLabelValues(outcome).Inc()
}
