package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeStale = "stale"
)

// Metrics holds the render collectors on a private registry.
type Metrics struct {
	registry      *prometheus.Registry
	renders       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	assetFailures *prometheus.CounterVec
	stale         prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_renders_total",
			Help: "Completed render invocations by quality and outcome.",
		}, []string{"quality", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "frame_render_seconds",
			Help:    "Render latency including asset loading.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"quality"}),
		assetFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "frame_asset_failures_total",
			Help: "Assets replaced by placeholders, by element kind.",
		}, []string{"element"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "frame_stale_renders_total",
			Help: "Renders discarded because a newer one was requested.",
		}),
	}
	m.registry.MustRegister(
		m.renders,
		m.duration,
		m.assetFailures,
		m.stale,
		prometheus.NewGoCollector(),
	)
	return m
}

// ObserveRender records one finished render.
func (m *Metrics) ObserveRender(quality, outcome string, elapsed time.Duration) {
	m.renders.WithLabelValues(quality, outcome).Inc()
	m.duration.WithLabelValues(quality).Observe(elapsed.Seconds())
	if outcome == OutcomeStale {
		m.stale.Inc()
	}
}

// AssetFailed records an asset that fell back to a placeholder.
func (m *Metrics) AssetFailed(element string) {
	m.assetFailures.WithLabelValues(element).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
