package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the reconciliation collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	activations     *prometheus.CounterVec
	surfacesCreated prometheus.Counter
	createFailures  prometheus.Counter
	rulesSkipped    prometheus.Counter
	destroyErrors   prometheus.Counter
	liveSurfaces    prometheus.Gauge
	activationTime  prometheus.Histogram
}

// New registers the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		activations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "screenmask_activations_total",
				Help: "Total number of engine activations by result",
			},
			[]string{"result"},
		),
		surfacesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenmask_surfaces_created_total",
			Help: "Total number of mask surfaces created",
		}),
		createFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenmask_surface_create_failures_total",
			Help: "Total number of mask surfaces the driver failed to create",
		}),
		rulesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenmask_rules_skipped_total",
			Help: "Total number of enabled rules skipped for empty geometry",
		}),
		destroyErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "screenmask_surface_destroy_errors_total",
			Help: "Total number of surface destroy calls that returned an error",
		}),
		liveSurfaces: factory.NewGauge(prometheus.GaugeOpts{
			Name: "screenmask_live_surfaces",
			Help: "Number of mask surfaces currently on screen",
		}),
		activationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "screenmask_activation_duration_seconds",
			Help:    "Duration of engine activations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~0.8s
		}),
	}
}

// Registry exposes the underlying registry (tests, custom handlers).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Activation summarises one reconciliation pass for recording.
type Activation struct {
	Denied   bool
	Created  int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// RecordActivation records the result of one activation.
func (m *Metrics) RecordActivation(a Activation) {
	if m == nil {
		return
	}
	result := "active"
	if a.Denied {
		result = "denied"
	}
	m.activations.WithLabelValues(result).Inc()
	m.surfacesCreated.Add(float64(a.Created))
	m.createFailures.Add(float64(a.Failed))
	m.rulesSkipped.Add(float64(a.Skipped))
	m.activationTime.Observe(a.Duration.Seconds())
}

// RecordDestroyError counts a destroy failure.
func (m *Metrics) RecordDestroyError() {
	if m == nil {
		return
	}
	m.destroyErrors.Inc()
}

// SetLive updates the live surface gauge.
func (m *Metrics) SetLive(n int) {
	if m == nil {
		return
	}
	m.liveSurfaces.Set(float64(n))
}
