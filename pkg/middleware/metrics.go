package middleware

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/ssrpages/internal/errors"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "ssrpages").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "ssrpages",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the server's Prometheus metrics.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	routeMatches     *prometheus.CounterVec
	modulesGenerated *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	snapshotVersion  prometheus.Gauge
}

// NewMetrics creates and registers the metrics. Registering twice with the
// same registry panics; use one Metrics per registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of requests by kind and status class",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		routeMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "route_matches_total",
			Help:        "Route resolutions by result and route type",
			ConstLabels: config.ConstLabels,
		}, []string{"result", "route_type"}),

		modulesGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "virtual_modules_total",
			Help:        "Virtual page code modules served by side",
			ConstLabels: config.ConstLabels,
		}, []string{"side"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Errors by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		snapshotVersion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "config_snapshot_version",
			Help:        "Version of the page configuration snapshot being served",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Handler returns middleware that counts and times requests of kind.
func (m *Metrics) Handler(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			m.requestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			m.requestsTotal.WithLabelValues(kind, statusClass(rec.status)).Inc()
		})
	}
}

// RecordMatch records one route resolution. routeType is empty when no
// page matched.
func (m *Metrics) RecordMatch(matched bool, routeType string) {
	if m == nil {
		return
	}
	result := "matched"
	if !matched {
		result = "not_found"
		routeType = "none"
	}
	m.routeMatches.WithLabelValues(result, routeType).Inc()
}

// RecordModule records a served virtual module.
func (m *Metrics) RecordModule(side string) {
	if m == nil {
		return
	}
	m.modulesGenerated.WithLabelValues(side).Inc()
}

// RecordError counts err under its error code.
func (m *Metrics) RecordError(err error) {
	if m == nil || err == nil {
		return
	}
	m.errorsTotal.WithLabelValues(errorCode(err)).Inc()
}

// SetSnapshotVersion records the configuration snapshot being served.
func (m *Metrics) SetSnapshotVersion(v uint64) {
	if m == nil {
		return
	}
	m.snapshotVersion.Set(float64(v))
}

// errorCode keeps label cardinality bounded: coded errors use their code,
// everything else is "internal".
func errorCode(err error) string {
	var se *errors.SSRError
	if stderrors.As(err, &se) && se.Code != "" {
		return se.Code
	}
	return "internal"
}

// Requests returns the requests_total collector.
func (m *Metrics) Requests() *prometheus.CounterVec { return m.requestsTotal }

// RouteMatches returns the route_matches_total collector.
func (m *Metrics) RouteMatches() *prometheus.CounterVec { return m.routeMatches }

// ModulesGenerated returns the virtual_modules_total collector.
func (m *Metrics) ModulesGenerated() *prometheus.CounterVec { return m.modulesGenerated }

// SnapshotVersion returns the config_snapshot_version gauge.
func (m *Metrics) SnapshotVersion() prometheus.Gauge { return m.snapshotVersion }
