package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the optimization service on its own
// registry, so tests and multiple servers never collide on registration.
type Metrics struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	optimizations        *prometheus.CounterVec
	optimizationDuration prometheus.Histogram
	solverNodes          prometheus.Histogram
	cacheLookups         *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
}

// MetricsOption configures Metrics
type MetricsOption func(*Metrics)

// WithNamespace sets the namespace prefix of every metric
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets the latency buckets, in seconds
func WithHistogramBuckets(buckets []float64) MetricsOption {
	return func(m *Metrics) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// LatencyBuckets spans 5ms to the solver time limit so slow solves stay
// distinguishable. It returns nil, keeping the defaults, when there is no limit.
func LatencyBuckets(limit time.Duration) []float64 {
	if limit <= 0 {
		return nil
	}
	maximum := limit.Seconds()
	if maximum <= prometheus.DefBuckets[len(prometheus.DefBuckets)-1] {
		return nil
	}
	return prometheus.ExponentialBucketsRange(0.005, maximum, 12)
}

// WithRegistry registers the metrics on registry instead of a fresh one
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(m *Metrics) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewMetrics creates and registers the service metrics
func NewMetrics(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace: "fpl",
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)
	m.optimizations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "optimizer",
		Name:      "optimizations_total",
		Help:      "Squad optimizations by solver status",
	}, []string{"status"})

	m.optimizationDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "optimizer",
		Name:      "optimization_duration_seconds",
		Help:      "Time spent building and solving one squad model",
		Buckets:   m.buckets,
	})

	m.solverNodes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "optimizer",
		Name:      "solver_nodes",
		Help:      "Branch-and-bound nodes explored per optimization",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Squad cache lookups by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   m.buckets,
	}, []string{"endpoint", "method"})

	return m
}

// ObserveOptimization records one finished optimization
func (m *Metrics) ObserveOptimization(status string, duration time.Duration, nodes int) {
	m.optimizations.WithLabelValues(status).Inc()
	m.optimizationDuration.Observe(duration.Seconds())
	m.solverNodes.Observe(float64(nodes))
}

// ObserveCacheLookup records a cache hit or miss
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(endpoint, method string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
