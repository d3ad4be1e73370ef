package ratelimiter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector is notified about the outcome of every acquisition.
type MetricsCollector interface {
	// IncAcquired increments the number of granted tokens for the model.
	IncAcquired(model string)

	// IncRejected increments the number of denied or timed out acquisitions for the model.
	IncRejected(model string)

	// ObserveWait records how long a blocking acquisition waited before it was granted.
	ObserveWait(model string, d time.Duration)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// WaitBuckets overrides the histogram buckets of the wait duration.
	WaitBuckets []float64
}

// PrometheusMetrics counts limiter decisions per model.
type PrometheusMetrics struct {
	AcquiredTotal *prometheus.CounterVec
	RejectedTotal *prometheus.CounterVec
	WaitSeconds   *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	buckets := opts.WaitBuckets
	if len(buckets) == 0 {
		buckets = []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 4, 8, 16, 30, 60}
	}

	return &PrometheusMetrics{
		AcquiredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "ratelimiter_acquired_total",
				Help:        "Number of requests admitted by the rate limiter.",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"model"},
		),
		RejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   opts.Namespace,
				Name:        "ratelimiter_rejected_total",
				Help:        "Number of requests denied by the rate limiter or timed out waiting.",
				ConstLabels: opts.ConstLabels,
			},
			[]string{"model"},
		),
		WaitSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   opts.Namespace,
				Name:        "ratelimiter_wait_seconds",
				Help:        "Time spent waiting for a token before admission.",
				ConstLabels: opts.ConstLabels,
				Buckets:     buckets,
			},
			[]string{"model"},
		),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.AcquiredTotal,
		pm.RejectedTotal,
		pm.WaitSeconds,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.AcquiredTotal)
	prometheus.Unregister(pm.RejectedTotal)
	prometheus.Unregister(pm.WaitSeconds)
}

// IncAcquired increments the number of granted tokens for the model.
func (pm *PrometheusMetrics) IncAcquired(model string) {
	pm.AcquiredTotal.WithLabelValues(model).Inc()
}

// IncRejected increments the number of denied acquisitions for the model.
func (pm *PrometheusMetrics) IncRejected(model string) {
	pm.RejectedTotal.WithLabelValues(model).Inc()
}

// ObserveWait records the wait time of a granted blocking acquisition.
func (pm *PrometheusMetrics) ObserveWait(model string, d time.Duration) {
	pm.WaitSeconds.WithLabelValues(model).Observe(d.Seconds())
}

// RegistryCollector exports the balance of every limiter in a Registry at scrape time.
type RegistryCollector struct {
	registry  *Registry
	available *prometheus.Desc
	capacity  *prometheus.Desc
}

// Ensure RegistryCollector implements prometheus.Collector.
var _ prometheus.Collector = (*RegistryCollector)(nil)

// NewRegistryCollector creates a collector for the registry's limiters.
func NewRegistryCollector(registry *Registry, namespace string) *RegistryCollector {
	return &RegistryCollector{
		registry: registry,
		available: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ratelimiter", "available_tokens"),
			"Tokens currently available in the model's bucket.",
			[]string{"model"}, nil,
		),
		capacity: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ratelimiter", "capacity"),
			"Maximum number of tokens in the model's bucket.",
			[]string{"model"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.available
	ch <- c.capacity
}

// Collect implements prometheus.Collector.
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.registry.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, st.AvailableTokens, st.Model)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(st.Capacity), st.Model)
	}
}

type disabledMetrics struct{}

func (disabledMetrics) IncAcquired(string)                {}
func (disabledMetrics) IncRejected(string)                {}
func (disabledMetrics) ObserveWait(string, time.Duration) {}

var disabledMetricsCollector = disabledMetrics{}
