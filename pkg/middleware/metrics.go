package middleware

import (
	"sync"

	"github.com/fmal/impact/pkg/reactive"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "impact").
	Namespace string

	// Subsystem is the metrics subsystem (default: "reactive").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run and flush durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus instrumentation.
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

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "impact",
		Subsystem: "reactive",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for reactive runtimes.
type metrics struct {
	writesTotal     prometheus.Counter
	recomputesTotal *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	flushesTotal    prometheus.Counter
	flushDuration   prometheus.Histogram
	flushRuns       prometheus.Histogram
	budgetExceeded  prometheus.Counter
	nodesCreated    *prometheus.CounterVec
	nodesDisposed   *prometheus.CounterVec
}

// globalMetrics is shared by every Prometheus instrumentation using the
// default registry, so several runtimes can report into one process-wide
// set of series.
var (
	globalMetrics   *metrics
	globalMetricsMu sync.Mutex
)

// initMetrics creates and registers the Prometheus metrics.
func initMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		writesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of signal writes that changed a value",
			ConstLabels: config.ConstLabels,
		}),

		recomputesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of computed derivations by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runs_total",
			Help:        "Total number of effect runs and observer notifications",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "run_duration_seconds",
			Help:        "Effect run and observer notification duration in seconds",
			Buckets:     config.Buckets,
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of propagation flush passes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Propagation flush duration in seconds",
			Buckets:     config.Buckets,
			ConstLabels: config.ConstLabels,
		}),

		flushRuns: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_runs",
			Help:        "Number of runs performed by one flush pass",
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
			ConstLabels: config.ConstLabels,
		}),

		budgetExceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "budget_exceeded_total",
			Help:        "Total number of flush passes aborted by the run budget",
			ConstLabels: config.ConstLabels,
		}),

		nodesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_created_total",
			Help:        "Total number of graph nodes created by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		nodesDisposed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes_disposed_total",
			Help:        "Total number of graph nodes disposed by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// PrometheusInstrumentation records runtime events as Prometheus metrics.
type PrometheusInstrumentation struct {
	m *metrics
}

// Prometheus creates an instrumentation that collects Prometheus metrics
// for a reactive runtime.
//
// Metrics collected:
//   - impact_reactive_writes_total: Counter of value-changing writes
//   - impact_reactive_recomputes_total: Counter of derivations by status
//   - impact_reactive_runs_total: Counter of runs by node kind and status
//   - impact_reactive_run_duration_seconds: Histogram of run duration
//   - impact_reactive_flushes_total: Counter of flush passes
//   - impact_reactive_flush_duration_seconds: Histogram of flush duration
//   - impact_reactive_flush_runs: Histogram of runs per flush
//   - impact_reactive_budget_exceeded_total: Counter of aborted flushes
//   - impact_reactive_nodes_created_total / nodes_disposed_total
//
// With the default registry the metrics are created once per process and
// shared by every instrumentation.
//
// Example:
//
//	rt := reactive.NewRuntime(reactive.Config{
//	    Instrumentation: middleware.Prometheus(
//	        middleware.WithNamespace("myapp"),
//	    ),
//	})
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *PrometheusInstrumentation {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Registry != prometheus.DefaultRegisterer {
		return &PrometheusInstrumentation{m: initMetrics(config)}
	}

	// Initialize default-registry metrics once
	globalMetricsMu.Lock()
	defer globalMetricsMu.Unlock()
	if globalMetrics == nil {
		globalMetrics = initMetrics(config)
	}
	return &PrometheusInstrumentation{m: globalMetrics}
}

// Observe implements reactive.Instrumentation.
func (p *PrometheusInstrumentation) Observe(ev reactive.Event) {
	m := p.m
	switch ev.Kind {
	case reactive.EventCreate:
		m.nodesCreated.WithLabelValues(ev.Node.String()).Inc()
	case reactive.EventDispose:
		m.nodesDisposed.WithLabelValues(ev.Node.String()).Inc()
	case reactive.EventWrite:
		m.writesTotal.Inc()
	case reactive.EventRecompute:
		m.recomputesTotal.WithLabelValues(status(ev.Err)).Inc()
	case reactive.EventRun:
		kind := ev.Node.String()
		m.runsTotal.WithLabelValues(kind, status(ev.Err)).Inc()
		m.runDuration.WithLabelValues(kind).Observe(ev.Duration.Seconds())
	case reactive.EventFlush:
		m.flushesTotal.Inc()
		m.flushDuration.Observe(ev.Duration.Seconds())
		m.flushRuns.Observe(float64(ev.Runs))
	case reactive.EventBudgetExceeded:
		m.budgetExceeded.Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
