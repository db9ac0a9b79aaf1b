// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricType names a metric family held by the collector.
type MetricType string

const (
	StepCounterType     MetricType = "step_counter"
	StepDurationType    MetricType = "step_duration"
	WorkflowCounterType MetricType = "workflow_counter"
	QuoteLatencyType    MetricType = "quote_latency"
	NoLiquidityType     MetricType = "no_liquidity"
	StaleQuoteType      MetricType = "stale_quotes"
	RegistryFetchType   MetricType = "registry_fetch"
)

const namespace = "launchpad"

// Collector owns its metric families and a private registry, so several
// collectors (one per test, say) never collide on registration. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry
	metrics  sync.Map
}

// NewCollector creates and registers all metric families.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		StepCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Pipeline steps by workflow, step kind and outcome",
		}, []string{"workflow", "kind", "status"}),
		StepDurationType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Time from step build to confirmation",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"workflow", "kind"}),
		WorkflowCounterType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflows_total",
			Help:      "Finished workflows by terminal status",
		}, []string{"workflow", "status"}),
		QuoteLatencyType: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_latency_seconds",
			Help:      "Router quote latency",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"direction"}),
		NoLiquidityType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_liquidity_total",
			Help:      "Quotes that found no usable pool",
		}),
		StaleQuoteType: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_quotes_total",
			Help:      "Quote responses discarded because a newer request was issued",
		}),
		RegistryFetchType: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_fetch_seconds",
			Help:      "Full token registry fetch duration",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Registry exposes the private registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Reset clears every vector metric.
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

func load[T any](c *Collector, t MetricType) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	v, ok := c.metrics.Load(t)
	if !ok {
		return zero, false
	}
	m, ok := v.(T)
	return m, ok
}
