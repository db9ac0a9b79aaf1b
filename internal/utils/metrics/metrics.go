// internal/utils/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Step outcomes.
const (
	StepConfirmed = "confirmed"
	StepFailed    = "failed"
	StepCancelled = "cancelled"
)

// RecordStep records one step outcome and, for confirmed steps, its duration.
func (c *Collector) RecordStep(workflow, kind, status string, duration time.Duration) {
	if counter, ok := load[*prometheus.CounterVec](c, StepCounterType); ok {
		counter.WithLabelValues(workflow, kind, status).Inc()
	}
	if status != StepConfirmed {
		return
	}
	if hist, ok := load[*prometheus.HistogramVec](c, StepDurationType); ok {
		hist.WithLabelValues(workflow, kind).Observe(duration.Seconds())
	}
}

// RecordWorkflow records a terminal workflow status.
func (c *Collector) RecordWorkflow(workflow, status string) {
	if counter, ok := load[*prometheus.CounterVec](c, WorkflowCounterType); ok {
		counter.WithLabelValues(workflow, status).Inc()
	}
}

// RecordQuote records router latency for a forward or reverse quote.
func (c *Collector) RecordQuote(direction string, duration time.Duration, noLiquidity bool) {
	if hist, ok := load[*prometheus.HistogramVec](c, QuoteLatencyType); ok {
		hist.WithLabelValues(direction).Observe(duration.Seconds())
	}
	if !noLiquidity {
		return
	}
	if counter, ok := load[prometheus.Counter](c, NoLiquidityType); ok {
		counter.Inc()
	}
}

// RecordStaleQuote counts a discarded out-of-order quote.
func (c *Collector) RecordStaleQuote() {
	if counter, ok := load[prometheus.Counter](c, StaleQuoteType); ok {
		counter.Inc()
	}
}

// RecordRegistryFetch records a full registry listing.
func (c *Collector) RecordRegistryFetch(duration time.Duration) {
	if hist, ok := load[prometheus.Histogram](c, RegistryFetchType); ok {
		hist.Observe(duration.Seconds())
	}
}
