// Package prometheus exports ledger-core metrics to Prometheus.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ledger-core/pkg/metrics"
)

// Collector implements metrics.Collector backed by Prometheus vectors.
// It also implements prometheus.Collector so it can be registered with a
// registry directly.
type Collector struct {
	transfers        *prometheus.CounterVec
	transferLatency  *prometheus.HistogramVec
	lockRetries      prometheus.Counter
	reads            *prometheus.CounterVec
	readLatency      *prometheus.HistogramVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheGetLatency  *prometheus.HistogramVec
	circuitState     *prometheus.GaugeVec
	circuitOpens     *prometheus.CounterVec
}

// NewCollector creates a Prometheus metrics collector under the given
// namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		transfers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfers_total",
				Help:      "Total number of transfer attempts by outcome code",
			},
			[]string{"outcome"},
		),
		transferLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_duration_seconds",
				Help:      "Transfer execution latency by outcome code",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
			},
			[]string{"outcome"},
		),
		lockRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lock_retries_total",
				Help:      "Total number of transparent retries after deadlock or serialization failure",
			},
		),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reads_total",
				Help:      "Total number of read-side operations by type and outcome code",
			},
			[]string{"op", "outcome"},
		),
		readLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "read_duration_seconds",
				Help:      "History and statement read latency",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"op"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of read-cache hits per layer",
			},
			[]string{"layer"},
		),
		cacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of read-cache misses per layer",
			},
			[]string{"layer"},
		),
		cacheGetLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "cache_get_duration_seconds",
				Help:      "Read-cache lookup latency per layer",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"layer"},
		),
		circuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_state",
				Help:      "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"name"},
		),
		circuitOpens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_opens_total",
				Help:      "Total number of circuit breaker opens",
			},
			[]string{"name"},
		),
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.transfers,
		c.transferLatency,
		c.lockRetries,
		c.reads,
		c.readLatency,
		c.cacheHits,
		c.cacheMisses,
		c.cacheGetLatency,
		c.circuitState,
		c.circuitOpens,
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, col := range c.collectors() {
		col.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, col := range c.collectors() {
		col.Collect(ch)
	}
}

// RegisterWith registers every vector with the given registry.
func (c *Collector) RegisterWith(registry *prometheus.Registry) error {
	for _, col := range c.collectors() {
		if err := registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}

// RecordTransfer records one transfer attempt.
func (c *Collector) RecordTransfer(outcome string, duration time.Duration) {
	c.transfers.WithLabelValues(outcome).Inc()
	c.transferLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordLockRetry records one transparent deadlock retry.
func (c *Collector) RecordLockRetry() {
	c.lockRetries.Inc()
}

// RecordRead records a history or statement read.
func (c *Collector) RecordRead(op, outcome string, duration time.Duration) {
	c.reads.WithLabelValues(op, outcome).Inc()
	c.readLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordCacheGet records a read-cache lookup.
func (c *Collector) RecordCacheGet(layer string, hit bool, duration time.Duration) {
	if hit {
		c.cacheHits.WithLabelValues(layer).Inc()
	} else {
		c.cacheMisses.WithLabelValues(layer).Inc()
	}
	c.cacheGetLatency.WithLabelValues(layer).Observe(duration.Seconds())
}

// RecordCircuitState records a circuit breaker state change.
func (c *Collector) RecordCircuitState(name string, state metrics.CircuitState) {
	c.circuitState.WithLabelValues(name).Set(float64(state))
	if state == metrics.CircuitOpen {
		c.circuitOpens.WithLabelValues(name).Inc()
	}
}

var _ metrics.Collector = (*Collector)(nil)
var _ prometheus.Collector = (*Collector)(nil)
