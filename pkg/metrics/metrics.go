// Package metrics defines the collector interface for ledger-core
// observability. Implementations export to Prometheus or discard.
package metrics

import "time"

// Collector receives measurements from the transfer executor, the history
// reader, the read cache and the beneficiary breaker.
type Collector interface {
	// RecordTransfer records one transfer attempt. Outcome is a stable
	// error code ("ok" on success, see ledger.Code).
	RecordTransfer(outcome string, duration time.Duration)

	// RecordLockRetry records one transparent retry after a deadlock or
	// serialization failure.
	RecordLockRetry()

	// RecordRead records a read-side operation ("history" or "statement").
	RecordRead(op, outcome string, duration time.Duration)

	// RecordCacheGet records a read-cache lookup per layer.
	RecordCacheGet(layer string, hit bool, duration time.Duration)

	// RecordCircuitState records a circuit breaker state change.
	RecordCircuitState(name string, state CircuitState)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the breaker is probing for recovery.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector discards all measurements. It is the default when metrics
// are not wired.
type NoOpCollector struct{}

// RecordTransfer does nothing.
func (NoOpCollector) RecordTransfer(outcome string, duration time.Duration) {}

// RecordLockRetry does nothing.
func (NoOpCollector) RecordLockRetry() {}

// RecordRead does nothing.
func (NoOpCollector) RecordRead(op, outcome string, duration time.Duration) {}

// RecordCacheGet does nothing.
func (NoOpCollector) RecordCacheGet(layer string, hit bool, duration time.Duration) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}
