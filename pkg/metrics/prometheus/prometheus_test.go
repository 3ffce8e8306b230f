package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ledger-core/pkg/metrics"
)

func TestCollector_RegisterWith(t *testing.T) {
	c := NewCollector("ledger")
	registry := prometheus.NewRegistry()
	if err := c.RegisterWith(registry); err != nil {
		t.Fatalf("RegisterWith failed: %v", err)
	}

	// Double registration is rejected by the registry.
	if err := c.RegisterWith(registry); err == nil {
		t.Error("Expected error on duplicate registration")
	}
}

func TestCollector_RecordTransfer(t *testing.T) {
	c := NewCollector("ledger")

	c.RecordTransfer("ok", 10*time.Millisecond)
	c.RecordTransfer("ok", 20*time.Millisecond)
	c.RecordTransfer("insufficient_funds", time.Millisecond)

	if got := testutil.ToFloat64(c.transfers.WithLabelValues("ok")); got != 2 {
		t.Errorf("transfers{outcome=ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.transfers.WithLabelValues("insufficient_funds")); got != 1 {
		t.Errorf("transfers{outcome=insufficient_funds} = %v, want 1", got)
	}
}

func TestCollector_RecordLockRetry(t *testing.T) {
	c := NewCollector("ledger")
	c.RecordLockRetry()
	c.RecordLockRetry()
	if got := testutil.ToFloat64(c.lockRetries); got != 2 {
		t.Errorf("lockRetries = %v, want 2", got)
	}
}

func TestCollector_RecordCacheGet(t *testing.T) {
	c := NewCollector("ledger")

	c.RecordCacheGet("memory", true, time.Microsecond)
	c.RecordCacheGet("memory", true, time.Microsecond)
	c.RecordCacheGet("redis", false, time.Millisecond)

	if got := testutil.ToFloat64(c.cacheHits.WithLabelValues("memory")); got != 2 {
		t.Errorf("cacheHits{layer=memory} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.cacheMisses.WithLabelValues("redis")); got != 1 {
		t.Errorf("cacheMisses{layer=redis} = %v, want 1", got)
	}
}

func TestCollector_RecordCircuitState(t *testing.T) {
	c := NewCollector("ledger")

	c.RecordCircuitState("beneficiary-registry", metrics.CircuitOpen)
	if got := testutil.ToFloat64(c.circuitState.WithLabelValues("beneficiary-registry")); got != float64(metrics.CircuitOpen) {
		t.Errorf("circuitState = %v, want %v", got, float64(metrics.CircuitOpen))
	}
	if got := testutil.ToFloat64(c.circuitOpens.WithLabelValues("beneficiary-registry")); got != 1 {
		t.Errorf("circuitOpens = %v, want 1", got)
	}

	c.RecordCircuitState("beneficiary-registry", metrics.CircuitClosed)
	if got := testutil.ToFloat64(c.circuitState.WithLabelValues("beneficiary-registry")); got != float64(metrics.CircuitClosed) {
		t.Errorf("circuitState after close = %v, want %v", got, float64(metrics.CircuitClosed))
	}
}
