package beneficiary

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ledger-core/pkg/ledger"
)

func TestMemoryRegistry(t *testing.T) {
	r := NewMemoryRegistry()
	ctx := context.Background()

	r.Add(&ledger.Beneficiary{
		ID: "ben-1", OwnerID: "owner-1", Name: "Asha Patel",
		AccountNumber: "200300401188",
	})

	b, err := r.FindByAccountNumber(ctx, "owner-1", "200300401188")
	if err != nil {
		t.Fatalf("FindByAccountNumber failed: %v", err)
	}
	if b.Name != "Asha Patel" {
		t.Errorf("Expected Asha Patel, got %s", b.Name)
	}

	// Lookups are scoped to the owner.
	if _, err := r.FindByAccountNumber(ctx, "owner-2", "200300401188"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for foreign owner, got %v", err)
	}

	usedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := r.MarkUsed(ctx, "ben-1", usedAt); err != nil {
		t.Fatalf("MarkUsed failed: %v", err)
	}
	b, _ = r.Get("ben-1")
	if b.LastUsedAt == nil || !b.LastUsedAt.Equal(usedAt) {
		t.Errorf("Expected last-used %v, got %v", usedAt, b.LastUsedAt)
	}

	if err := r.MarkUsed(ctx, "missing", usedAt); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// flakyRegistry fails every call until healed.
type flakyRegistry struct {
	healthy bool
	calls   int
}

var errRegistryDown = errors.New("registry down")

func (f *flakyRegistry) FindByAccountNumber(context.Context, string, string) (*ledger.Beneficiary, error) {
	f.calls++
	if !f.healthy {
		return nil, errRegistryDown
	}
	return &ledger.Beneficiary{ID: "ben-1", Name: "Asha Patel"}, nil
}

func (f *flakyRegistry) MarkUsed(context.Context, string, time.Time) error {
	f.calls++
	if !f.healthy {
		return errRegistryDown
	}
	return nil
}

func TestBreakerRegistry_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyRegistry{}
	config := DefaultBreakerConfig()
	config.ConsecutiveFailures = 3
	br := NewBreakerRegistry(inner, config, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := br.FindByAccountNumber(ctx, "o", "n"); !errors.Is(err, errRegistryDown) {
			t.Fatalf("Call %d: expected registry error, got %v", i, err)
		}
	}

	// Breaker is open now: calls are absorbed without reaching the inner
	// registry, reported as not found.
	before := inner.calls
	if _, err := br.FindByAccountNumber(ctx, "o", "n"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound while open, got %v", err)
	}
	if err := br.MarkUsed(ctx, "ben-1", time.Now()); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound for MarkUsed while open, got %v", err)
	}
	if inner.calls != before {
		t.Errorf("Inner registry reached while breaker open: %d calls", inner.calls-before)
	}
}

func TestBreakerRegistry_NotFoundDoesNotTrip(t *testing.T) {
	inner := NewMemoryRegistry()
	config := DefaultBreakerConfig()
	config.ConsecutiveFailures = 2
	br := NewBreakerRegistry(inner, config, nil, nil)
	ctx := context.Background()

	// Many consecutive misses never open the breaker.
	for i := 0; i < 10; i++ {
		if _, err := br.FindByAccountNumber(ctx, "o", "n"); err != ErrNotFound {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	}

	inner.Add(&ledger.Beneficiary{ID: "ben-1", OwnerID: "o", Name: "A", AccountNumber: "n"})
	b, err := br.FindByAccountNumber(ctx, "o", "n")
	if err != nil {
		t.Fatalf("Expected the breaker to still pass calls through: %v", err)
	}
	if b.ID != "ben-1" {
		t.Errorf("Wrong beneficiary: %s", b.ID)
	}
}

// wrappingMissRegistry reports misses wrapped in extra context, the way a
// remote client would.
type wrappingMissRegistry struct {
	calls int
}

func (r *wrappingMissRegistry) FindByAccountNumber(context.Context, string, string) (*ledger.Beneficiary, error) {
	r.calls++
	return nil, fmt.Errorf("remote lookup: %w", ErrNotFound)
}

func (r *wrappingMissRegistry) MarkUsed(context.Context, string, time.Time) error {
	r.calls++
	return fmt.Errorf("remote update: %w", ErrNotFound)
}

func TestBreakerRegistry_WrappedMissDoesNotTrip(t *testing.T) {
	inner := &wrappingMissRegistry{}
	config := DefaultBreakerConfig()
	config.ConsecutiveFailures = 2
	br := NewBreakerRegistry(inner, config, nil, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := br.FindByAccountNumber(ctx, "o", "n"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Call %d: expected a miss, got %v", i, err)
		}
	}
	// Every call reached the inner registry; wrapped misses never open the
	// breaker.
	if inner.calls != 10 {
		t.Errorf("Expected 10 inner calls, got %d", inner.calls)
	}
}

func TestBreakerRegistry_RecoversAfterOpenTimeout(t *testing.T) {
	inner := &flakyRegistry{}
	config := BreakerConfig{
		Timeout:             100 * time.Millisecond,
		OpenTimeout:         20 * time.Millisecond,
		ConsecutiveFailures: 2,
	}
	br := NewBreakerRegistry(inner, config, nil, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		br.FindByAccountNumber(ctx, "o", "n")
	}
	if _, err := br.FindByAccountNumber(ctx, "o", "n"); err != ErrNotFound {
		t.Fatalf("Expected breaker open, got %v", err)
	}

	inner.healthy = true
	time.Sleep(30 * time.Millisecond)

	b, err := br.FindByAccountNumber(ctx, "o", "n")
	if err != nil {
		t.Fatalf("Expected half-open probe to succeed: %v", err)
	}
	if b.Name != "Asha Patel" {
		t.Errorf("Wrong beneficiary: %s", b.Name)
	}
}
