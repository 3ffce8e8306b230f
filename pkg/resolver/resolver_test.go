package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger-core/pkg/ledger"
	memstore "ledger-core/pkg/store/memory"
)

func seedStore(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.NewStore()
	ctx := context.Background()

	accounts := []*ledger.Account{
		{ID: "acct-1", OwnerID: "caller-1", Number: "100200304412", Currency: "INR"},
		{ID: "acct-2", OwnerID: "caller-1", Number: "100200309925", Currency: "INR"},
		{ID: "acct-3", OwnerID: "other-owner", Number: "200300401188", Currency: "INR"},
	}
	for _, a := range accounts {
		a.Type = ledger.AccountSavings
		a.Status = ledger.StatusActive
		a.LedgerBalance = decimal.NewFromInt(100)
		a.AvailableBalance = decimal.NewFromInt(100)
		a.OpenedAt = time.Now().UTC()
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("CreateAccount failed: %v", err)
		}
	}
	return s
}

func newResolver(t *testing.T, s *memstore.Store) *Resolver {
	t.Helper()
	r := New(s, DefaultConfig(), nil)
	if err := r.Seed(context.Background()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	return r
}

func TestResolver_ByInternalID(t *testing.T) {
	r := newResolver(t, seedStore(t))
	ctx := context.Background()

	acct, err := r.ResolveSource(ctx, "caller-1", "acct-1")
	if err != nil {
		t.Fatalf("ResolveSource failed: %v", err)
	}
	if acct.Number != "100200304412" {
		t.Errorf("Resolved wrong account: %s", acct.Number)
	}
}

func TestResolver_ByExactNumber(t *testing.T) {
	r := newResolver(t, seedStore(t))
	ctx := context.Background()

	acct, err := r.ResolveDestination(ctx, "caller-1", "200300401188")
	if err != nil {
		t.Fatalf("ResolveDestination failed: %v", err)
	}
	if acct.ID != "acct-3" {
		t.Errorf("Resolved wrong account: %s", acct.ID)
	}

	// Spoken formatting with spaces and dashes still matches.
	acct, err = r.ResolveDestination(ctx, "caller-1", "2003 0040-1188")
	if err != nil {
		t.Fatalf("ResolveDestination with formatting failed: %v", err)
	}
	if acct.ID != "acct-3" {
		t.Errorf("Resolved wrong account: %s", acct.ID)
	}
}

func TestResolver_BySuffix(t *testing.T) {
	r := newResolver(t, seedStore(t))
	ctx := context.Background()

	acct, err := r.ResolveSource(ctx, "caller-1", "ending in 4412")
	if err != nil {
		t.Fatalf("ResolveSource by suffix failed: %v", err)
	}
	if acct.ID != "acct-1" {
		t.Errorf("Resolved wrong account: %s", acct.ID)
	}
}

func TestResolver_SuffixNeverLeavesCallerScope(t *testing.T) {
	r := newResolver(t, seedStore(t))
	ctx := context.Background()

	// 1188 is the suffix of another owner's account; the fuzzy fallback
	// must not find it.
	if _, err := r.ResolveSource(ctx, "caller-1", "ending in 1188"); !ledger.IsNotFound(err) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
	if _, err := r.ResolveDestination(ctx, "caller-1", "ending in 1188"); !ledger.IsNotFound(err) {
		t.Errorf("Expected ErrAccountNotFound for destination suffix outside caller scope, got %v", err)
	}
}

func TestResolver_SourceOwnershipEnforced(t *testing.T) {
	r := newResolver(t, seedStore(t))
	ctx := context.Background()

	// The account exists but belongs to another owner; the debit side
	// reports not found rather than leaking it.
	if _, err := r.ResolveSource(ctx, "caller-1", "acct-3"); !ledger.IsNotFound(err) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
	if _, err := r.ResolveSource(ctx, "caller-1", "200300401188"); !ledger.IsNotFound(err) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}

	// The destination side has no ownership restriction.
	if _, err := r.ResolveDestination(ctx, "caller-1", "acct-3"); err != nil {
		t.Errorf("ResolveDestination failed: %v", err)
	}
}

func TestResolver_AmbiguousSuffix(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()
	// Both of caller-1's accounts start with 1002003; a shared infix is
	// ambiguous.
	r := newResolver(t, s)

	if _, err := r.ResolveSource(ctx, "caller-1", "1002003"); !ledger.IsNotFound(err) {
		t.Errorf("Expected ambiguous reference to report not found, got %v", err)
	}
}

func TestResolver_AccountOnboardedAfterSeed(t *testing.T) {
	s := seedStore(t)
	r := newResolver(t, s)
	ctx := context.Background()

	// Onboarding runs outside this process; the filter was seeded before
	// this account existed. The store is authoritative.
	acct := &ledger.Account{
		ID: "acct-new", OwnerID: "other-owner", Number: "300400501199",
		Type: ledger.AccountSavings, Status: ledger.StatusActive, Currency: "INR",
		LedgerBalance: decimal.NewFromInt(100), AvailableBalance: decimal.NewFromInt(100),
		OpenedAt: time.Now().UTC(),
	}
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	got, err := r.ResolveDestination(ctx, "caller-1", "300400501199")
	if err != nil {
		t.Fatalf("ResolveDestination failed for post-seed account: %v", err)
	}
	if got.ID != "acct-new" {
		t.Errorf("Resolved wrong account: %s", got.ID)
	}

	// The resolver learns the number on the way through.
	if !r.mayExist("300400501199") {
		t.Error("Expected the filter to learn the resolved number")
	}
}

func TestResolver_UnknownReference(t *testing.T) {
	r := newResolver(t, seedStore(t))
	ctx := context.Background()

	if _, err := r.ResolveDestination(ctx, "caller-1", "999999999999"); !ledger.IsNotFound(err) {
		t.Errorf("Expected ErrAccountNotFound, got %v", err)
	}
	if _, err := r.ResolveDestination(ctx, "caller-1", ""); !ledger.IsNotFound(err) {
		t.Errorf("Expected ErrAccountNotFound for empty reference, got %v", err)
	}
}
