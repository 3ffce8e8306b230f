// Package resolver turns the loosely-typed account references surfaced by
// upstream callers (internal id, full account number, or a partially
// spoken number such as "ending in 4412") into resolved accounts.
//
// Resolution order: internal id, then exact account-number match, then a
// suffix/substring scan over the caller's own accounts. The fuzzy fallback
// never widens beyond the caller's own accounts, so on the debit side a
// partial reference can only ever select an account the caller owns.
package resolver

import (
	"context"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/logging"
	"ledger-core/pkg/store"
)

// Config tunes the negative-lookup bloom filter.
type Config struct {
	// ExpectedAccounts sizes the bloom filter of known account numbers.
	ExpectedAccounts uint
	// FalsePositiveRate is the target false-positive rate of the filter.
	FalsePositiveRate float64
}

// DefaultConfig returns defaults suitable for a mid-size deployment.
func DefaultConfig() Config {
	return Config{
		ExpectedAccounts:  100000,
		FalsePositiveRate: 0.01,
	}
}

// Resolver resolves account references against the store. A bloom filter
// seeded with known account numbers tracks which exact-number lookups are
// expected to hit. The filter is advisory only: account onboarding happens
// outside this process, so the store stays authoritative and a filter miss
// never rejects a reference on its own. Lookups that hit despite a filter
// miss feed the number back via Observe.
type Resolver struct {
	store  store.Store
	logger *logging.Logger

	mu     sync.RWMutex
	filter *bloom.BloomFilter
	seeded bool
}

// New creates a resolver. Call Seed before serving traffic to warm the
// account-number filter.
func New(s store.Store, config Config, logger *logging.Logger) *Resolver {
	if config.ExpectedAccounts == 0 {
		config.ExpectedAccounts = 100000
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		config.FalsePositiveRate = 0.01
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Resolver{
		store:  s,
		logger: logger.Named("resolver"),
		filter: bloom.NewWithEstimates(config.ExpectedAccounts, config.FalsePositiveRate),
	}
}

// Seed loads every known account number into the bloom filter.
func (r *Resolver) Seed(ctx context.Context) error {
	numbers, err := r.store.ListAccountNumbers(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	for _, n := range numbers {
		r.filter.Add([]byte(n))
	}
	r.seeded = true
	r.mu.Unlock()

	r.logger.Info("account number filter seeded", zap.Int("accounts", len(numbers)))
	return nil
}

// Observe adds an account number to the filter. Account creation happens
// outside this core, so the owning process calls Observe when it learns of
// a new account.
func (r *Resolver) Observe(number string) {
	r.mu.Lock()
	r.filter.Add([]byte(number))
	r.mu.Unlock()
}

// mayExist reports whether the filter expects the number to resolve.
func (r *Resolver) mayExist(number string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.seeded {
		return true
	}
	return r.filter.Test([]byte(number))
}

// ResolveSource resolves the debit-side reference. The resolved account
// must be owned by the caller; references to other owners' accounts report
// not found rather than leaking their existence.
func (r *Resolver) ResolveSource(ctx context.Context, callerID, ref string) (*ledger.Account, error) {
	acct, err := r.resolve(ctx, callerID, ref)
	if err != nil {
		return nil, err
	}
	if acct.OwnerID != callerID {
		return nil, ledger.ErrAccountNotFound
	}
	return acct, nil
}

// ResolveDestination resolves the credit-side reference. Ids and exact
// numbers match any account; only the fuzzy suffix fallback stays scoped
// to the caller's own accounts.
func (r *Resolver) ResolveDestination(ctx context.Context, callerID, ref string) (*ledger.Account, error) {
	return r.resolve(ctx, callerID, ref)
}

func (r *Resolver) resolve(ctx context.Context, callerID, ref string) (*ledger.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, ledger.ErrAccountNotFound
	}

	// 1. Internal identifier.
	acct, err := r.store.GetAccountByID(ctx, ref)
	if err == nil {
		return acct, nil
	}
	if !ledger.IsNotFound(err) {
		return nil, err
	}

	// 2. Exact external account number, as given and digits-only (spoken
	// references arrive with spaces and dashes). The store, not the filter,
	// decides: accounts onboarded after Seed are missing from the filter.
	number := normalizeNumber(ref)
	for _, candidate := range []string{ref, number} {
		if candidate == "" {
			continue
		}
		known := r.mayExist(candidate)
		acct, err = r.store.GetAccountByNumber(ctx, candidate)
		if err == nil {
			if !known {
				r.logger.Debug("account number missing from filter",
					zap.String("number", candidate))
				r.Observe(candidate)
			}
			return acct, nil
		}
		if !ledger.IsNotFound(err) {
			return nil, err
		}
		if candidate == number {
			break
		}
	}

	// 3. Suffix/substring scan over the caller's own accounts, tolerating
	// partially spoken numbers. A reference matching more than one of the
	// caller's accounts is ambiguous and reports not found.
	if number == "" {
		return nil, ledger.ErrAccountNotFound
	}
	owned, err := r.store.ListAccountsByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}

	var match *ledger.Account
	for _, a := range owned {
		if strings.HasSuffix(a.Number, number) || strings.Contains(a.Number, number) {
			if match != nil {
				r.logger.Debug("ambiguous partial account reference",
					zap.String("caller_id", callerID),
					zap.String("suffix", number),
				)
				return nil, ledger.ErrAccountNotFound
			}
			match = a
		}
	}
	if match == nil {
		return nil, ledger.ErrAccountNotFound
	}
	return match, nil
}

// normalizeNumber strips everything but digits from a spoken or formatted
// account reference.
func normalizeNumber(ref string) string {
	var b strings.Builder
	for _, c := range ref {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
