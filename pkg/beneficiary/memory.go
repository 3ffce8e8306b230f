package beneficiary

import (
	"context"
	"sync"
	"time"

	"ledger-core/pkg/ledger"
)

// MemoryRegistry is an in-memory Registry for tests and local runs.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]*ledger.Beneficiary // keyed by id
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]*ledger.Beneficiary)}
}

// Add registers a beneficiary. Fixture helper; the ledger core itself
// never creates beneficiaries.
func (r *MemoryRegistry) Add(b *ledger.Beneficiary) {
	r.mu.Lock()
	cp := *b
	r.entries[b.ID] = &cp
	r.mu.Unlock()
}

func (r *MemoryRegistry) FindByAccountNumber(_ context.Context, ownerID, accountNumber string) (*ledger.Beneficiary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.entries {
		if b.OwnerID == ownerID && b.AccountNumber == accountNumber {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRegistry) MarkUsed(_ context.Context, beneficiaryID string, usedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.entries[beneficiaryID]
	if !ok {
		return ErrNotFound
	}
	t := usedAt
	b.LastUsedAt = &t
	return nil
}

// Get returns a beneficiary by id. Test helper.
func (r *MemoryRegistry) Get(beneficiaryID string) (*ledger.Beneficiary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.entries[beneficiaryID]
	if !ok {
		return nil, false
	}
	cp := *b
	return &cp, true
}

var _ Registry = (*MemoryRegistry)(nil)
