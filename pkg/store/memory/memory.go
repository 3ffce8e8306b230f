// Package memory is an in-memory store implementation. It mirrors the
// locking discipline of the Postgres store with per-account mutexes
// acquired in ascending id order, so the executor's behavior under
// concurrency is the same against either backend. Used by tests and
// local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/store"
)

// accountRecord pairs an account with its row lock.
type accountRecord struct {
	mu   sync.Mutex
	acct ledger.Account
}

// Store holds accounts and transactions in process memory.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*accountRecord
	byNumber map[string]string // account number -> id
	txns     []*ledger.Transaction
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*accountRecord),
		byNumber: make(map[string]string),
	}
}

// CreateAccount registers an account. Onboarding is outside the ledger
// core; this exists for fixtures and local runs.
func (s *Store) CreateAccount(_ context.Context, acct *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.ID]; ok {
		return fmt.Errorf("memory: account %s already exists", acct.ID)
	}
	if _, ok := s.byNumber[acct.Number]; ok {
		return fmt.Errorf("memory: account number %s already exists", acct.Number)
	}
	s.accounts[acct.ID] = &accountRecord{acct: *acct}
	s.byNumber[acct.Number] = acct.ID
	return nil
}

// SeedTransaction appends a pre-existing ledger entry. Fixture helper.
func (s *Store) SeedTransaction(_ context.Context, txn *ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *txn
	s.txns = append(s.txns, &cp)
	return nil
}

func (s *Store) GetAccountByID(_ context.Context, id string) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := rec.acct
	return &cp, nil
}

func (s *Store) GetAccountByNumber(_ context.Context, number string) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byNumber[number]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	cp := s.accounts[id].acct
	return &cp, nil
}

func (s *Store) ListAccountsByOwner(_ context.Context, ownerID string) ([]*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Account
	for _, rec := range s.accounts {
		if rec.acct.OwnerID == ownerID {
			cp := rec.acct
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) ListAccountNumbers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	numbers := make([]string, 0, len(s.byNumber))
	for n := range s.byNumber {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)
	return numbers, nil
}

func (s *Store) ListTransactions(_ context.Context, q store.TransactionQuery) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Transaction
	for _, txn := range s.txns {
		if txn.AccountID != q.AccountID {
			continue
		}
		if q.From != nil && txn.OccurredAt.Before(*q.From) {
			continue
		}
		if q.To != nil && txn.OccurredAt.After(*q.To) {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}

	// Most recent first; insertion order breaks ties so the two legs of
	// one transfer keep a stable relative order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) FindByReference(_ context.Context, referenceID string) ([]*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ledger.Transaction
	for _, txn := range s.txns {
		if txn.ReferenceID == referenceID {
			cp := *txn
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ExecuteTransfer locks both account records in ascending id order, runs
// fn against staged copies, and applies the staged state only when fn
// returns nil.
func (s *Store) ExecuteTransfer(ctx context.Context, sourceID, destinationID string, fn store.TransferFunc) error {
	if sourceID == destinationID {
		return fmt.Errorf("memory: transfer requires two distinct accounts")
	}

	s.mu.RLock()
	src, okSrc := s.accounts[sourceID]
	dst, okDst := s.accounts[destinationID]
	s.mu.RUnlock()
	if !okSrc || !okDst {
		return ledger.ErrAccountNotFound
	}

	first, second := src, dst
	if strings.Compare(destinationID, sourceID) < 0 {
		first, second = dst, src
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	tx := &transferTx{
		accounts: map[string]*accountRecord{sourceID: src, destinationID: dst},
		staged:   map[string]ledger.Account{sourceID: src.acct, destinationID: dst.acct},
	}

	if err := fn(tx); err != nil {
		return err
	}

	// Commit: publish staged balances and entries under the store lock.
	// Snapshot readers hold only s.mu, so the publish must too.
	s.mu.Lock()
	for id, acct := range tx.staged {
		tx.accounts[id].acct = acct
	}
	s.txns = append(s.txns, tx.inserts...)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

// transferTx stages balance updates and inserts until commit.
type transferTx struct {
	accounts map[string]*accountRecord
	staged   map[string]ledger.Account
	inserts  []*ledger.Transaction
}

func (tx *transferTx) Account(id string) *ledger.Account {
	acct, ok := tx.staged[id]
	if !ok {
		return nil
	}
	cp := acct
	return &cp
}

func (tx *transferTx) SetBalances(_ context.Context, accountID string, ledgerBal, available decimal.Decimal) error {
	acct, ok := tx.staged[accountID]
	if !ok {
		return fmt.Errorf("memory: account %s is not part of this transfer", accountID)
	}
	acct.LedgerBalance = ledgerBal
	acct.AvailableBalance = available
	tx.staged[accountID] = acct
	return nil
}

func (tx *transferTx) InsertTransaction(_ context.Context, txn *ledger.Transaction) error {
	cp := *txn
	tx.inserts = append(tx.inserts, &cp)
	return nil
}

var _ store.Store = (*Store)(nil)
