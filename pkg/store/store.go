// Package store defines the storage contracts for the ledger core.
// Implementations must provide transactional semantics for transfers:
// both account rows are locked exclusively, in deterministic order, before
// any balance is read, and all writes in one transfer commit or roll back
// together.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledger-core/pkg/ledger"
)

// TransactionQuery bounds a ledger read. From and To are inclusive.
// Limit must already be validated by the caller; implementations apply it
// as-is, and a Limit <= 0 means unlimited.
type TransactionQuery struct {
	AccountID string
	From      *time.Time
	To        *time.Time
	Limit     int
}

// TransferTx is the unit of work handed to a transfer function. Both
// accounts are exclusively locked for the lifetime of the callback; the
// snapshots returned by Account reflect balances read under that lock.
type TransferTx interface {
	// Account returns the locked snapshot for one of the two account ids
	// passed to ExecuteTransfer. The returned value is a copy.
	Account(id string) *ledger.Account

	// SetBalances stages new ledger and available balances for a locked
	// account. The write becomes visible only on commit.
	SetBalances(ctx context.Context, accountID string, ledgerBal, available decimal.Decimal) error

	// InsertTransaction stages one ledger entry. The write becomes visible
	// only on commit.
	InsertTransaction(ctx context.Context, txn *ledger.Transaction) error
}

// TransferFunc runs inside an exclusive two-account lock. Returning an
// error rolls back every staged write.
type TransferFunc func(tx TransferTx) error

// Store is the persistence boundary of the ledger core.
//
// Read methods never block transfers and are never blocked by them; they
// observe a consistent as-of-query-time snapshot. Implementations report
// retryable failures (deadlock, serialization, lost connectivity) by
// wrapping ledger.ErrTransient so the executor can retry transparently.
type Store interface {
	// GetAccountByID looks an account up by internal identifier.
	GetAccountByID(ctx context.Context, id string) (*ledger.Account, error)

	// GetAccountByNumber looks an account up by its external number.
	GetAccountByNumber(ctx context.Context, number string) (*ledger.Account, error)

	// ListAccountsByOwner returns every account owned by ownerID.
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]*ledger.Account, error)

	// ListAccountNumbers returns all known account numbers. Used to seed
	// the resolver's negative-lookup filter.
	ListAccountNumbers(ctx context.Context) ([]string, error)

	// ListTransactions returns entries matching the query, ordered by
	// occurred-at descending.
	ListTransactions(ctx context.Context, q TransactionQuery) ([]*ledger.Transaction, error)

	// FindByReference returns all entries sharing a reference id, the two
	// legs of a transfer in the common case. Callers whose transfer timed
	// out use this to learn the outcome before retrying.
	FindByReference(ctx context.Context, referenceID string) ([]*ledger.Transaction, error)

	// ExecuteTransfer locks the two account rows exclusively in ascending
	// id order, invokes fn, and commits on nil or rolls back on error.
	// Either every staged write is durably visible afterwards, or none is.
	ExecuteTransfer(ctx context.Context, sourceID, destinationID string, fn TransferFunc) error

	// Close releases the underlying resources.
	Close() error
}
