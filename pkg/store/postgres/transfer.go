package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/store"
)

// ExecuteTransfer runs fn inside one database transaction with both
// account rows locked via SELECT ... FOR UPDATE. Rows are locked in
// ascending id order so two concurrent transfers over the same pair in
// opposite directions cannot deadlock on lock-order inversion.
func (s *Store) ExecuteTransfer(ctx context.Context, sourceID, destinationID string, fn store.TransferFunc) error {
	if sourceID == destinationID {
		return fmt.Errorf("postgres: transfer requires two distinct accounts")
	}

	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("postgres: begin transfer: %w", err))
	}

	first, second := sourceID, destinationID
	if destinationID < sourceID {
		first, second = destinationID, sourceID
	}

	tx := &transferTx{dbtx: dbtx, accounts: make(map[string]*ledger.Account, 2)}
	for _, id := range []string{first, second} {
		acct, err := tx.lockAccount(ctx, id)
		if err != nil {
			dbtx.Rollback()
			return err
		}
		tx.accounts[id] = acct
	}

	if err := fn(tx); err != nil {
		dbtx.Rollback()
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return classify(fmt.Errorf("postgres: commit transfer: %w", err))
	}
	return nil
}

// transferTx is the unit of work for one transfer. All writes go through
// the wrapped database transaction and are invisible until commit.
type transferTx struct {
	dbtx     *sql.Tx
	accounts map[string]*ledger.Account
}

func (tx *transferTx) lockAccount(ctx context.Context, id string) (*ledger.Account, error) {
	row := tx.dbtx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	acct, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: lock account %s: %w", id, err))
	}
	return acct, nil
}

func (tx *transferTx) Account(id string) *ledger.Account {
	acct, ok := tx.accounts[id]
	if !ok {
		return nil
	}
	cp := *acct
	return &cp
}

func (tx *transferTx) SetBalances(ctx context.Context, accountID string, ledgerBal, available decimal.Decimal) error {
	res, err := tx.dbtx.ExecContext(ctx,
		`UPDATE accounts SET ledger_balance = $1, available_balance = $2 WHERE id = $3`,
		ledgerBal, available, accountID)
	if err != nil {
		return classify(fmt.Errorf("postgres: update balances for %s: %w", accountID, err))
	}
	n, err := res.RowsAffected()
	if err == nil && n != 1 {
		return fmt.Errorf("postgres: update balances for %s affected %d rows", accountID, n)
	}
	if acct, ok := tx.accounts[accountID]; ok {
		acct.LedgerBalance = ledgerBal
		acct.AvailableBalance = available
	}
	return nil
}

func (tx *transferTx) InsertTransaction(ctx context.Context, txn *ledger.Transaction) error {
	_, err := tx.dbtx.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		txn.ID, txn.AccountID, nullable(txn.SessionID), txn.Type, txn.Status, txn.Channel,
		txn.Amount, txn.Currency, nullable(txn.Description), txn.ReferenceID,
		nullable(txn.CounterpartyNumber), nullable(txn.CounterpartyName), txn.OccurredAt,
	)
	if err != nil {
		return classify(fmt.Errorf("postgres: insert transaction: %w", err))
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// classify wraps retryable database failures in ledger.ErrTransient so the
// executor can retry them transparently. SQLSTATE 40001 (serialization
// failure) and 40P01 (deadlock detected) are retryable, as is anything in
// class 08 (connection exceptions).
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if code == "40001" || code == "40P01" || pqErr.Code.Class() == "08" {
			return fmt.Errorf("%w: %v", ledger.ErrTransient, err)
		}
		return err
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", ledger.ErrTransient, err)
	}
	return err
}
