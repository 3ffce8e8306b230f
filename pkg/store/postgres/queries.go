package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/store"
)

const accountColumns = `id, owner_id, number, type, status, currency,
	ledger_balance, available_balance, opened_at`

const transactionColumns = `id, account_id, session_id, type, status, channel,
	amount, currency, description, reference_id,
	counterparty_number, counterparty_name, occurred_at`

func scanAccount(row interface{ Scan(...any) error }) (*ledger.Account, error) {
	var a ledger.Account
	err := row.Scan(
		&a.ID, &a.OwnerID, &a.Number, &a.Type, &a.Status, &a.Currency,
		&a.LedgerBalance, &a.AvailableBalance, &a.OpenedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanTransaction(row interface{ Scan(...any) error }) (*ledger.Transaction, error) {
	var t ledger.Transaction
	var sessionID, description, cpNumber, cpName sql.NullString
	err := row.Scan(
		&t.ID, &t.AccountID, &sessionID, &t.Type, &t.Status, &t.Channel,
		&t.Amount, &t.Currency, &description, &t.ReferenceID,
		&cpNumber, &cpName, &t.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	t.SessionID = sessionID.String
	t.Description = description.String
	t.CounterpartyNumber = cpNumber.String
	t.CounterpartyName = cpName.String
	return &t, nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*ledger.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: query account: %w", err))
	}
	return a, nil
}

func (s *Store) GetAccountByNumber(ctx context.Context, number string) (*ledger.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE number = $1`, number)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: query account by number: %w", err))
	}
	return a, nil
}

func (s *Store) ListAccountsByOwner(ctx context.Context, ownerID string) ([]*ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY number`, ownerID)
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: list accounts: %w", err))
	}
	defer rows.Close()

	var out []*ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("postgres: scan account: %w", err))
		}
		out = append(out, a)
	}
	return out, classify(rows.Err())
}

func (s *Store) ListAccountNumbers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT number FROM accounts ORDER BY number`)
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: list account numbers: %w", err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, classify(fmt.Errorf("postgres: scan number: %w", err))
		}
		out = append(out, n)
	}
	return out, classify(rows.Err())
}

func (s *Store) ListTransactions(ctx context.Context, q store.TransactionQuery) ([]*ledger.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = $1`)
	args := []any{q.AccountID}

	if q.From != nil {
		args = append(args, *q.From)
		sb.WriteString(` AND occurred_at >= $` + strconv.Itoa(len(args)))
	}
	if q.To != nil {
		args = append(args, *q.To)
		sb.WriteString(` AND occurred_at <= $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY occurred_at DESC`)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: list transactions: %w", err))
	}
	defer rows.Close()

	var out []*ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("postgres: scan transaction: %w", err))
		}
		out = append(out, t)
	}
	return out, classify(rows.Err())
}

func (s *Store) FindByReference(ctx context.Context, referenceID string) ([]*ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference_id = $1 ORDER BY occurred_at`,
		referenceID)
	if err != nil {
		return nil, classify(fmt.Errorf("postgres: find by reference: %w", err))
	}
	defer rows.Close()

	var out []*ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("postgres: scan transaction: %w", err))
		}
		out = append(out, t)
	}
	return out, classify(rows.Err())
}
