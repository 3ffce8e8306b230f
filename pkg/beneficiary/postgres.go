package beneficiary

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ledger-core/pkg/ledger"
)

// PostgresRegistry reads the beneficiary table maintained by the
// beneficiary service. It shares the ledger's database in single-store
// deployments.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry wraps an existing connection pool and ensures the
// table exists.
func NewPostgresRegistry(db *sql.DB) (*PostgresRegistry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS beneficiaries (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		account_number TEXT NOT NULL,
		last_used_at TIMESTAMP WITH TIME ZONE,
		UNIQUE (owner_id, account_number)
	)`)
	if err != nil {
		return nil, fmt.Errorf("beneficiary: failed to init table: %w", err)
	}
	return &PostgresRegistry{db: db}, nil
}

func (r *PostgresRegistry) FindByAccountNumber(ctx context.Context, ownerID, accountNumber string) (*ledger.Beneficiary, error) {
	var b ledger.Beneficiary
	var lastUsed sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, account_number, last_used_at
		 FROM beneficiaries WHERE owner_id = $1 AND account_number = $2`,
		ownerID, accountNumber,
	).Scan(&b.ID, &b.OwnerID, &b.Name, &b.AccountNumber, &lastUsed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("beneficiary: query: %w", err)
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		b.LastUsedAt = &t
	}
	return &b, nil
}

func (r *PostgresRegistry) MarkUsed(ctx context.Context, beneficiaryID string, usedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE beneficiaries SET last_used_at = $1 WHERE id = $2`,
		usedAt, beneficiaryID)
	if err != nil {
		return fmt.Errorf("beneficiary: mark used: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Registry = (*PostgresRegistry)(nil)
