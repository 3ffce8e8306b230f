// Package postgres is the relational store implementation backing the
// ledger core. Correctness under concurrency is delegated to Postgres
// transaction isolation plus explicit row-level locks: both account rows
// are locked with SELECT ... FOR UPDATE, in ascending id order, before any
// balance is read.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"ledger-core/pkg/store"
)

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            5432,
		User:            "postgres",
		Password:        "postgres",
		Database:        "ledger_core",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Store implements store.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore opens a connection pool, verifies connectivity and ensures the
// schema exists.
func NewStore(cfg Config) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: failed to init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			number TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			currency TEXT NOT NULL,
			ledger_balance NUMERIC(18,4) NOT NULL,
			available_balance NUMERIC(18,4) NOT NULL,
			opened_at TIMESTAMP WITH TIME ZONE NOT NULL,
			CONSTRAINT accounts_available_within_ledger CHECK (available_balance <= ledger_balance),
			CONSTRAINT accounts_ledger_non_negative CHECK (ledger_balance >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_owner_id ON accounts(owner_id)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			session_id TEXT,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			channel TEXT NOT NULL,
			amount NUMERIC(18,4) NOT NULL CHECK (amount > 0),
			currency TEXT NOT NULL,
			description TEXT,
			reference_id TEXT NOT NULL,
			counterparty_number TEXT,
			counterparty_name TEXT,
			occurred_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_occurred ON transactions(account_id, occurred_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_reference_id ON transactions(reference_id)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying pool so collaborators sharing the database
// (the beneficiary registry) can reuse it.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
