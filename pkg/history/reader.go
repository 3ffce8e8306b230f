// Package history is the read side of the ledger: transaction history
// with filtering and bounded paging, and statement generation over a date
// range. It never mutates anything; it only projects the transaction
// ledger.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/logging"
	"ledger-core/pkg/metrics"
	"ledger-core/pkg/readcache"
	"ledger-core/pkg/store"
)

const (
	// MaxLimit is the hard ceiling on history page size. Larger limits are
	// rejected, never silently truncated.
	MaxLimit = 500

	// DefaultLimit applies when the caller passes limit <= 0.
	DefaultLimit = 50

	// MaxStatementDays is the longest statement window, inclusive of both
	// endpoints.
	MaxStatementDays = 366
)

// Config tunes the read cache.
type Config struct {
	// CacheTTL is how long cached history pages stay valid absent an
	// invalidation.
	CacheTTL time.Duration
}

// DefaultConfig returns the default read-side configuration.
func DefaultConfig() Config {
	return Config{CacheTTL: 30 * time.Second}
}

// Reader serves history and statement queries. When a cache is wired,
// pages are cached under per-account version keys: invalidating an account
// bumps its version, orphaning every cached page at once. Cold reads for
// the same key are collapsed with single-flight.
type Reader struct {
	store     store.Store
	cache     readcache.Cache
	collector metrics.Collector
	logger    *logging.Logger
	config    Config
	sf        singleflight.Group

	now func() time.Time
}

// Option configures a Reader.
type Option func(*Reader)

// WithCache wires a read cache.
func WithCache(c readcache.Cache) Option {
	return func(r *Reader) { r.cache = c }
}

// WithMetrics wires a metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(r *Reader) { r.collector = c }
}

// WithLogger wires a logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Reader) { r.logger = l.Named("history") }
}

// WithConfig overrides the cache TTL.
func WithConfig(c Config) Option {
	return func(r *Reader) { r.config = c }
}

// NewReader creates a history reader over the given store.
func NewReader(s store.Store, opts ...Option) *Reader {
	r := &Reader{
		store:     s,
		collector: metrics.NoOpCollector{},
		logger:    logging.NewNoOpLogger(),
		config:    DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns transactions for one account, most recent first,
// optionally bounded by an inclusive time window. A limit above MaxLimit
// is rejected; a limit <= 0 defaults to DefaultLimit.
func (r *Reader) History(ctx context.Context, accountID string, from, to *time.Time, limit int) ([]*ledger.Transaction, error) {
	start := r.now()
	txns, err := r.history(ctx, accountID, from, to, limit)
	r.collector.RecordRead("history", ledger.Code(err), r.now().Sub(start))
	return txns, err
}

func (r *Reader) history(ctx context.Context, accountID string, from, to *time.Time, limit int) ([]*ledger.Transaction, error) {
	if limit > MaxLimit {
		return nil, fmt.Errorf("%w: %d > %d", ledger.ErrInvalidLimit, limit, MaxLimit)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	q := store.TransactionQuery{AccountID: accountID, From: from, To: to, Limit: limit}
	if r.cache == nil {
		return r.store.ListTransactions(ctx, q)
	}

	key := r.pageKey(ctx, accountID, from, to, limit)
	if data, err := r.cache.Get(ctx, key); err == nil {
		r.collector.RecordCacheGet(r.cache.Name(), true, 0)
		var txns []*ledger.Transaction
		if err := json.Unmarshal(data, &txns); err == nil {
			return txns, nil
		}
		// Corrupt entry: fall through to the store.
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
		_ = r.cache.Delete(ctx, key)
	} else {
		r.collector.RecordCacheGet(r.cache.Name(), false, 0)
	}

	// Collapse concurrent cold reads for the same page.
	v, err, _ := r.sf.Do(key, func() (interface{}, error) {
		txns, err := r.store.ListTransactions(ctx, q)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(txns); err == nil {
			if err := r.cache.Set(ctx, key, data, r.config.CacheTTL); err != nil {
				r.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
			}
		}
		return txns, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*ledger.Transaction), nil
}

// Statement validates the window, reads the transactions in it and
// summarizes them. Balances on the statement are the account's current
// balances, not a reconstruction as of the period end.
func (r *Reader) Statement(ctx context.Context, accountNumber string, fromDate, toDate time.Time, periodLabel string) (*ledger.StatementData, error) {
	start := r.now()
	stmt, err := r.statement(ctx, accountNumber, fromDate, toDate, periodLabel)
	r.collector.RecordRead("statement", ledger.Code(err), r.now().Sub(start))
	return stmt, err
}

func (r *Reader) statement(ctx context.Context, accountNumber string, fromDate, toDate time.Time, periodLabel string) (*ledger.StatementData, error) {
	from := truncateToDay(fromDate)
	to := truncateToDay(toDate)

	if to.Before(from) {
		return nil, fmt.Errorf("%w: from %s is after to %s",
			ledger.ErrInvalidDateRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxStatementDays {
		return nil, fmt.Errorf("%w: window of %d days exceeds %d",
			ledger.ErrInvalidDateRange, days, MaxStatementDays)
	}

	acct, err := r.store.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	// Window is inclusive of the whole end day. The read is uncapped:
	// the window itself is bounded to MaxStatementDays, and a truncated
	// statement would misstate the transaction count.
	windowEnd := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	txns, err := r.store.ListTransactions(ctx, store.TransactionQuery{
		AccountID: acct.ID,
		From:      &from,
		To:        &windowEnd,
	})
	if err != nil {
		return nil, err
	}

	return &ledger.StatementData{
		AccountNumber:    acct.Number,
		PeriodLabel:      periodLabel,
		FromDate:         from,
		ToDate:           to,
		Transactions:     txns,
		TransactionCount: len(txns),
		LedgerBalance:    acct.LedgerBalance,
		AvailableBalance: acct.AvailableBalance,
		Currency:         acct.Currency,
		GeneratedAt:      r.now().UTC(),
	}, nil
}

// InvalidateAccount bumps the account's cache version, orphaning every
// cached page for it. Called by the transfer executor after commit.
func (r *Reader) InvalidateAccount(ctx context.Context, accountID string) {
	if r.cache == nil {
		return
	}
	ver := r.version(ctx, accountID)
	key := versionKey(accountID)
	next := []byte(strconv.FormatInt(ver+1, 10))
	// Version keys live longer than any page they guard.
	if err := r.cache.Set(ctx, key, next, 10*r.config.CacheTTL); err != nil {
		r.logger.Warn("cache invalidation failed",
			zap.String("account_id", accountID), zap.Error(err))
	}
}

func (r *Reader) version(ctx context.Context, accountID string) int64 {
	data, err := r.cache.Get(ctx, versionKey(accountID))
	if err != nil {
		return 0
	}
	ver, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0
	}
	return ver
}

func versionKey(accountID string) string {
	return "ver:" + accountID
}

func (r *Reader) pageKey(ctx context.Context, accountID string, from, to *time.Time, limit int) string {
	fromPart, toPart := "-", "-"
	if from != nil {
		fromPart = strconv.FormatInt(from.UnixNano(), 10)
	}
	if to != nil {
		toPart = strconv.FormatInt(to.UnixNano(), 10)
	}
	return fmt.Sprintf("history:%s:v%d:%s:%s:%d",
		accountID, r.version(ctx, accountID), fromPart, toPart, limit)
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
