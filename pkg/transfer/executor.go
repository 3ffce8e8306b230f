// Package transfer implements the funds-movement core: it validates a
// transfer request, mutates both balances under exclusive row locks, and
// writes the matched debit/credit pair atomically. Either every balance
// mutation and both ledger rows are durably visible, or none are.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"ledger-core/pkg/beneficiary"
	"ledger-core/pkg/ledger"
	"ledger-core/pkg/logging"
	"ledger-core/pkg/metrics"
	"ledger-core/pkg/money"
	"ledger-core/pkg/resolver"
	"ledger-core/pkg/store"
)

// Request describes one transfer. Source and destination references may be
// internal ids, full account numbers, or partial numbers (resolved per the
// resolver's rules). CallerID and SessionID arrive already authenticated.
type Request struct {
	SourceRef      string
	DestinationRef string

	Amount   decimal.Decimal
	Currency string

	Description string
	Channel     ledger.Channel

	CallerID  string
	SessionID string

	// ReferenceID correlates the two legs of the transfer. Generated when
	// empty. Advisory: a repeated call with the same reference id is a new
	// transfer, not a replay.
	ReferenceID string
}

// Invalidator is notified after a successful transfer so read-side caches
// can drop stale views of the affected accounts.
type Invalidator interface {
	InvalidateAccount(ctx context.Context, accountID string)
}

// Config tunes the executor's transient-failure retry loop.
type Config struct {
	// MaxRetries bounds transparent retries after deadlock or
	// serialization failures. The initial attempt is not a retry.
	MaxRetries int

	// RetryBackoff is the base delay between attempts; attempt n waits
	// n times this value.
	RetryBackoff time.Duration
}

// DefaultConfig returns the default retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		RetryBackoff: 25 * time.Millisecond,
	}
}

// Executor is the transfer service.
type Executor struct {
	store         store.Store
	resolver      *resolver.Resolver
	beneficiaries beneficiary.Registry
	invalidator   Invalidator
	collector     metrics.Collector
	logger        *logging.Logger
	config        Config

	// now is swappable for tests.
	now func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithBeneficiaries wires the beneficiary registry collaborator.
func WithBeneficiaries(r beneficiary.Registry) Option {
	return func(e *Executor) { e.beneficiaries = r }
}

// WithInvalidator wires a read-cache invalidator.
func WithInvalidator(inv Invalidator) Option {
	return func(e *Executor) { e.invalidator = inv }
}

// WithMetrics wires a metrics collector.
func WithMetrics(c metrics.Collector) Option {
	return func(e *Executor) { e.collector = c }
}

// WithLogger wires a logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.logger = l.Named("transfer") }
}

// WithConfig overrides the retry policy.
func WithConfig(c Config) Option {
	return func(e *Executor) { e.config = c }
}

// NewExecutor creates a transfer executor over the given store and
// resolver.
func NewExecutor(s store.Store, r *resolver.Resolver, opts ...Option) *Executor {
	e := &Executor{
		store:     s,
		resolver:  r,
		collector: metrics.NoOpCollector{},
		logger:    logging.NewNoOpLogger(),
		config:    DefaultConfig(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Transfer executes one transfer. Preconditions are checked in order,
// failing fast on the first violation:
//
//  1. amount strictly positive within the currency's minor-unit precision
//  2. source and destination accounts resolve
//  3. source != destination
//  4. both account currencies equal the transfer currency
//  5. source available balance covers the amount (checked under lock)
//
// On success both balance mutations and both ledger rows are committed in
// one store transaction, then the matching beneficiary (if any) is touched
// best-effort and read caches are invalidated.
func (e *Executor) Transfer(ctx context.Context, req Request) (*ledger.TransferReceipt, error) {
	start := e.now()
	receipt, err := e.transfer(ctx, req)
	duration := e.now().Sub(start)

	e.collector.RecordTransfer(ledger.Code(err), duration)
	if err != nil {
		e.logger.Info("transfer rejected",
			zap.String("caller_id", req.CallerID),
			zap.String("code", ledger.Code(err)),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	e.logger.Info("transfer settled",
		zap.String("caller_id", req.CallerID),
		zap.String("reference_id", receipt.ReferenceID),
		zap.String("amount", money.Format(receipt.Amount, receipt.Currency)),
		zap.String("currency", receipt.Currency),
		zap.Duration("duration", duration),
	)
	return receipt, nil
}

func (e *Executor) transfer(ctx context.Context, req Request) (*ledger.TransferReceipt, error) {
	// 1. Amount validation. Excess precision is rejected, never rounded.
	amount, err := money.Normalize(req.Amount, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}

	// 2. Account resolution. The source must belong to the caller; the
	// destination may be any account.
	source, err := e.resolver.ResolveSource(ctx, req.CallerID, req.SourceRef)
	if err != nil {
		return nil, err
	}
	destination, err := e.resolver.ResolveDestination(ctx, req.CallerID, req.DestinationRef)
	if err != nil {
		return nil, err
	}

	// 3. Self-transfer.
	if source.ID == destination.ID {
		return nil, ledger.ErrSelfTransfer
	}

	// 4. Currency. No implicit FX.
	if source.Currency != req.Currency || destination.Currency != req.Currency {
		return nil, fmt.Errorf("%w: transfer %s, source %s, destination %s",
			ledger.ErrCurrencyMismatch, req.Currency, source.Currency, destination.Currency)
	}

	referenceID := req.ReferenceID
	if referenceID == "" {
		referenceID = uuid.NewString()
	}

	// Best-effort beneficiary lookup before the locked section so the
	// payee's display name can ride along on the debit leg. A registry
	// failure here only costs the name.
	matched := e.lookupBeneficiary(ctx, req.CallerID, destination.Number)

	// 5. Funds check and mutation, under the row locks, with bounded
	// transparent retries on deadlock/serialization failures.
	counterpartyName := ""
	if matched != nil {
		counterpartyName = matched.Name
	}

	var receipt *ledger.TransferReceipt
	for attempt := 0; ; attempt++ {
		receipt, err = e.execute(ctx, source.ID, destination.ID, amount, referenceID, counterpartyName, req)
		if err == nil || !ledger.IsTransient(err) || attempt >= e.config.MaxRetries {
			break
		}
		e.collector.RecordLockRetry()
		e.logger.Warn("transient transfer failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ledger.ErrTransient, ctx.Err())
		case <-time.After(time.Duration(attempt+1) * e.config.RetryBackoff):
		}
	}
	if err != nil {
		return nil, err
	}

	// Secondary effects. Neither can fail the settled transfer.
	if matched != nil {
		receipt.BeneficiaryName = matched.Name
		if err := e.beneficiaries.MarkUsed(ctx, matched.ID, receipt.OccurredAt); err != nil {
			e.logger.Warn("beneficiary mark-used failed",
				zap.String("beneficiary_id", matched.ID),
				zap.Error(err),
			)
		}
	}
	if e.invalidator != nil {
		e.invalidator.InvalidateAccount(ctx, source.ID)
		e.invalidator.InvalidateAccount(ctx, destination.ID)
	}
	return receipt, nil
}

// execute runs the locked check-and-mutate sequence once.
func (e *Executor) execute(ctx context.Context, sourceID, destinationID string, amount decimal.Decimal, referenceID, counterpartyName string, req Request) (*ledger.TransferReceipt, error) {
	var receipt *ledger.TransferReceipt

	err := e.store.ExecuteTransfer(ctx, sourceID, destinationID, func(tx store.TransferTx) error {
		source := tx.Account(sourceID)
		destination := tx.Account(destinationID)
		if source == nil || destination == nil {
			return ledger.ErrAccountNotFound
		}

		if source.AvailableBalance.LessThan(amount) {
			return fmt.Errorf("%w: available %s, requested %s",
				ledger.ErrInsufficientFunds,
				money.Format(source.AvailableBalance, source.Currency),
				money.Format(amount, req.Currency))
		}

		if err := tx.SetBalances(ctx, sourceID,
			source.LedgerBalance.Sub(amount),
			source.AvailableBalance.Sub(amount)); err != nil {
			return err
		}
		if err := tx.SetBalances(ctx, destinationID,
			destination.LedgerBalance.Add(amount),
			destination.AvailableBalance.Add(amount)); err != nil {
			return err
		}

		occurredAt := e.now().UTC()
		debit := &ledger.Transaction{
			ID:                 uuid.NewString(),
			AccountID:          sourceID,
			SessionID:          req.SessionID,
			Type:               ledger.TxnTransferOut,
			Status:             ledger.TxnSettled,
			Channel:            req.Channel,
			Amount:             amount,
			Currency:           req.Currency,
			Description:        req.Description,
			ReferenceID:        referenceID,
			CounterpartyNumber: destination.Number,
			CounterpartyName:   counterpartyName,
			OccurredAt:         occurredAt,
		}
		credit := &ledger.Transaction{
			ID:                 uuid.NewString(),
			AccountID:          destinationID,
			SessionID:          req.SessionID,
			Type:               ledger.TxnTransferIn,
			Status:             ledger.TxnSettled,
			Channel:            req.Channel,
			Amount:             amount,
			Currency:           req.Currency,
			Description:        req.Description,
			ReferenceID:        referenceID,
			CounterpartyNumber: source.Number,
			OccurredAt:         occurredAt,
		}
		if err := tx.InsertTransaction(ctx, debit); err != nil {
			return err
		}
		if err := tx.InsertTransaction(ctx, credit); err != nil {
			return err
		}

		receipt = &ledger.TransferReceipt{
			ReferenceID:         referenceID,
			Amount:              amount,
			Currency:            req.Currency,
			DebitTransactionID:  debit.ID,
			CreditTransactionID: credit.ID,
			SourceNumber:        source.Number,
			DestinationNumber:   destination.Number,
			OccurredAt:          occurredAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// lookupBeneficiary finds the caller's beneficiary registered under the
// destination number. Best effort: any failure is logged and reported as
// no match.
func (e *Executor) lookupBeneficiary(ctx context.Context, callerID, destinationNumber string) *ledger.Beneficiary {
	if e.beneficiaries == nil {
		return nil
	}

	b, err := e.beneficiaries.FindByAccountNumber(ctx, callerID, destinationNumber)
	if err != nil {
		if !errors.Is(err, beneficiary.ErrNotFound) {
			e.logger.Warn("beneficiary lookup failed",
				zap.String("caller_id", callerID),
				zap.Error(err),
			)
		}
		return nil
	}
	return b
}

// FindByReference returns the ledger entries recorded under a reference
// id. A caller whose transfer call timed out uses this to learn the
// outcome before retrying.
func (e *Executor) FindByReference(ctx context.Context, referenceID string) ([]*ledger.Transaction, error) {
	return e.store.FindByReference(ctx, referenceID)
}
