package ledger

import "errors"

// Domain errors surfaced by the ledger core. Every error carries a stable
// machine-readable code (see Code) so callers can render a specific
// response without parsing messages.
var (
	// ErrAccountNotFound is returned when no account matches the given
	// identifier, number or suffix within the caller's lookup scope.
	ErrAccountNotFound = errors.New("ledger: account not found")

	// ErrCurrencyMismatch is returned when an account's currency differs
	// from the transfer currency. There is no implicit FX.
	ErrCurrencyMismatch = errors.New("ledger: currency mismatch")

	// ErrInsufficientFunds is returned when the source account's available
	// balance cannot cover the transfer amount.
	ErrInsufficientFunds = errors.New("ledger: insufficient available balance")

	// ErrSelfTransfer is returned when source and destination resolve to
	// the same account.
	ErrSelfTransfer = errors.New("ledger: source and destination are the same account")

	// ErrInvalidAmount is returned for non-positive amounts or amounts
	// exceeding the currency's minor-unit precision.
	ErrInvalidAmount = errors.New("ledger: invalid amount")

	// ErrInvalidDateRange is returned when a statement window is inverted
	// or spans more than one year.
	ErrInvalidDateRange = errors.New("ledger: invalid date range")

	// ErrInvalidLimit is returned when a history limit exceeds the hard
	// ceiling. Over-large limits are rejected, never silently truncated.
	ErrInvalidLimit = errors.New("ledger: history limit exceeds maximum")

	// ErrTransient marks infrastructure failures (deadlock, lock timeout,
	// lost connectivity) that were retried internally and may succeed on a
	// later attempt. Nothing was applied.
	ErrTransient = errors.New("ledger: transient failure, retry later")
)

// Stable error codes for the service boundary and for metric labels.
const (
	CodeOK                = "ok"
	CodeAccountNotFound   = "account_not_found"
	CodeCurrencyMismatch  = "currency_mismatch"
	CodeInsufficientFunds = "insufficient_funds"
	CodeSelfTransfer      = "self_transfer"
	CodeInvalidAmount     = "invalid_amount"
	CodeInvalidDateRange  = "invalid_date_range"
	CodeInvalidLimit      = "invalid_limit"
	CodeTransient         = "transient"
	CodeInternal          = "internal"
)

// Code returns the stable machine-readable code for an error.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrAccountNotFound):
		return CodeAccountNotFound
	case errors.Is(err, ErrCurrencyMismatch):
		return CodeCurrencyMismatch
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrSelfTransfer):
		return CodeSelfTransfer
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidDateRange):
		return CodeInvalidDateRange
	case errors.Is(err, ErrInvalidLimit):
		return CodeInvalidLimit
	case errors.Is(err, ErrTransient):
		return CodeTransient
	default:
		return CodeInternal
	}
}

// IsNotFound reports whether err indicates an unresolved account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

// IsTransient reports whether err is a retryable infrastructure failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsCallerError reports whether err is correctable by the caller (input or
// business-rule violation) as opposed to an infrastructure failure.
// Caller errors must never be auto-retried.
func IsCallerError(err error) bool {
	switch Code(err) {
	case CodeAccountNotFound, CodeCurrencyMismatch, CodeInsufficientFunds,
		CodeSelfTransfer, CodeInvalidAmount, CodeInvalidDateRange, CodeInvalidLimit:
		return true
	default:
		return false
	}
}
