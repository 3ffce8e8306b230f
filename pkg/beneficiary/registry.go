// Package beneficiary wraps the beneficiary registry collaborator. The
// ledger core only looks beneficiaries up and bumps their last-used
// marker; creation and deletion live elsewhere.
package beneficiary

import (
	"context"
	"errors"
	"time"

	"ledger-core/pkg/ledger"
)

// ErrNotFound is returned when no beneficiary matches the lookup.
var ErrNotFound = errors.New("beneficiary: not found")

// Registry is the collaborator contract consumed by the transfer executor.
type Registry interface {
	// FindByAccountNumber returns the owner's beneficiary registered under
	// the given account number, or ErrNotFound.
	FindByAccountNumber(ctx context.Context, ownerID, accountNumber string) (*ledger.Beneficiary, error)

	// MarkUsed bumps the beneficiary's last-used marker.
	MarkUsed(ctx context.Context, beneficiaryID string, usedAt time.Time) error
}
