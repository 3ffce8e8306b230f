// Package ledger defines the core domain model: accounts, transactions,
// transfer receipts and the domain error set. It contains no storage or
// transport concerns.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType identifies the product type of a deposit account.
type AccountType string

const (
	AccountSavings      AccountType = "savings"
	AccountCurrent      AccountType = "current"
	AccountFixedDeposit AccountType = "fixed_deposit"
)

// AccountStatus is the lifecycle state of an account. Accounts are never
// physically deleted; closure is a status change.
type AccountStatus string

const (
	StatusActive    AccountStatus = "active"
	StatusDormant   AccountStatus = "dormant"
	StatusClosed    AccountStatus = "closed"
	StatusSuspended AccountStatus = "suspended"
)

// Account is one deposit account. Balance fields are mutated only by the
// transfer executor, under an exclusive row lock.
type Account struct {
	ID      string        `json:"id"`
	OwnerID string        `json:"owner_id"`
	Number  string        `json:"number"`
	Type    AccountType   `json:"type"`
	Status  AccountStatus `json:"status"`

	Currency string `json:"currency"`

	// LedgerBalance is the full recorded balance, including holds.
	LedgerBalance decimal.Decimal `json:"ledger_balance"`

	// AvailableBalance is the ledger balance minus held amounts.
	// Invariant: AvailableBalance <= LedgerBalance.
	AvailableBalance decimal.Decimal `json:"available_balance"`

	OpenedAt time.Time `json:"opened_at"`
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxnDeposit     TransactionType = "deposit"
	TxnWithdrawal  TransactionType = "withdrawal"
	TxnTransferIn  TransactionType = "transfer_in"
	TxnTransferOut TransactionType = "transfer_out"
	TxnPayment     TransactionType = "payment"
	TxnRefund      TransactionType = "refund"
)

// TransactionStatus is the settlement state of a ledger entry. A settled
// entry is immutable; corrections are new reversal/refund entries.
type TransactionStatus string

const (
	TxnPending  TransactionStatus = "pending"
	TxnSettled  TransactionStatus = "settled"
	TxnFailed   TransactionStatus = "failed"
	TxnReversed TransactionStatus = "reversed"
)

// Channel identifies the origination channel of a transaction.
type Channel string

const (
	ChannelVoice  Channel = "voice"
	ChannelUPI    Channel = "upi"
	ChannelCard   Channel = "card"
	ChannelBranch Channel = "branch"
	ChannelSystem Channel = "system"
)

// Transaction is one ledger entry: half of a transfer, or a standalone
// deposit, withdrawal, payment or refund.
type Transaction struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	SessionID string `json:"session_id,omitempty"`

	Type    TransactionType   `json:"type"`
	Status  TransactionStatus `json:"status"`
	Channel Channel           `json:"channel"`

	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`

	Description string `json:"description,omitempty"`

	// ReferenceID is shared by the two legs of one transfer.
	ReferenceID string `json:"reference_id"`

	CounterpartyNumber string `json:"counterparty_number,omitempty"`
	CounterpartyName   string `json:"counterparty_name,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// TransferReceipt is the derived result of one successful transfer.
// It is constructed from the debit/credit pair and is not persisted.
type TransferReceipt struct {
	ReferenceID string          `json:"reference_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`

	DebitTransactionID  string `json:"debit_transaction_id"`
	CreditTransactionID string `json:"credit_transaction_id"`

	SourceNumber      string `json:"source_number"`
	DestinationNumber string `json:"destination_number"`

	// BeneficiaryName is set when the destination matched a registered
	// beneficiary of the caller.
	BeneficiaryName string `json:"beneficiary_name,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// StatementData is a summarized view of one account over a date range.
//
// Balances are the account's balances at statement-generation time, not a
// reconstruction as of the period end. Callers that need the historical
// closing balance must replay the ledger themselves.
type StatementData struct {
	AccountNumber string `json:"account_number"`
	PeriodLabel   string `json:"period_label"`

	FromDate time.Time `json:"from_date"`
	ToDate   time.Time `json:"to_date"`

	Transactions     []*Transaction `json:"transactions"`
	TransactionCount int            `json:"transaction_count"`

	LedgerBalance    decimal.Decimal `json:"ledger_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Currency         string          `json:"currency"`

	GeneratedAt time.Time `json:"generated_at"`
}

// Beneficiary is a registered payee tracked for convenience. The ledger
// core only reads beneficiaries and bumps their last-used marker; it never
// creates or deletes them.
type Beneficiary struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Name          string     `json:"name"`
	AccountNumber string     `json:"account_number"`
	LastUsedAt    *time.Time `json:"last_used_at,omitempty"`
}
