package mileage

import (
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a mileage ledger transaction
type TransactionType string

const (
	TransactionTypeAccrue  TransactionType = "ACCRUE"
	TransactionTypeSpend   TransactionType = "SPEND"
	TransactionTypeExpire  TransactionType = "EXPIRE"
	TransactionTypeHold    TransactionType = "HOLD"
	TransactionTypeRelease TransactionType = "RELEASE"
)

// IsValid checks if the type is a valid TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeAccrue, TransactionTypeSpend, TransactionTypeExpire,
		TransactionTypeHold, TransactionTypeRelease:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// Transaction is an append-only record of a ledger mutation.
// Amount carries the signed effect on the usable balance: accruals and
// releases are positive, spends, expiries and holds are negative.
// BalanceBefore/BalanceAfter snapshot the usable balance around the
// mutation for audit.
type Transaction struct {
	shared.BaseEntity
	LedgerID      uuid.UUID
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	ReferenceID   *uuid.UUID
	BatchID       string
	Description   string
	OccurredAt    time.Time
}

func newTransaction(ledgerID uuid.UUID, txType TransactionType, signedAmount, balanceBefore decimal.Decimal, description string) *Transaction {
	return &Transaction{
		BaseEntity:    shared.NewBaseEntity(),
		LedgerID:      ledgerID,
		Type:          txType,
		Amount:        signedAmount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceBefore.Add(signedAmount),
		Description:   description,
		OccurredAt:    time.Now(),
	}
}

// NewAccrueTransaction records a credit of usable mileage.
// referenceID links back to the order that earned it, when any.
func NewAccrueTransaction(ledgerID uuid.UUID, amount, balanceBefore decimal.Decimal, referenceID *uuid.UUID, description string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Accrual amount must be positive")
	}
	tx := newTransaction(ledgerID, TransactionTypeAccrue, amount, balanceBefore, description)
	tx.ReferenceID = referenceID
	return tx, nil
}

// NewSpendTransaction records a debit of usable mileage
func NewSpendTransaction(ledgerID uuid.UUID, amount, balanceBefore decimal.Decimal, referenceID *uuid.UUID, description string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Spend amount must be positive")
	}
	tx := newTransaction(ledgerID, TransactionTypeSpend, amount.Neg(), balanceBefore, description)
	tx.ReferenceID = referenceID
	return tx, nil
}

// NewExpireTransaction records an expiry write-off.
// batchID identifies the sweep batch that produced it; transactions from
// the same batch against the same ledger are deduplicated upstream.
func NewExpireTransaction(ledgerID uuid.UUID, amount, balanceBefore decimal.Decimal, batchID string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Expiry amount must be positive")
	}
	tx := newTransaction(ledgerID, TransactionTypeExpire, amount.Neg(), balanceBefore, "Scheduled expiry")
	tx.BatchID = batchID
	return tx, nil
}

// NewHoldTransaction records a reservation of usable mileage
func NewHoldTransaction(ledgerID uuid.UUID, amount, balanceBefore decimal.Decimal, referenceID *uuid.UUID, description string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Hold amount must be positive")
	}
	tx := newTransaction(ledgerID, TransactionTypeHold, amount.Neg(), balanceBefore, description)
	tx.ReferenceID = referenceID
	return tx, nil
}

// NewReleaseTransaction records the return of held mileage to usable
func NewReleaseTransaction(ledgerID uuid.UUID, amount, balanceBefore decimal.Decimal, referenceID *uuid.UUID, description string) (*Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "Release amount must be positive")
	}
	tx := newTransaction(ledgerID, TransactionTypeRelease, amount, balanceBefore, description)
	tx.ReferenceID = referenceID
	return tx, nil
}
