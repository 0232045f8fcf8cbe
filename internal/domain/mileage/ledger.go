package mileage

import (
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerStatus represents the status of a mileage ledger
type LedgerStatus string

const (
	LedgerStatusActive  LedgerStatus = "ACTIVE"
	LedgerStatusExpired LedgerStatus = "EXPIRED"
)

// IsValid checks if the status is a valid LedgerStatus
func (s LedgerStatus) IsValid() bool {
	switch s {
	case LedgerStatusActive, LedgerStatusExpired:
		return true
	}
	return false
}

// String returns the string representation of LedgerStatus
func (s LedgerStatus) String() string {
	return string(s)
}

// Ledger is a per-customer (optionally per-seller) mileage account.
//
// Conservation invariant, checked after every mutation:
//
//	TotalAccrued == Usable + Expired + OnHold + SpentTotal
//
// A nil SellerID means the ledger is platform-wide. ExpiresAt is the
// nearest expiry horizon among the ledger's unexpired mileage; it is
// what the expired_before/expired_after query filters compare against.
type Ledger struct {
	shared.BaseAggregateRoot
	CustomerID   uuid.UUID
	SellerID     *uuid.UUID
	TotalAccrued decimal.Decimal
	Usable       decimal.Decimal
	Expired      decimal.Decimal
	OnHold       decimal.Decimal
	SpentTotal   decimal.Decimal
	Status       LedgerStatus
	ExpiresAt    *time.Time
	DeletedAt    *time.Time
}

// NewLedger creates a new empty ledger for a (customer, seller) pair
func NewLedger(customerID uuid.UUID, sellerID *uuid.UUID) (*Ledger, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer ID cannot be empty")
	}
	if sellerID != nil && *sellerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Seller ID cannot be empty when provided")
	}

	ledger := &Ledger{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		SellerID:          sellerID,
		TotalAccrued:      decimal.Zero,
		Usable:            decimal.Zero,
		Expired:           decimal.Zero,
		OnHold:            decimal.Zero,
		SpentTotal:        decimal.Zero,
		Status:            LedgerStatusActive,
	}

	ledger.AddDomainEvent(NewLedgerCreatedEvent(ledger))

	return ledger, nil
}

// IsDeleted returns true if the ledger has been soft-deleted
func (l *Ledger) IsDeleted() bool {
	return l.DeletedAt != nil
}

// ensureMutable rejects mutations on soft-deleted ledgers
func (l *Ledger) ensureMutable() error {
	if l.IsDeleted() {
		return shared.NewDomainError(shared.CodeGone,
			fmt.Sprintf("Ledger %s has been deleted", l.ID))
	}
	return nil
}

// Accrue credits usable mileage and raises the total accrued.
// expiresAt, when non-zero, feeds the nearest expiry horizon: the ledger
// keeps the earliest horizon among unexpired accruals.
func (l *Ledger) Accrue(amount decimal.Decimal, expiresAt *time.Time) error {
	if err := l.ensureMutable(); err != nil {
		return err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Accrual amount must be positive")
	}

	l.Usable = l.Usable.Add(amount)
	l.TotalAccrued = l.TotalAccrued.Add(amount)
	l.Status = LedgerStatusActive
	if expiresAt != nil {
		if l.ExpiresAt == nil || expiresAt.Before(*l.ExpiresAt) {
			l.ExpiresAt = expiresAt
		}
	}
	l.UpdatedAt = time.Now()

	return nil
}

// Spend debits usable mileage. A spend exceeding the usable balance
// fails with INSUFFICIENT_BALANCE and leaves the ledger untouched.
func (l *Ledger) Spend(amount decimal.Decimal) error {
	if err := l.ensureMutable(); err != nil {
		return err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Spend amount must be positive")
	}
	if amount.GreaterThan(l.Usable) {
		return shared.NewDomainError(shared.CodeInsufficientBalance,
			fmt.Sprintf("Spend of %s exceeds usable mileage %s", amount, l.Usable))
	}

	l.Usable = l.Usable.Sub(amount)
	l.SpentTotal = l.SpentTotal.Add(amount)
	l.UpdatedAt = time.Now()

	return nil
}

// Hold moves mileage from usable to on-hold
func (l *Ledger) Hold(amount decimal.Decimal) error {
	if err := l.ensureMutable(); err != nil {
		return err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Hold amount must be positive")
	}
	if amount.GreaterThan(l.Usable) {
		return shared.NewDomainError(shared.CodeInsufficientBalance,
			fmt.Sprintf("Hold of %s exceeds usable mileage %s", amount, l.Usable))
	}

	l.Usable = l.Usable.Sub(amount)
	l.OnHold = l.OnHold.Add(amount)
	l.UpdatedAt = time.Now()

	return nil
}

// ReleaseHold moves mileage from on-hold back to usable
func (l *Ledger) ReleaseHold(amount decimal.Decimal) error {
	if err := l.ensureMutable(); err != nil {
		return err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Release amount must be positive")
	}
	if amount.GreaterThan(l.OnHold) {
		return shared.NewDomainError(shared.CodeInsufficientBalance,
			fmt.Sprintf("Release of %s exceeds on-hold mileage %s", amount, l.OnHold))
	}

	l.OnHold = l.OnHold.Sub(amount)
	l.Usable = l.Usable.Add(amount)
	l.UpdatedAt = time.Now()

	return nil
}

// ExpireAmount moves mileage from usable to expired.
// When the usable balance reaches zero past the horizon the ledger
// status flips to EXPIRED.
func (l *Ledger) ExpireAmount(amount decimal.Decimal, now time.Time) error {
	if err := l.ensureMutable(); err != nil {
		return err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "Expiry amount must be positive")
	}
	if amount.GreaterThan(l.Usable) {
		return shared.NewDomainError(shared.CodeInvalidAmount,
			fmt.Sprintf("Expiry of %s exceeds usable mileage %s", amount, l.Usable))
	}

	l.Usable = l.Usable.Sub(amount)
	l.Expired = l.Expired.Add(amount)
	if l.Usable.IsZero() && l.ExpiresAt != nil && !now.Before(*l.ExpiresAt) {
		l.Status = LedgerStatusExpired
	}
	l.UpdatedAt = now

	return nil
}

// IsDueForExpiry reports whether the ledger has usable mileage past its
// expiry horizon at the given time
func (l *Ledger) IsDueForExpiry(now time.Time) bool {
	if l.IsDeleted() || l.ExpiresAt == nil {
		return false
	}
	return l.Usable.IsPositive() && !now.Before(*l.ExpiresAt)
}

// SoftDelete marks the ledger deleted. The row is retained; all further
// balance operations are rejected. Deleting twice fails with
// ALREADY_DELETED.
func (l *Ledger) SoftDelete(now time.Time) error {
	if l.IsDeleted() {
		return shared.NewDomainError(shared.CodeAlreadyDeleted,
			fmt.Sprintf("Ledger %s is already deleted", l.ID))
	}

	l.DeletedAt = &now
	l.UpdatedAt = now

	l.AddDomainEvent(NewLedgerDeletedEvent(l))

	return nil
}

// ConservationHolds verifies the balance conservation invariant
func (l *Ledger) ConservationHolds() bool {
	derived := l.Usable.Add(l.Expired).Add(l.OnHold).Add(l.SpentTotal)
	return l.TotalAccrued.Equal(derived)
}
