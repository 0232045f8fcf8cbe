package ordering

import (
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle status of a payment
type PaymentStatus string

const (
	// PaymentStatusPending is the initial state; all fields may change
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusSucceeded indicates settlement; core fields lock
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	// PaymentStatusFailed is terminal
	PaymentStatusFailed PaymentStatus = "FAILED"
	// PaymentStatusRefunded is terminal, reachable only from SUCCEEDED
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSucceeded, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the payment is settled or otherwise final.
// Terminal payments lock amount, method and currency.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// CanTransitionTo checks if the status can transition to the target status
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusSucceeded || target == PaymentStatusFailed
	case PaymentStatusSucceeded:
		return target == PaymentStatusRefunded
	case PaymentStatusFailed, PaymentStatusRefunded:
		return false
	}
	return false
}

// PaymentMethod represents how a payment is made
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodVirtualAcct  PaymentMethod = "VIRTUAL_ACCOUNT"
	PaymentMethodMobile       PaymentMethod = "MOBILE"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodVirtualAcct, PaymentMethodMobile:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Payment represents a payment against an order.
// Once the status is terminal the amount, method and currency are
// immutable; only status transitions permitted by the state machine may
// still alter status/completed_at.
type Payment struct {
	shared.BaseAggregateRoot
	OrderID           uuid.UUID
	Method            PaymentMethod
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus
	RequestedAt       time.Time
	CompletedAt       *time.Time
	ExternalReference string
	FailReason        string
}

// NewPayment creates a new payment in PENDING state.
// supportedCurrencies is the configured whitelist; an empty list rejects
// everything.
func NewPayment(orderID uuid.UUID, method PaymentMethod, amount decimal.Decimal, currency string, supportedCurrencies []string) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid payment method")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError(shared.CodeValidation, "Payment amount must be positive")
	}
	if !currencySupported(currency, supportedCurrencies) {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Currency %s is not supported", currency))
	}

	payment := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		Method:            method,
		Amount:            amount,
		Currency:          currency,
		Status:            PaymentStatusPending,
		RequestedAt:       time.Now(),
	}

	payment.AddDomainEvent(NewPaymentCreatedEvent(payment))

	return payment, nil
}

func currencySupported(currency string, supported []string) bool {
	for _, c := range supported {
		if c == currency {
			return true
		}
	}
	return false
}

// IsLocked returns true when the payment's core fields are immutable
func (p *Payment) IsLocked() bool {
	return p.Status.IsTerminal()
}

// PaymentPatch carries optional field updates for a pending payment
type PaymentPatch struct {
	Method            *PaymentMethod
	Amount            *decimal.Decimal
	Currency          *string
	ExternalReference *string
}

// Update applies a patch to a pending payment.
// On a locked payment any attempt to change amount, method or currency
// fails with a LOCKED_STATE error; patches touching only the external
// reference are likewise rejected because nothing but transitions may
// alter a settled payment.
func (p *Payment) Update(patch PaymentPatch, supportedCurrencies []string) error {
	if p.IsLocked() {
		return shared.NewDomainError(shared.CodeLockedState,
			fmt.Sprintf("Payment in %s status cannot be modified", p.Status))
	}

	if patch.Method != nil {
		if !patch.Method.IsValid() {
			return shared.NewDomainError(shared.CodeValidation, "Invalid payment method")
		}
		p.Method = *patch.Method
	}
	if patch.Amount != nil {
		if patch.Amount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError(shared.CodeValidation, "Payment amount must be positive")
		}
		p.Amount = *patch.Amount
	}
	if patch.Currency != nil {
		if !currencySupported(*patch.Currency, supportedCurrencies) {
			return shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Currency %s is not supported", *patch.Currency))
		}
		p.Currency = *patch.Currency
	}
	if patch.ExternalReference != nil {
		p.ExternalReference = *patch.ExternalReference
	}

	p.UpdatedAt = time.Now()

	return nil
}

// MarkSucceeded settles the payment.
// completedAt must not precede the request timestamp. Repeating the
// transition on an already-succeeded payment is an idempotent no-op.
func (p *Payment) MarkSucceeded(completedAt time.Time, externalReference string) error {
	if p.Status == PaymentStatusSucceeded {
		return nil // idempotent repeat
	}
	if !p.Status.CanTransitionTo(PaymentStatusSucceeded) {
		return shared.NewDomainError(shared.CodeLockedState,
			fmt.Sprintf("Cannot settle payment in %s status", p.Status))
	}
	if completedAt.Before(p.RequestedAt) {
		return shared.NewDomainError(shared.CodeValidation, "Completion time cannot precede request time")
	}

	p.Status = PaymentStatusSucceeded
	p.CompletedAt = &completedAt
	if externalReference != "" {
		p.ExternalReference = externalReference
	}
	p.UpdatedAt = time.Now()

	p.AddDomainEvent(NewPaymentSucceededEvent(p))

	return nil
}

// MarkFailed transitions a pending payment to FAILED.
// Repeating the transition on a failed payment is an idempotent no-op.
func (p *Payment) MarkFailed(reason string) error {
	if p.Status == PaymentStatusFailed {
		return nil // idempotent repeat
	}
	if !p.Status.CanTransitionTo(PaymentStatusFailed) {
		return shared.NewDomainError(shared.CodeLockedState,
			fmt.Sprintf("Cannot fail payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = PaymentStatusFailed
	p.CompletedAt = &now
	p.FailReason = reason
	p.UpdatedAt = now

	p.AddDomainEvent(NewPaymentFailedEvent(p))

	return nil
}

// Refund transitions a settled payment to REFUNDED.
// Repeating the transition on a refunded payment is an idempotent no-op.
func (p *Payment) Refund() error {
	if p.Status == PaymentStatusRefunded {
		return nil // idempotent repeat
	}
	if !p.Status.CanTransitionTo(PaymentStatusRefunded) {
		return shared.NewDomainError(shared.CodeLockedState,
			fmt.Sprintf("Cannot refund payment in %s status", p.Status))
	}

	now := time.Now()
	p.Status = PaymentStatusRefunded
	p.UpdatedAt = now

	p.AddDomainEvent(NewPaymentRefundedEvent(p))

	return nil
}
