package ordering

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MileageEffects is the mileage engine as seen from payment
// transitions. Settlement accrues, refund reverses.
type MileageEffects interface {
	AccrueForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error
	ReverseForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error
}

// LedgerEffect is a deferred mileage side effect of a payment
// transition. The payment write has already committed when one of these
// is enqueued; the effect is applied asynchronously until it sticks.
type LedgerEffect struct {
	CustomerID uuid.UUID
	SellerID   *uuid.UUID
	OrderTotal decimal.Decimal
	OrderID    uuid.UUID
	Reverse    bool
	Attempts   int
}

// EffectQueue accepts deferred ledger effects for asynchronous retry
type EffectQueue interface {
	Enqueue(effect LedgerEffect) error
}
