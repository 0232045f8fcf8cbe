package ordering

import (
	"context"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines persistence operations for orders
type OrderRepository interface {
	// FindByID finds an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByCustomer finds orders for a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*Order, int64, error)

	// Create persists a new order together with its items in one transaction
	Create(ctx context.Context, order *Order) error

	// SaveWithLock updates an order with an optimistic version check
	SaveWithLock(ctx context.Context, order *Order) error
}

// PaymentRepository defines persistence operations for payments
type PaymentRepository interface {
	// FindByID finds a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByOrderID finds all payments for an order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)

	// Create persists a new payment
	Create(ctx context.Context, payment *Payment) error

	// SaveWithLock updates a payment with an optimistic version check.
	// Concurrent transitions on the same payment serialize through this;
	// the loser receives a CONFLICT error.
	SaveWithLock(ctx context.Context, payment *Payment) error
}
