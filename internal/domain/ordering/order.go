package ordering

import (
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a customer order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled, OrderStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusPaid:
		return target == OrderStatusCompleted || target == OrderStatusCancelled
	case OrderStatusCancelled, OrderStatusCompleted:
		return false // Terminal states
	}
	return false
}

// OrderItem represents a line item in an order.
// Items are attached at order creation time and never mutated afterwards.
type OrderItem struct {
	ID               uuid.UUID
	OrderID          uuid.UUID
	ProductVariantID uuid.UUID
	SellerID         uuid.UUID
	Quantity         int64
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal // Quantity * UnitPrice
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrderItem creates a new order item.
// TotalPrice must equal Quantity * UnitPrice exactly; the caller supplies
// it so that client-provided totals are verified rather than silently
// recomputed.
func NewOrderItem(orderID, productVariantID, sellerID uuid.UUID, quantity int64, unitPrice, totalPrice decimal.Decimal) (*OrderItem, error) {
	if productVariantID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Product variant ID cannot be empty")
	}
	if sellerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Seller ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Unit price cannot be negative")
	}
	expected := unitPrice.Mul(decimal.NewFromInt(quantity))
	if !totalPrice.Equal(expected) {
		return nil, shared.NewDomainError(shared.CodeValidation,
			fmt.Sprintf("Item total price %s does not equal quantity x unit price (%s)", totalPrice, expected))
	}

	now := time.Now()
	return &OrderItem{
		ID:               uuid.New(),
		OrderID:          orderID,
		ProductVariantID: productVariantID,
		SellerID:         sellerID,
		Quantity:         quantity,
		UnitPrice:        unitPrice,
		TotalPrice:       totalPrice,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// OrderItemInput carries the caller-supplied fields for one item at
// order creation time.
type OrderItemInput struct {
	ProductVariantID uuid.UUID
	SellerID         uuid.UUID
	Quantity         int64
	UnitPrice        decimal.Decimal
	TotalPrice       decimal.Decimal
}

// Order represents a customer order aggregate root.
// Items are composed at creation; the order becomes immutable once completed.
type Order struct {
	shared.BaseAggregateRoot
	CustomerID  uuid.UUID
	ChannelID   uuid.UUID
	Items       []OrderItem
	TotalAmount decimal.Decimal
	Currency    string
	Status      OrderStatus
	OrderedAt   time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// NewOrder creates a new order with its items in one step.
// Item validation is all-or-nothing: any invalid item fails the whole
// order creation.
func NewOrder(customerID, channelID uuid.UUID, currency string, items []OrderItemInput) (*Order, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Customer ID cannot be empty")
	}
	if channelID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Channel ID cannot be empty")
	}
	if currency == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Currency cannot be empty")
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError(shared.CodeValidation, "Order must contain at least one item")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		ChannelID:         channelID,
		Items:             make([]OrderItem, 0, len(items)),
		TotalAmount:       decimal.Zero,
		Currency:          currency,
		Status:            OrderStatusPending,
		OrderedAt:         time.Now(),
	}

	total := decimal.Zero
	for _, in := range items {
		item, err := NewOrderItem(order.ID, in.ProductVariantID, in.SellerID, in.Quantity, in.UnitPrice, in.TotalPrice)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *item)
		total = total.Add(item.TotalPrice)
	}
	order.TotalAmount = total

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// OwnedBy reports whether the order belongs to the given customer
func (o *Order) OwnedBy(customerID uuid.UUID) bool {
	return o.CustomerID == customerID
}

// MarkPaid transitions the order to PAID when a payment settles
func (o *Order) MarkPaid() error {
	if o.Status == OrderStatusPaid {
		return nil // idempotent
	}
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot mark order paid in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusPaid
	o.PaidAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderPaidEvent(o))

	return nil
}

// Cancel cancels the order
func (o *Order) Cancel() error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o))

	return nil
}

// Complete marks the order as completed. Completed orders are immutable.
func (o *Order) Complete() error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCompletedEvent(o))

	return nil
}

// IsTerminal returns true if the order is completed or cancelled
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// ItemCount returns the number of items in the order
func (o *Order) ItemCount() int {
	return len(o.Items)
}

// GetItem returns an item by its ID
func (o *Order) GetItem(itemID uuid.UUID) *OrderItem {
	for idx := range o.Items {
		if o.Items[idx].ID == itemID {
			return &o.Items[idx]
		}
	}
	return nil
}
