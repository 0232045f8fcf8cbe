package ordering

import (
	"time"

	"github.com/commerce/backend/internal/domain/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Order DTOs
// =============================================================================

// OrderItemRequest represents one line item at order creation time.
// TotalPrice is client-supplied and verified against Quantity * UnitPrice.
type OrderItemRequest struct {
	ProductVariantID uuid.UUID       `json:"product_variant_id" binding:"required"`
	SellerID         uuid.UUID       `json:"seller_id" binding:"required"`
	Quantity         int64           `json:"quantity" binding:"required,min=1"`
	UnitPrice        decimal.Decimal `json:"unit_price" binding:"required"`
	TotalPrice       decimal.Decimal `json:"total_price" binding:"required"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	ChannelID uuid.UUID          `json:"channel_id" binding:"required"`
	Currency  string             `json:"currency" binding:"required,len=3"`
	Items     []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderItemResponse represents an order item in API responses
type OrderItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductVariantID uuid.UUID       `json:"product_variant_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalPrice       decimal.Decimal `json:"total_price"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	CustomerID  uuid.UUID           `json:"customer_id"`
	ChannelID   uuid.UUID           `json:"channel_id"`
	Items       []OrderItemResponse `json:"items"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Currency    string              `json:"currency"`
	Status      string              `json:"status"`
	OrderedAt   time.Time           `json:"ordered_at"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Version     int                 `json:"version"`
}

// ToOrderResponse converts a domain order to its response DTO
func ToOrderResponse(order *ordering.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:               item.ID,
			ProductVariantID: item.ProductVariantID,
			SellerID:         item.SellerID,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalPrice:       item.TotalPrice,
		})
	}
	return OrderResponse{
		ID:          order.ID,
		CustomerID:  order.CustomerID,
		ChannelID:   order.ChannelID,
		Items:       items,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
		Status:      order.Status.String(),
		OrderedAt:   order.OrderedAt,
		PaidAt:      order.PaidAt,
		CancelledAt: order.CancelledAt,
		CompletedAt: order.CompletedAt,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		Version:     order.Version,
	}
}

// =============================================================================
// Payment DTOs
// =============================================================================

// CreatePaymentRequest represents a request to open a payment for an order
type CreatePaymentRequest struct {
	Method   string          `json:"method" binding:"required,oneof=CARD BANK_TRANSFER VIRTUAL_ACCOUNT MOBILE"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Currency string          `json:"currency" binding:"required,len=3"`
}

// UpdatePaymentRequest represents a patch against a pending payment
type UpdatePaymentRequest struct {
	Method            *string          `json:"method" binding:"omitempty,oneof=CARD BANK_TRANSFER VIRTUAL_ACCOUNT MOBILE"`
	Amount            *decimal.Decimal `json:"amount"`
	Currency          *string          `json:"currency" binding:"omitempty,len=3"`
	ExternalReference *string          `json:"external_reference" binding:"omitempty,max=200"`
}

// SucceedPaymentRequest carries the settlement details from the gateway
type SucceedPaymentRequest struct {
	CompletedAt       *time.Time `json:"completed_at"`
	ExternalReference string     `json:"external_reference" binding:"max=200"`
}

// FailPaymentRequest carries the failure reason from the gateway
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"order_id"`
	Method            string          `json:"method"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Status            string          `json:"status"`
	RequestedAt       time.Time       `json:"requested_at"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	ExternalReference string          `json:"external_reference,omitempty"`
	FailReason        string          `json:"fail_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ToPaymentResponse converts a domain payment to its response DTO
func ToPaymentResponse(payment *ordering.Payment) PaymentResponse {
	return PaymentResponse{
		ID:                payment.ID,
		OrderID:           payment.OrderID,
		Method:            payment.Method.String(),
		Amount:            payment.Amount,
		Currency:          payment.Currency,
		Status:            payment.Status.String(),
		RequestedAt:       payment.RequestedAt,
		CompletedAt:       payment.CompletedAt,
		ExternalReference: payment.ExternalReference,
		FailReason:        payment.FailReason,
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
		Version:           payment.Version,
	}
}
