package models

import (
	"time"

	"github.com/commerce/backend/internal/domain/ordering"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate
type OrderModel struct {
	AggregateModel
	CustomerID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	ChannelID   uuid.UUID            `gorm:"type:uuid;not null;index"`
	TotalAmount decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency    string               `gorm:"type:varchar(3);not null"`
	Status      ordering.OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	OrderedAt   time.Time            `gorm:"not null"`
	PaidAt      *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
	Items       []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order aggregate
func (m *OrderModel) ToDomain() *ordering.Order {
	items := make([]ordering.OrderItem, 0, len(m.Items))
	for i := range m.Items {
		items = append(items, *m.Items[i].ToDomain())
	}
	return &ordering.Order{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		CustomerID:  m.CustomerID,
		ChannelID:   m.ChannelID,
		Items:       items,
		TotalAmount: m.TotalAmount,
		Currency:    m.Currency,
		Status:      m.Status,
		OrderedAt:   m.OrderedAt,
		PaidAt:      m.PaidAt,
		CancelledAt: m.CancelledAt,
		CompletedAt: m.CompletedAt,
	}
}

// OrderModelFromDomain builds a persistence model from a domain Order
func OrderModelFromDomain(o *ordering.Order) *OrderModel {
	m := &OrderModel{
		CustomerID:  o.CustomerID,
		ChannelID:   o.ChannelID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Status:      o.Status,
		OrderedAt:   o.OrderedAt,
		PaidAt:      o.PaidAt,
		CancelledAt: o.CancelledAt,
		CompletedAt: o.CompletedAt,
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for i := range o.Items {
		m.Items = append(m.Items, *OrderItemModelFromDomain(&o.Items[i]))
	}
	return m
}

// OrderItemModel is the persistence model for an order line item
type OrderItemModel struct {
	BaseModel
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductVariantID uuid.UUID       `gorm:"type:uuid;not null;index"`
	SellerID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity         int64           `gorm:"not null"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem
func (m *OrderItemModel) ToDomain() *ordering.OrderItem {
	return &ordering.OrderItem{
		ID:               m.ID,
		OrderID:          m.OrderID,
		ProductVariantID: m.ProductVariantID,
		SellerID:         m.SellerID,
		Quantity:         m.Quantity,
		UnitPrice:        m.UnitPrice,
		TotalPrice:       m.TotalPrice,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// OrderItemModelFromDomain builds a persistence model from a domain OrderItem
func OrderItemModelFromDomain(item *ordering.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		BaseModel: BaseModel{
			ID:        item.ID,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		},
		OrderID:          item.OrderID,
		ProductVariantID: item.ProductVariantID,
		SellerID:         item.SellerID,
		Quantity:         item.Quantity,
		UnitPrice:        item.UnitPrice,
		TotalPrice:       item.TotalPrice,
	}
}

// PaymentModel is the persistence model for the Payment aggregate
type PaymentModel struct {
	AggregateModel
	OrderID           uuid.UUID              `gorm:"type:uuid;not null;index"`
	Method            ordering.PaymentMethod `gorm:"type:varchar(20);not null"`
	Amount            decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	Currency          string                 `gorm:"type:varchar(3);not null"`
	Status            ordering.PaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	RequestedAt       time.Time              `gorm:"not null"`
	CompletedAt       *time.Time
	ExternalReference string `gorm:"type:varchar(200)"`
	FailReason        string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment aggregate
func (m *PaymentModel) ToDomain() *ordering.Payment {
	return &ordering.Payment{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		OrderID:           m.OrderID,
		Method:            m.Method,
		Amount:            m.Amount,
		Currency:          m.Currency,
		Status:            m.Status,
		RequestedAt:       m.RequestedAt,
		CompletedAt:       m.CompletedAt,
		ExternalReference: m.ExternalReference,
		FailReason:        m.FailReason,
	}
}

// PaymentModelFromDomain builds a persistence model from a domain Payment
func PaymentModelFromDomain(p *ordering.Payment) *PaymentModel {
	m := &PaymentModel{
		OrderID:           p.OrderID,
		Method:            p.Method,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Status:            p.Status,
		RequestedAt:       p.RequestedAt,
		CompletedAt:       p.CompletedAt,
		ExternalReference: p.ExternalReference,
		FailReason:        p.FailReason,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}
