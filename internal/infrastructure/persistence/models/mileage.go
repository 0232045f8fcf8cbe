package models

import (
	"time"

	"github.com/commerce/backend/internal/domain/mileage"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MileageLedgerModel is the persistence model for the mileage Ledger aggregate.
// Soft deletion is an explicit nullable timestamp rather than gorm.DeletedAt
// so that deleted rows stay addressable for GONE answers and audit reads.
type MileageLedgerModel struct {
	AggregateModel
	CustomerID   uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_customer_seller,priority:1"`
	SellerID     *uuid.UUID           `gorm:"type:uuid;uniqueIndex:idx_ledger_customer_seller,priority:2"`
	TotalAccrued decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Usable       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Expired      decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	OnHold       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	SpentTotal   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status       mileage.LedgerStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ExpiresAt    *time.Time           `gorm:"index"`
	DeletedAt    *time.Time           `gorm:"index"`
}

// TableName returns the table name for GORM
func (MileageLedgerModel) TableName() string {
	return "mileage_ledgers"
}

// ToDomain converts the persistence model to a domain Ledger aggregate
func (m *MileageLedgerModel) ToDomain() *mileage.Ledger {
	return &mileage.Ledger{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		CustomerID:   m.CustomerID,
		SellerID:     m.SellerID,
		TotalAccrued: m.TotalAccrued,
		Usable:       m.Usable,
		Expired:      m.Expired,
		OnHold:       m.OnHold,
		SpentTotal:   m.SpentTotal,
		Status:       m.Status,
		ExpiresAt:    m.ExpiresAt,
		DeletedAt:    m.DeletedAt,
	}
}

// MileageLedgerModelFromDomain builds a persistence model from a domain Ledger
func MileageLedgerModelFromDomain(l *mileage.Ledger) *MileageLedgerModel {
	m := &MileageLedgerModel{
		CustomerID:   l.CustomerID,
		SellerID:     l.SellerID,
		TotalAccrued: l.TotalAccrued,
		Usable:       l.Usable,
		Expired:      l.Expired,
		OnHold:       l.OnHold,
		SpentTotal:   l.SpentTotal,
		Status:       l.Status,
		ExpiresAt:    l.ExpiresAt,
		DeletedAt:    l.DeletedAt,
	}
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	return m
}

// MileageTransactionModel is the append-only persistence model for
// ledger transactions
type MileageTransactionModel struct {
	BaseModel
	LedgerID      uuid.UUID               `gorm:"type:uuid;not null;index"`
	Type          mileage.TransactionType `gorm:"type:varchar(20);not null;index"`
	Amount        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BalanceBefore decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BalanceAfter  decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	ReferenceID   *uuid.UUID              `gorm:"type:uuid;index"`
	BatchID       string                  `gorm:"type:varchar(100);index"`
	Description   string                  `gorm:"type:varchar(500)"`
	OccurredAt    time.Time               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (MileageTransactionModel) TableName() string {
	return "mileage_transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *MileageTransactionModel) ToDomain() *mileage.Transaction {
	return &mileage.Transaction{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		LedgerID:      m.LedgerID,
		Type:          m.Type,
		Amount:        m.Amount,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		ReferenceID:   m.ReferenceID,
		BatchID:       m.BatchID,
		Description:   m.Description,
		OccurredAt:    m.OccurredAt,
	}
}

// MileageTransactionModelFromDomain builds a persistence model from a
// domain Transaction
func MileageTransactionModelFromDomain(tx *mileage.Transaction) *MileageTransactionModel {
	m := &MileageTransactionModel{
		LedgerID:      tx.LedgerID,
		Type:          tx.Type,
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		ReferenceID:   tx.ReferenceID,
		BatchID:       tx.BatchID,
		Description:   tx.Description,
		OccurredAt:    tx.OccurredAt,
	}
	m.FromDomainBaseEntity(tx.BaseEntity)
	return m
}
