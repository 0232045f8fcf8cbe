package mileage

import (
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeLedger = "MileageLedger"

// Event type constants
const (
	EventTypeLedgerCreated = "MileageLedgerCreated"
	EventTypeLedgerDeleted = "MileageLedgerDeleted"
	EventTypeLedgerExpired = "MileageLedgerExpired"
)

// LedgerCreatedEvent is raised when a new mileage ledger is opened
type LedgerCreatedEvent struct {
	shared.BaseDomainEvent
	LedgerID   uuid.UUID  `json:"ledger_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	SellerID   *uuid.UUID `json:"seller_id,omitempty"`
}

// NewLedgerCreatedEvent creates a new LedgerCreatedEvent
func NewLedgerCreatedEvent(ledger *Ledger) *LedgerCreatedEvent {
	return &LedgerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerCreated, AggregateTypeLedger, ledger.ID),
		LedgerID:        ledger.ID,
		CustomerID:      ledger.CustomerID,
		SellerID:        ledger.SellerID,
	}
}

// LedgerDeletedEvent is raised when a ledger is soft-deleted
type LedgerDeletedEvent struct {
	shared.BaseDomainEvent
	LedgerID   uuid.UUID  `json:"ledger_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	DeletedAt  *time.Time `json:"deleted_at"`
}

// NewLedgerDeletedEvent creates a new LedgerDeletedEvent
func NewLedgerDeletedEvent(ledger *Ledger) *LedgerDeletedEvent {
	return &LedgerDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerDeleted, AggregateTypeLedger, ledger.ID),
		LedgerID:        ledger.ID,
		CustomerID:      ledger.CustomerID,
		DeletedAt:       ledger.DeletedAt,
	}
}

// LedgerExpiredEvent is raised when a sweep writes off a ledger's usable mileage
type LedgerExpiredEvent struct {
	shared.BaseDomainEvent
	LedgerID       uuid.UUID       `json:"ledger_id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	ExpiredAmount  decimal.Decimal `json:"expired_amount"`
	BatchID        string          `json:"batch_id"`
	RemainingUsage decimal.Decimal `json:"remaining_usable"`
}

// NewLedgerExpiredEvent creates a new LedgerExpiredEvent
func NewLedgerExpiredEvent(ledger *Ledger, expiredAmount decimal.Decimal, batchID string) *LedgerExpiredEvent {
	return &LedgerExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLedgerExpired, AggregateTypeLedger, ledger.ID),
		LedgerID:        ledger.ID,
		CustomerID:      ledger.CustomerID,
		ExpiredAmount:   expiredAmount,
		BatchID:         batchID,
		RemainingUsage:  ledger.Usable,
	}
}
