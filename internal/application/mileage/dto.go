package mileage

import (
	"time"

	"github.com/commerce/backend/internal/domain/mileage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccrueRequest represents a request to credit mileage
type AccrueRequest struct {
	CustomerID  uuid.UUID       `json:"customer_id" binding:"required"`
	SellerID    *uuid.UUID      `json:"seller_id"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ExpiresAt   *time.Time      `json:"expires_at"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	Description string          `json:"description" binding:"max=500"`
}

// SpendRequest represents a request to debit mileage
type SpendRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	Description string          `json:"description" binding:"max=500"`
}

// HoldRequest represents a request to reserve usable mileage
type HoldRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	Description string          `json:"description" binding:"max=500"`
}

// ReleaseRequest represents a request to return held mileage to usable
type ReleaseRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	ReferenceID *uuid.UUID      `json:"reference_id"`
	Description string          `json:"description" binding:"max=500"`
}

// QueryLedgersRequest narrows a ledger listing
type QueryLedgersRequest struct {
	CustomerID     *uuid.UUID `form:"customer_id"`
	SellerID       *uuid.UUID `form:"seller_id"`
	Status         *string    `form:"status" binding:"omitempty,oneof=ACTIVE EXPIRED"`
	ExpiredBefore  *time.Time `form:"expired_before" time_format:"2006-01-02T15:04:05Z07:00"`
	ExpiredAfter   *time.Time `form:"expired_after" time_format:"2006-01-02T15:04:05Z07:00"`
	IncludeDeleted bool       `form:"include_deleted"`
	Page           int        `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize       int        `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// LedgerResponse represents a mileage ledger in API responses
type LedgerResponse struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	SellerID     *uuid.UUID      `json:"seller_id,omitempty"`
	TotalAccrued decimal.Decimal `json:"total_accrued"`
	Usable       decimal.Decimal `json:"usable_mileage"`
	Expired      decimal.Decimal `json:"expired_mileage"`
	OnHold       decimal.Decimal `json:"on_hold_mileage"`
	SpentTotal   decimal.Decimal `json:"spent_total"`
	Status       string          `json:"status"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// ToLedgerResponse converts a domain ledger to its response DTO
func ToLedgerResponse(ledger *mileage.Ledger) LedgerResponse {
	return LedgerResponse{
		ID:           ledger.ID,
		CustomerID:   ledger.CustomerID,
		SellerID:     ledger.SellerID,
		TotalAccrued: ledger.TotalAccrued,
		Usable:       ledger.Usable,
		Expired:      ledger.Expired,
		OnHold:       ledger.OnHold,
		SpentTotal:   ledger.SpentTotal,
		Status:       ledger.Status.String(),
		ExpiresAt:    ledger.ExpiresAt,
		DeletedAt:    ledger.DeletedAt,
		CreatedAt:    ledger.CreatedAt,
		UpdatedAt:    ledger.UpdatedAt,
		Version:      ledger.Version,
	}
}

// TransactionResponse represents a ledger transaction in API responses
type TransactionResponse struct {
	ID            uuid.UUID       `json:"id"`
	LedgerID      uuid.UUID       `json:"ledger_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	ReferenceID   *uuid.UUID      `json:"reference_id,omitempty"`
	BatchID       string          `json:"batch_id,omitempty"`
	Description   string          `json:"description,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// ToTransactionResponse converts a domain transaction to its response DTO
func ToTransactionResponse(tx *mileage.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            tx.ID,
		LedgerID:      tx.LedgerID,
		Type:          tx.Type.String(),
		Amount:        tx.Amount,
		BalanceBefore: tx.BalanceBefore,
		BalanceAfter:  tx.BalanceAfter,
		ReferenceID:   tx.ReferenceID,
		BatchID:       tx.BatchID,
		Description:   tx.Description,
		OccurredAt:    tx.OccurredAt,
	}
}

// ExpirySweepResult summarizes one sweep batch
type ExpirySweepResult struct {
	BatchID      string `json:"batch_id"`
	Scanned      int    `json:"scanned"`
	Expired      int    `json:"expired"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	AlreadySwept int    `json:"already_swept"`
}
