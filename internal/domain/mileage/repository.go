package mileage

import (
	"context"
	"time"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LedgerFilter narrows ledger queries.
// ExpiredBefore and ExpiredAfter compare strictly against the ledger's
// expiry horizon: before means horizon < t, after means horizon > t.
// Ledgers with no horizon never match either filter.
type LedgerFilter struct {
	CustomerID     *uuid.UUID
	SellerID       *uuid.UUID
	Status         *LedgerStatus
	ExpiredBefore  *time.Time
	ExpiredAfter   *time.Time
	IncludeDeleted bool
	Page           int
	PageSize       int
}

// DefaultLedgerFilter returns a filter with default pagination
func DefaultLedgerFilter() LedgerFilter {
	return LedgerFilter{
		Page:     1,
		PageSize: 20,
	}
}

// LedgerRepository defines persistence operations for mileage ledgers
type LedgerRepository interface {
	// FindByID finds a ledger by ID, including soft-deleted rows
	FindByID(ctx context.Context, id uuid.UUID) (*Ledger, error)

	// FindByCustomerAndSeller finds the live ledger for a (customer, seller)
	// pair; a nil sellerID matches the platform-wide ledger
	FindByCustomerAndSeller(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID) (*Ledger, error)

	// Create persists a new ledger
	Create(ctx context.Context, ledger *Ledger) error

	// SaveWithLock updates a ledger with an optimistic version check.
	// Concurrent mutations of the same ledger serialize through this; the
	// loser receives a CONFLICT error and must reload and retry.
	SaveWithLock(ctx context.Context, ledger *Ledger) error

	// SaveWithTransaction atomically updates the ledger under the version
	// check and appends the transaction record in the same database
	// transaction; either both land or neither does
	SaveWithTransaction(ctx context.Context, ledger *Ledger, tx *Transaction) error

	// Query lists ledgers matching the filter with a total count
	Query(ctx context.Context, filter LedgerFilter) ([]*Ledger, int64, error)

	// FindDueForExpiry lists live ledgers whose horizon has passed and
	// which still carry usable mileage, up to limit rows
	FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*Ledger, error)
}

// TransactionRepository defines persistence operations for ledger transactions
type TransactionRepository interface {
	// Create appends a transaction record
	Create(ctx context.Context, tx *Transaction) error

	// FindByLedgerID lists transactions for a ledger, newest first
	FindByLedgerID(ctx context.Context, ledgerID uuid.UUID, filter shared.Filter) ([]*Transaction, int64, error)
}
