package mileage

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/mileage"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// maxConflictRetries bounds optimistic-lock retry loops on ledger writes
	maxConflictRetries = 3

	// expiryDedupTTL keeps sweep batch markers long enough to cover
	// overlapping or restarted sweeps
	expiryDedupTTL = 48 * time.Hour
)

// LedgerService coordinates mileage ledger operations
type LedgerService struct {
	ledgerRepo  mileage.LedgerRepository
	txRepo      mileage.TransactionRepository
	policy      mileage.AccrualPolicy
	idempotency shared.IdempotencyStore
	validity    time.Duration
	logger      *zap.Logger
}

// NewLedgerService creates a new LedgerService.
// validity is the accrual lifetime applied when a caller does not supply
// an explicit expiry; zero means accruals never expire.
func NewLedgerService(
	ledgerRepo mileage.LedgerRepository,
	txRepo mileage.TransactionRepository,
	policy mileage.AccrualPolicy,
	idempotency shared.IdempotencyStore,
	validity time.Duration,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		ledgerRepo:  ledgerRepo,
		txRepo:      txRepo,
		policy:      policy,
		idempotency: idempotency,
		validity:    validity,
		logger:      logger,
	}
}

// requireOwner rejects access to another customer's ledger. Ownership
// is checked before any lifecycle state so a stranger learns nothing
// beyond FORBIDDEN.
func requireOwner(ledger *mileage.Ledger, actorID uuid.UUID) error {
	if ledger.CustomerID != actorID {
		return shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Ledger %s does not belong to the requesting customer", ledger.ID))
	}
	return nil
}

// findOrCreateLedger loads the live ledger for the pair, creating it on
// first accrual. A create losing a race to a concurrent create falls
// back to reloading the winner's row.
func (s *LedgerService) findOrCreateLedger(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID) (*mileage.Ledger, error) {
	ledger, err := s.ledgerRepo.FindByCustomerAndSeller(ctx, customerID, sellerID)
	if err == nil {
		return ledger, nil
	}
	if !shared.IsCode(err, shared.CodeNotFound) {
		return nil, err
	}

	ledger, err = mileage.NewLedger(customerID, sellerID)
	if err != nil {
		return nil, err
	}
	if createErr := s.ledgerRepo.Create(ctx, ledger); createErr != nil {
		if shared.IsCode(createErr, shared.CodeConflict) || shared.IsCode(createErr, shared.CodeAlreadyExists) {
			return s.ledgerRepo.FindByCustomerAndSeller(ctx, customerID, sellerID)
		}
		return nil, createErr
	}
	return ledger, nil
}

// mutateWithRetry applies op to the ledger and saves it together with
// the transaction record op returns. On an optimistic-lock conflict the
// ledger is reloaded and the op replayed, up to maxConflictRetries.
func (s *LedgerService) mutateWithRetry(
	ctx context.Context,
	ledgerID uuid.UUID,
	op func(ledger *mileage.Ledger) (*mileage.Transaction, error),
) (*mileage.Ledger, error) {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		ledger, err := s.ledgerRepo.FindByID(ctx, ledgerID)
		if err != nil {
			return nil, err
		}

		tx, err := op(ledger)
		if err != nil {
			return nil, err
		}

		if err := s.ledgerRepo.SaveWithTransaction(ctx, ledger, tx); err != nil {
			if shared.IsCode(err, shared.CodeConflict) {
				lastErr = err
				s.logger.Debug("ledger write lost optimistic lock, retrying",
					zap.String("ledger_id", ledgerID.String()),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}
		return ledger, nil
	}
	return nil, lastErr
}

// Accrue credits mileage to the acting customer's own ledger. A request
// naming another customer is rejected with FORBIDDEN; order-driven
// accrual goes through AccrueForOrder instead.
func (s *LedgerService) Accrue(ctx context.Context, actorID uuid.UUID, req AccrueRequest) (*LedgerResponse, error) {
	if req.CustomerID != actorID {
		return nil, shared.NewDomainError(shared.CodeForbidden,
			"Cannot accrue mileage on behalf of another customer")
	}
	return s.accrue(ctx, req)
}

// accrue is the trusted accrual core shared by Accrue and AccrueForOrder
func (s *LedgerService) accrue(ctx context.Context, req AccrueRequest) (*LedgerResponse, error) {
	ledger, err := s.findOrCreateLedger(ctx, req.CustomerID, req.SellerID)
	if err != nil {
		return nil, err
	}

	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.validity > 0 {
		horizon := time.Now().Add(s.validity)
		expiresAt = &horizon
	}

	updated, err := s.mutateWithRetry(ctx, ledger.ID, func(l *mileage.Ledger) (*mileage.Transaction, error) {
		balanceBefore := l.Usable
		if err := l.Accrue(req.Amount, expiresAt); err != nil {
			return nil, err
		}
		return mileage.NewAccrueTransaction(l.ID, req.Amount, balanceBefore, req.ReferenceID, req.Description)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("mileage accrued",
		zap.String("ledger_id", updated.ID.String()),
		zap.String("customer_id", req.CustomerID.String()),
		zap.String("amount", req.Amount.String()))

	response := ToLedgerResponse(updated)
	return &response, nil
}

// Spend debits usable mileage from the actor's ledger
func (s *LedgerService) Spend(ctx context.Context, ledgerID, actorID uuid.UUID, req SpendRequest) (*LedgerResponse, error) {
	updated, err := s.mutateWithRetry(ctx, ledgerID, func(l *mileage.Ledger) (*mileage.Transaction, error) {
		if err := requireOwner(l, actorID); err != nil {
			return nil, err
		}
		balanceBefore := l.Usable
		if err := l.Spend(req.Amount); err != nil {
			return nil, err
		}
		return mileage.NewSpendTransaction(l.ID, req.Amount, balanceBefore, req.ReferenceID, req.Description)
	})
	if err != nil {
		return nil, err
	}

	response := ToLedgerResponse(updated)
	return &response, nil
}

// Hold reserves usable mileage on the actor's ledger pending an order
func (s *LedgerService) Hold(ctx context.Context, ledgerID, actorID uuid.UUID, req HoldRequest) (*LedgerResponse, error) {
	updated, err := s.mutateWithRetry(ctx, ledgerID, func(l *mileage.Ledger) (*mileage.Transaction, error) {
		if err := requireOwner(l, actorID); err != nil {
			return nil, err
		}
		balanceBefore := l.Usable
		if err := l.Hold(req.Amount); err != nil {
			return nil, err
		}
		return mileage.NewHoldTransaction(l.ID, req.Amount, balanceBefore, req.ReferenceID, req.Description)
	})
	if err != nil {
		return nil, err
	}

	response := ToLedgerResponse(updated)
	return &response, nil
}

// Release returns held mileage on the actor's ledger to the usable balance
func (s *LedgerService) Release(ctx context.Context, ledgerID, actorID uuid.UUID, req ReleaseRequest) (*LedgerResponse, error) {
	updated, err := s.mutateWithRetry(ctx, ledgerID, func(l *mileage.Ledger) (*mileage.Transaction, error) {
		if err := requireOwner(l, actorID); err != nil {
			return nil, err
		}
		balanceBefore := l.Usable
		if err := l.ReleaseHold(req.Amount); err != nil {
			return nil, err
		}
		return mileage.NewReleaseTransaction(l.ID, req.Amount, balanceBefore, req.ReferenceID, req.Description)
	})
	if err != nil {
		return nil, err
	}

	response := ToLedgerResponse(updated)
	return &response, nil
}

// GetLedger loads a single ledger owned by the actor. A soft-deleted
// ledger answers GONE.
func (s *LedgerService) GetLedger(ctx context.Context, id, actorID uuid.UUID) (*LedgerResponse, error) {
	ledger, err := s.ledgerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(ledger, actorID); err != nil {
		return nil, err
	}
	if ledger.IsDeleted() {
		return nil, shared.NewDomainError(shared.CodeGone,
			fmt.Sprintf("Ledger %s has been deleted", id))
	}

	response := ToLedgerResponse(ledger)
	return &response, nil
}

// QueryLedgers lists the actor's ledgers matching the request filters.
// The query is always scoped to the acting customer; a customer_id
// filter naming anyone else is rejected.
func (s *LedgerService) QueryLedgers(ctx context.Context, actorID uuid.UUID, req QueryLedgersRequest) (*shared.Paginated[LedgerResponse], error) {
	if req.CustomerID != nil && *req.CustomerID != actorID {
		return nil, shared.NewDomainError(shared.CodeForbidden,
			"Cannot query another customer's ledgers")
	}
	filter := mileage.LedgerFilter{
		CustomerID:     &actorID,
		SellerID:       req.SellerID,
		ExpiredBefore:  req.ExpiredBefore,
		ExpiredAfter:   req.ExpiredAfter,
		IncludeDeleted: req.IncludeDeleted,
		Page:           req.Page,
		PageSize:       req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	if req.Status != nil {
		status := mileage.LedgerStatus(*req.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("Invalid ledger status %s", *req.Status))
		}
		filter.Status = &status
	}

	ledgers, total, err := s.ledgerRepo.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]LedgerResponse, 0, len(ledgers))
	for _, ledger := range ledgers {
		items = append(items, ToLedgerResponse(ledger))
	}

	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// DeleteLedger soft-deletes a ledger owned by the actor. Deleting twice
// answers ALREADY_DELETED; the row itself is retained for audit.
func (s *LedgerService) DeleteLedger(ctx context.Context, id, actorID uuid.UUID) error {
	ledger, err := s.ledgerRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(ledger, actorID); err != nil {
		return err
	}
	if err := ledger.SoftDelete(time.Now()); err != nil {
		return err
	}
	if err := s.ledgerRepo.SaveWithLock(ctx, ledger); err != nil {
		return err
	}

	s.logger.Info("mileage ledger deleted",
		zap.String("ledger_id", id.String()),
		zap.String("customer_id", ledger.CustomerID.String()))

	return nil
}

// GetTransactions lists the transaction history of the actor's ledger.
// History stays readable after soft delete.
func (s *LedgerService) GetTransactions(ctx context.Context, ledgerID, actorID uuid.UUID, filter shared.Filter) (*shared.Paginated[TransactionResponse], error) {
	ledger, err := s.ledgerRepo.FindByID(ctx, ledgerID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(ledger, actorID); err != nil {
		return nil, err
	}

	txs, total, err := s.txRepo.FindByLedgerID(ctx, ledgerID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, ToTransactionResponse(tx))
	}

	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// AccrueForOrder credits the mileage an order earns under the accrual
// policy. A zero policy amount is a no-op.
func (s *LedgerService) AccrueForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error {
	amount := s.policy.AccrualAmount(orderTotal, sellerID)
	if amount.IsZero() {
		return nil
	}

	_, err := s.accrue(ctx, AccrueRequest{
		CustomerID:  customerID,
		SellerID:    sellerID,
		Amount:      amount,
		ReferenceID: &orderID,
		Description: "Order payment accrual",
	})
	return err
}

// ReverseForOrder claws back the mileage an order earned when its
// payment is refunded. When part of the accrual was already spent or
// expired only the remaining usable portion is recovered.
func (s *LedgerService) ReverseForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error {
	amount := s.policy.AccrualAmount(orderTotal, sellerID)
	if amount.IsZero() {
		return nil
	}

	ledger, err := s.ledgerRepo.FindByCustomerAndSeller(ctx, customerID, sellerID)
	if err != nil {
		return err
	}

	_, err = s.mutateWithRetry(ctx, ledger.ID, func(l *mileage.Ledger) (*mileage.Transaction, error) {
		clawback := amount
		if clawback.GreaterThan(l.Usable) {
			s.logger.Warn("refund reversal clamped to usable balance",
				zap.String("ledger_id", l.ID.String()),
				zap.String("accrued", amount.String()),
				zap.String("usable", l.Usable.String()))
			clawback = l.Usable
		}
		if clawback.IsZero() {
			return nil, shared.NewDomainError(shared.CodeInsufficientBalance, "No usable mileage left to reverse")
		}
		balanceBefore := l.Usable
		if err := l.Spend(clawback); err != nil {
			return nil, err
		}
		return mileage.NewSpendTransaction(l.ID, clawback, balanceBefore, &orderID, "Refund reversal")
	})
	if err != nil && shared.IsCode(err, shared.CodeInsufficientBalance) {
		// Nothing left to claw back; the refund itself still stands.
		return nil
	}
	return err
}

// expiryDedupKey builds the per-ledger, per-batch idempotency key
func expiryDedupKey(ledgerID uuid.UUID, batchID string) string {
	return fmt.Sprintf("mileage:expiry:%s:%s", ledgerID, batchID)
}

// ExpireDue runs one expiry sweep batch: every live ledger whose
// horizon has passed gets its remaining usable mileage written off.
// Each ledger is guarded by a (ledger, batch) idempotency marker so a
// replayed batch never double-expires, and one ledger failing never
// stops the rest of the batch.
func (s *LedgerService) ExpireDue(ctx context.Context, batchID string, limit int, now time.Time) (*ExpirySweepResult, error) {
	ledgers, err := s.ledgerRepo.FindDueForExpiry(ctx, now, limit)
	if err != nil {
		return nil, err
	}

	result := &ExpirySweepResult{BatchID: batchID, Scanned: len(ledgers)}

	for _, ledger := range ledgers {
		key := expiryDedupKey(ledger.ID, batchID)
		swept, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			result.Failed++
			s.logger.Error("expiry dedup check failed",
				zap.String("ledger_id", ledger.ID.String()),
				zap.String("batch_id", batchID),
				zap.Error(err))
			continue
		}
		if swept {
			result.AlreadySwept++
			continue
		}

		expired, err := s.expireLedger(ctx, ledger.ID, batchID, now)
		if err != nil {
			// No marker is written for a failed ledger so a replayed
			// batch picks it up again.
			result.Failed++
			s.logger.Error("ledger expiry failed",
				zap.String("ledger_id", ledger.ID.String()),
				zap.String("batch_id", batchID),
				zap.Error(err))
			continue
		}
		if expired {
			result.Expired++
		}

		// Marked only after the write landed. A marker that fails to
		// stick is harmless: expireLedger re-checks the due state, so a
		// replay of an already swept ledger is a no-op.
		if _, err := s.idempotency.MarkProcessed(ctx, key, expiryDedupTTL); err != nil {
			s.logger.Warn("expiry dedup marker not recorded",
				zap.String("ledger_id", ledger.ID.String()),
				zap.String("batch_id", batchID),
				zap.Error(err))
		}
	}

	result.Skipped = result.Scanned - result.Expired - result.Failed - result.AlreadySwept

	s.logger.Info("expiry sweep batch finished",
		zap.String("batch_id", batchID),
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
		zap.Int("already_swept", result.AlreadySwept))

	return result, nil
}

// expireLedger writes off the full usable balance of one ledger.
// Returns false without error when the ledger stopped being due between
// the scan and the write.
func (s *LedgerService) expireLedger(ctx context.Context, ledgerID uuid.UUID, batchID string, now time.Time) (bool, error) {
	_, err := s.mutateWithRetry(ctx, ledgerID, func(l *mileage.Ledger) (*mileage.Transaction, error) {
		if !l.IsDueForExpiry(now) {
			// Spent or topped up between the scan and this write.
			return nil, shared.NewDomainError(shared.CodeInvalidState, "Ledger no longer due for expiry")
		}
		amount := l.Usable
		balanceBefore := l.Usable
		if err := l.ExpireAmount(amount, now); err != nil {
			return nil, err
		}
		l.AddDomainEvent(mileage.NewLedgerExpiredEvent(l, amount, batchID))
		return mileage.NewExpireTransaction(l.ID, amount, balanceBefore, batchID)
	})
	if err != nil {
		if shared.IsCode(err, shared.CodeInvalidState) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
