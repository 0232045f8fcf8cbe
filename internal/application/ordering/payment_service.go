package ordering

import (
	"context"
	"fmt"
	"time"

	"github.com/commerce/backend/internal/domain/ordering"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService handles payment lifecycle operations.
//
// The payment row is the source of truth: every transition persists the
// payment first and only then runs ledger side effects. A side effect
// that fails after the payment committed is handed to the effect queue
// for asynchronous retry instead of rolling the payment back.
type PaymentService struct {
	paymentRepo         ordering.PaymentRepository
	orderRepo           ordering.OrderRepository
	mileage             MileageEffects
	effectQueue         EffectQueue
	supportedCurrencies []string
	logger              *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo ordering.PaymentRepository,
	orderRepo ordering.OrderRepository,
	mileage MileageEffects,
	effectQueue EffectQueue,
	supportedCurrencies []string,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:         paymentRepo,
		orderRepo:           orderRepo,
		mileage:             mileage,
		effectQueue:         effectQueue,
		supportedCurrencies: supportedCurrencies,
		logger:              logger,
	}
}

// loadOwnedOrder loads an order and verifies it belongs to the acting
// customer. Every payment operation resolves ownership through the
// parent order; a mismatch answers FORBIDDEN, never NOT_FOUND.
func (s *PaymentService) loadOwnedOrder(ctx context.Context, orderID, actorID uuid.UUID) (*ordering.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(actorID) {
		return nil, shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Order %s does not belong to the requesting customer", orderID))
	}
	return order, nil
}

// CreatePayment opens a pending payment against the actor's order
func (s *PaymentService) CreatePayment(ctx context.Context, orderID, actorID uuid.UUID, req CreatePaymentRequest) (*PaymentResponse, error) {
	order, err := s.loadOwnedOrder(ctx, orderID, actorID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot open a payment on an order in %s status", order.Status))
	}

	payment, err := ordering.NewPayment(orderID, ordering.PaymentMethod(req.Method), req.Amount, req.Currency, s.supportedCurrencies)
	if err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("amount", payment.Amount.String()))

	response := ToPaymentResponse(payment)
	return &response, nil
}

// GetPayment loads a payment owned by the acting customer
func (s *PaymentService) GetPayment(ctx context.Context, paymentID, actorID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwnedOrder(ctx, payment.OrderID, actorID); err != nil {
		return nil, err
	}
	response := ToPaymentResponse(payment)
	return &response, nil
}

// ListByOrder lists all payments opened against the actor's order
func (s *PaymentService) ListByOrder(ctx context.Context, orderID, actorID uuid.UUID) ([]PaymentResponse, error) {
	if _, err := s.loadOwnedOrder(ctx, orderID, actorID); err != nil {
		return nil, err
	}
	payments, err := s.paymentRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	responses := make([]PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		responses = append(responses, ToPaymentResponse(payment))
	}
	return responses, nil
}

// UpdatePayment patches a pending payment. Locked payments answer
// LOCKED_STATE no matter which field the patch touches.
func (s *PaymentService) UpdatePayment(ctx context.Context, paymentID, actorID uuid.UUID, req UpdatePaymentRequest) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwnedOrder(ctx, payment.OrderID, actorID); err != nil {
		return nil, err
	}

	patch := ordering.PaymentPatch{
		Amount:            req.Amount,
		Currency:          req.Currency,
		ExternalReference: req.ExternalReference,
	}
	if req.Method != nil {
		method := ordering.PaymentMethod(*req.Method)
		patch.Method = &method
	}

	if err := payment.Update(patch, s.supportedCurrencies); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}

	response := ToPaymentResponse(payment)
	return &response, nil
}

// MarkSucceeded settles a payment.
// Repeating the call on an already settled payment returns the current
// state without replaying side effects. Concurrent transitions on the
// same payment serialize on the version check; the loser gets CONFLICT.
func (s *PaymentService) MarkSucceeded(ctx context.Context, paymentID, actorID uuid.UUID, req SucceedPaymentRequest) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// The order is loaded before the payment commits so the ledger
	// effect never depends on a reload that might fail afterwards.
	order, err := s.loadOwnedOrder(ctx, payment.OrderID, actorID)
	if err != nil {
		return nil, err
	}

	if payment.Status == ordering.PaymentStatusSucceeded {
		response := ToPaymentResponse(payment)
		return &response, nil
	}

	completedAt := time.Now()
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}
	if err := payment.MarkSucceeded(completedAt, req.ExternalReference); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}

	s.applySettlementEffects(ctx, payment, order)

	response := ToPaymentResponse(payment)
	return &response, nil
}

// applySettlementEffects marks the order paid and accrues mileage after
// the payment row committed
func (s *PaymentService) applySettlementEffects(ctx context.Context, payment *ordering.Payment, order *ordering.Order) {
	if err := order.MarkPaid(); err != nil {
		s.logger.Warn("order not transitioned on settlement",
			zap.String("order_id", order.ID.String()),
			zap.String("status", order.Status.String()),
			zap.Error(err))
	} else if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		s.logger.Error("order paid transition failed to persist",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}

	if err := s.mileage.AccrueForOrder(ctx, order.CustomerID, nil, order.TotalAmount, order.ID); err != nil {
		s.logger.Error("mileage accrual failed, deferring to retry queue",
			zap.String("payment_id", payment.ID.String()),
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		s.deferEffect(LedgerEffect{
			CustomerID: order.CustomerID,
			OrderTotal: order.TotalAmount,
			OrderID:    order.ID,
		})
	}
}

// MarkFailed fails a pending payment.
// Repeating the call on a failed payment returns the current state.
func (s *PaymentService) MarkFailed(ctx context.Context, paymentID, actorID uuid.UUID, req FailPaymentRequest) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwnedOrder(ctx, payment.OrderID, actorID); err != nil {
		return nil, err
	}

	if payment.Status == ordering.PaymentStatusFailed {
		response := ToPaymentResponse(payment)
		return &response, nil
	}

	if err := payment.MarkFailed(req.Reason); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}

	s.logger.Info("payment failed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("reason", req.Reason))

	response := ToPaymentResponse(payment)
	return &response, nil
}

// Refund refunds a settled payment and claws back the mileage the order
// earned. Repeating the call on a refunded payment returns the current
// state without replaying the reversal.
func (s *PaymentService) Refund(ctx context.Context, paymentID, actorID uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	// Loaded up front for the same reason as MarkSucceeded: once the
	// refund commits the reversal must not hinge on another order read.
	order, err := s.loadOwnedOrder(ctx, payment.OrderID, actorID)
	if err != nil {
		return nil, err
	}

	if payment.Status == ordering.PaymentStatusRefunded {
		response := ToPaymentResponse(payment)
		return &response, nil
	}

	if err := payment.Refund(); err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}

	if err := s.mileage.ReverseForOrder(ctx, order.CustomerID, nil, order.TotalAmount, order.ID); err != nil {
		s.logger.Error("mileage reversal failed, deferring to retry queue",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		s.deferEffect(LedgerEffect{
			CustomerID: order.CustomerID,
			OrderTotal: order.TotalAmount,
			OrderID:    order.ID,
			Reverse:    true,
		})
	}

	response := ToPaymentResponse(payment)
	return &response, nil
}

func (s *PaymentService) deferEffect(effect LedgerEffect) {
	if s.effectQueue == nil {
		return
	}
	if err := s.effectQueue.Enqueue(effect); err != nil {
		s.logger.Error("effect queue rejected deferred ledger effect",
			zap.String("order_id", effect.OrderID.String()),
			zap.Bool("reverse", effect.Reverse),
			zap.Error(err))
	}
}
