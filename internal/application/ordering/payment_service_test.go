package ordering

import (
	"context"
	"testing"
	"time"

	"github.com/commerce/backend/internal/domain/ordering"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockOrderRepository is a mock implementation of ordering.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]*ordering.Order, int64, error) {
	args := m.Called(ctx, customerID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ordering.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Create(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of ordering.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*ordering.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ordering.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *ordering.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) SaveWithLock(ctx context.Context, payment *ordering.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockMileageEffects is a mock implementation of MileageEffects
type MockMileageEffects struct {
	mock.Mock
}

func (m *MockMileageEffects) AccrueForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error {
	args := m.Called(ctx, customerID, sellerID, orderTotal, orderID)
	return args.Error(0)
}

func (m *MockMileageEffects) ReverseForOrder(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID, orderTotal decimal.Decimal, orderID uuid.UUID) error {
	args := m.Called(ctx, customerID, sellerID, orderTotal, orderID)
	return args.Error(0)
}

// MockEffectQueue is a mock implementation of EffectQueue
type MockEffectQueue struct {
	mock.Mock
}

func (m *MockEffectQueue) Enqueue(effect LedgerEffect) error {
	args := m.Called(effect)
	return args.Error(0)
}

// =============================================================================
// Helpers
// =============================================================================

type paymentMocks struct {
	paymentRepo *MockPaymentRepository
	orderRepo   *MockOrderRepository
	mileage     *MockMileageEffects
	queue       *MockEffectQueue
}

func newPaymentService(t *testing.T) (*PaymentService, *paymentMocks) {
	t.Helper()
	mocks := &paymentMocks{
		paymentRepo: new(MockPaymentRepository),
		orderRepo:   new(MockOrderRepository),
		mileage:     new(MockMileageEffects),
		queue:       new(MockEffectQueue),
	}
	svc := NewPaymentService(mocks.paymentRepo, mocks.orderRepo, mocks.mileage, mocks.queue, []string{"KRW", "USD"}, zap.NewNop())
	return svc, mocks
}

func testOrder(t *testing.T, customerID uuid.UUID) *ordering.Order {
	t.Helper()
	order, err := ordering.NewOrder(customerID, uuid.New(), "KRW", []ordering.OrderItemInput{
		{
			ProductVariantID: uuid.New(),
			SellerID:         uuid.New(),
			Quantity:         1,
			UnitPrice:        decimal.NewFromInt(34500),
			TotalPrice:       decimal.NewFromInt(34500),
		},
	})
	require.NoError(t, err)
	order.ClearDomainEvents()
	return order
}

func testPayment(t *testing.T, orderID uuid.UUID) *ordering.Payment {
	t.Helper()
	payment, err := ordering.NewPayment(orderID, ordering.PaymentMethodCard, decimal.NewFromInt(34500), "KRW", []string{"KRW", "USD"})
	require.NoError(t, err)
	payment.ClearDomainEvents()
	return payment
}

// =============================================================================
// Tests
// =============================================================================

func TestCreatePayment(t *testing.T) {
	t.Run("creates pending payment on own order", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)

		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		mocks.paymentRepo.On("Create", mock.Anything, mock.AnythingOfType("*ordering.Payment")).Return(nil)

		resp, err := svc.CreatePayment(context.Background(), order.ID, customerID, CreatePaymentRequest{
			Method:   "CARD",
			Amount:   decimal.NewFromInt(34500),
			Currency: "KRW",
		})
		require.NoError(t, err)
		assert.Equal(t, "PENDING", resp.Status)
	})

	t.Run("rejects payment on someone else's order", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		order := testOrder(t, uuid.New())

		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.CreatePayment(context.Background(), order.ID, uuid.New(), CreatePaymentRequest{
			Method:   "CARD",
			Amount:   decimal.NewFromInt(34500),
			Currency: "KRW",
		})
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects unsupported currency", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)

		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.CreatePayment(context.Background(), order.ID, customerID, CreatePaymentRequest{
			Method:   "CARD",
			Amount:   decimal.NewFromInt(34500),
			Currency: "GBP",
		})
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})
}

func TestMarkSucceeded(t *testing.T) {
	t.Run("settles payment then marks order paid and accrues mileage", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.paymentRepo.On("SaveWithLock", mock.Anything, payment).Return(nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		mocks.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		mocks.mileage.On("AccrueForOrder", mock.Anything, customerID, (*uuid.UUID)(nil), order.TotalAmount, order.ID).Return(nil)

		resp, err := svc.MarkSucceeded(context.Background(), payment.ID, customerID, SucceedPaymentRequest{ExternalReference: "pg-001"})
		require.NoError(t, err)

		assert.Equal(t, "SUCCEEDED", resp.Status)
		assert.Equal(t, ordering.OrderStatusPaid, order.Status)
		mocks.mileage.AssertExpectations(t)
	})

	t.Run("repeat settle returns state without side effects", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkSucceeded(time.Now(), "pg-001"))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		resp, err := svc.MarkSucceeded(context.Background(), payment.ID, customerID, SucceedPaymentRequest{})
		require.NoError(t, err)

		assert.Equal(t, "SUCCEEDED", resp.Status)
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		mocks.mileage.AssertNotCalled(t, "AccrueForOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("another customer cannot settle the payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		order := testOrder(t, uuid.New())
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.MarkSucceeded(context.Background(), payment.ID, uuid.New(), SucceedPaymentRequest{})
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		mocks.mileage.AssertNotCalled(t, "AccrueForOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unloadable order aborts before the payment commits", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		payment := testPayment(t, uuid.New())

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, payment.OrderID).
			Return(nil, shared.NewDomainError(shared.CodeNotFound, "order missing"))

		_, err := svc.MarkSucceeded(context.Background(), payment.ID, uuid.New(), SucceedPaymentRequest{})
		require.Error(t, err)
		assert.Equal(t, shared.CodeNotFound, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("payment stays settled when accrual fails and effect is queued", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.paymentRepo.On("SaveWithLock", mock.Anything, payment).Return(nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		mocks.orderRepo.On("SaveWithLock", mock.Anything, order).Return(nil)
		mocks.mileage.On("AccrueForOrder", mock.Anything, customerID, (*uuid.UUID)(nil), order.TotalAmount, order.ID).
			Return(shared.NewDomainError(shared.CodeConflict, "ledger busy"))
		mocks.queue.On("Enqueue", mock.MatchedBy(func(effect LedgerEffect) bool {
			return effect.OrderID == order.ID && !effect.Reverse
		})).Return(nil)

		resp, err := svc.MarkSucceeded(context.Background(), payment.ID, customerID, SucceedPaymentRequest{})
		require.NoError(t, err)

		assert.Equal(t, "SUCCEEDED", resp.Status)
		mocks.queue.AssertExpectations(t)
	})

	t.Run("cannot settle failed payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkFailed("declined"))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.MarkSucceeded(context.Background(), payment.ID, customerID, SucceedPaymentRequest{})
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
	})
}

func TestMarkFailed(t *testing.T) {
	t.Run("fails pending payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.paymentRepo.On("SaveWithLock", mock.Anything, payment).Return(nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		resp, err := svc.MarkFailed(context.Background(), payment.ID, customerID, FailPaymentRequest{Reason: "card declined"})
		require.NoError(t, err)
		assert.Equal(t, "FAILED", resp.Status)
		assert.Equal(t, "card declined", resp.FailReason)
	})

	t.Run("repeat fail keeps original reason", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkFailed("first reason"))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		resp, err := svc.MarkFailed(context.Background(), payment.ID, customerID, FailPaymentRequest{Reason: "second reason"})
		require.NoError(t, err)
		assert.Equal(t, "first reason", resp.FailReason)
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("another customer cannot fail the payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		order := testOrder(t, uuid.New())
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.MarkFailed(context.Background(), payment.ID, uuid.New(), FailPaymentRequest{Reason: "not yours"})
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}

func TestRefund(t *testing.T) {
	t.Run("refunds settled payment and reverses mileage", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkSucceeded(time.Now(), "pg-001"))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.paymentRepo.On("SaveWithLock", mock.Anything, payment).Return(nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		mocks.mileage.On("ReverseForOrder", mock.Anything, customerID, (*uuid.UUID)(nil), order.TotalAmount, order.ID).Return(nil)

		resp, err := svc.Refund(context.Background(), payment.ID, customerID)
		require.NoError(t, err)
		assert.Equal(t, "REFUNDED", resp.Status)
		mocks.mileage.AssertExpectations(t)
	})

	t.Run("repeat refund returns state without reversal", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))
		require.NoError(t, payment.Refund())

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		resp, err := svc.Refund(context.Background(), payment.ID, customerID)
		require.NoError(t, err)
		assert.Equal(t, "REFUNDED", resp.Status)
		mocks.mileage.AssertNotCalled(t, "ReverseForOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cannot refund pending payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Refund(context.Background(), payment.ID, customerID)
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
	})

	t.Run("another customer cannot refund the payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		order := testOrder(t, uuid.New())
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.Refund(context.Background(), payment.ID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		mocks.mileage.AssertNotCalled(t, "ReverseForOrder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed reversal is queued for retry", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.paymentRepo.On("SaveWithLock", mock.Anything, payment).Return(nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		mocks.mileage.On("ReverseForOrder", mock.Anything, customerID, (*uuid.UUID)(nil), order.TotalAmount, order.ID).
			Return(shared.NewDomainError(shared.CodeConflict, "ledger busy"))
		mocks.queue.On("Enqueue", mock.MatchedBy(func(effect LedgerEffect) bool {
			return effect.OrderID == order.ID && effect.Reverse
		})).Return(nil)

		_, err := svc.Refund(context.Background(), payment.ID, customerID)
		require.NoError(t, err)
		mocks.queue.AssertExpectations(t)
	})
}

func TestUpdatePayment(t *testing.T) {
	t.Run("locked payment rejects patch", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)
		require.NoError(t, payment.MarkSucceeded(time.Now(), ""))

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		amount := decimal.NewFromInt(1)
		_, err := svc.UpdatePayment(context.Background(), payment.ID, customerID, UpdatePaymentRequest{Amount: &amount})
		require.Error(t, err)
		assert.Equal(t, shared.CodeLockedState, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("patches pending payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.paymentRepo.On("SaveWithLock", mock.Anything, payment).Return(nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		method := "MOBILE"
		resp, err := svc.UpdatePayment(context.Background(), payment.ID, customerID, UpdatePaymentRequest{Method: &method})
		require.NoError(t, err)
		assert.Equal(t, "MOBILE", resp.Method)
	})

	t.Run("another customer cannot patch the payment", func(t *testing.T) {
		svc, mocks := newPaymentService(t)
		order := testOrder(t, uuid.New())
		payment := testPayment(t, order.ID)

		mocks.paymentRepo.On("FindByID", mock.Anything, payment.ID).Return(payment, nil)
		mocks.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		amount := decimal.NewFromInt(1)
		_, err := svc.UpdatePayment(context.Background(), payment.ID, uuid.New(), UpdatePaymentRequest{Amount: &amount})
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
		mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
