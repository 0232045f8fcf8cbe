package ordering

import (
	"context"
	"testing"

	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newOrderService(t *testing.T) (*OrderService, *MockOrderRepository) {
	t.Helper()
	repo := new(MockOrderRepository)
	return NewOrderService(repo, zap.NewNop()), repo
}

func validCreateRequest() CreateOrderRequest {
	return CreateOrderRequest{
		ChannelID: uuid.New(),
		Currency:  "KRW",
		Items: []OrderItemRequest{
			{
				ProductVariantID: uuid.New(),
				SellerID:         uuid.New(),
				Quantity:         2,
				UnitPrice:        decimal.NewFromInt(15000),
				TotalPrice:       decimal.NewFromInt(30000),
			},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("creates order", func(t *testing.T) {
		svc, repo := newOrderService(t)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*ordering.Order")).Return(nil)

		resp, err := svc.CreateOrder(context.Background(), uuid.New(), validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, "PENDING", resp.Status)
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(30000)))
		repo.AssertExpectations(t)
	})

	t.Run("invalid item total persists nothing", func(t *testing.T) {
		svc, repo := newOrderService(t)

		req := validCreateRequest()
		req.Items[0].TotalPrice = decimal.NewFromInt(29999)

		_, err := svc.CreateOrder(context.Background(), uuid.New(), req)
		require.Error(t, err)
		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("owner reads own order", func(t *testing.T) {
		svc, repo := newOrderService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)

		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		resp, err := svc.GetOrder(context.Background(), order.ID, customerID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, resp.ID)
	})

	t.Run("other customer gets forbidden", func(t *testing.T) {
		svc, repo := newOrderService(t)
		order := testOrder(t, uuid.New())

		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.GetOrder(context.Background(), order.ID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
	})

	t.Run("missing order stays not found", func(t *testing.T) {
		svc, repo := newOrderService(t)
		orderID := uuid.New()

		repo.On("FindByID", mock.Anything, orderID).
			Return(nil, shared.NewDomainError(shared.CodeNotFound, "order not found"))

		_, err := svc.GetOrder(context.Background(), orderID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, shared.CodeNotFound, shared.ErrorCode(err))
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("owner cancels pending order", func(t *testing.T) {
		svc, repo := newOrderService(t)
		customerID := uuid.New()
		order := testOrder(t, customerID)

		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		repo.On("SaveWithLock", mock.Anything, order).Return(nil)

		resp, err := svc.CancelOrder(context.Background(), order.ID, customerID)
		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", resp.Status)
	})

	t.Run("non-owner cannot cancel", func(t *testing.T) {
		svc, repo := newOrderService(t)
		order := testOrder(t, uuid.New())

		repo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := svc.CancelOrder(context.Background(), order.ID, uuid.New())
		require.Error(t, err)
		assert.Equal(t, shared.CodeForbidden, shared.ErrorCode(err))
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
