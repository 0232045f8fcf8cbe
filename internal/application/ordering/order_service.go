package ordering

import (
	"context"
	"fmt"

	"github.com/commerce/backend/internal/domain/ordering"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService handles order operations
type OrderService struct {
	orderRepo ordering.OrderRepository
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo ordering.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		logger:    logger,
	}
}

// CreateOrder creates an order with its items in one transaction.
// Item validation is all-or-nothing: any invalid item rejects the whole
// request and nothing is persisted.
func (s *OrderService) CreateOrder(ctx context.Context, customerID uuid.UUID, req CreateOrderRequest) (*OrderResponse, error) {
	items := make([]ordering.OrderItemInput, 0, len(req.Items))
	for _, in := range req.Items {
		items = append(items, ordering.OrderItemInput{
			ProductVariantID: in.ProductVariantID,
			SellerID:         in.SellerID,
			Quantity:         in.Quantity,
			UnitPrice:        in.UnitPrice,
			TotalPrice:       in.TotalPrice,
		})
	}

	order, err := ordering.NewOrder(customerID, req.ChannelID, req.Currency, items)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int("items", order.ItemCount()),
		zap.String("total", order.TotalAmount.String()))

	response := ToOrderResponse(order)
	return &response, nil
}

// GetOrder loads an order. A caller that is not the order's owner gets
// FORBIDDEN rather than a not-found, so existence leaks but content
// does not.
func (s *OrderService) GetOrder(ctx context.Context, orderID, actorID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(actorID) {
		return nil, shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Order %s does not belong to the requesting customer", orderID))
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// ListOrders lists the actor's own orders
func (s *OrderService) ListOrders(ctx context.Context, actorID uuid.UUID, filter shared.Filter) (*shared.Paginated[OrderResponse], error) {
	orders, total, err := s.orderRepo.FindByCustomer(ctx, actorID, filter)
	if err != nil {
		return nil, err
	}

	items := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		items = append(items, ToOrderResponse(order))
	}

	result := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &result, nil
}

// CancelOrder cancels a pending or paid order owned by the actor
func (s *OrderService) CancelOrder(ctx context.Context, orderID, actorID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(actorID) {
		return nil, shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Order %s does not belong to the requesting customer", orderID))
	}
	if err := order.Cancel(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// CompleteOrder marks a paid order as completed
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, actorID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(actorID) {
		return nil, shared.NewDomainError(shared.CodeForbidden,
			fmt.Sprintf("Order %s does not belong to the requesting customer", orderID))
	}
	if err := order.Complete(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}
