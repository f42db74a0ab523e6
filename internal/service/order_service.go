package service

import (
	"context"
	"fmt"

	"order-portal/internal/cache"
	"order-portal/internal/models"
	"order-portal/internal/util"

	"go.uber.org/zap"
)

// OrderService serves order and payment reads through the shared cache
type OrderService struct {
	backend   Backend
	store     *cache.Store
	intervals cache.Intervals
	logger    *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(backend Backend, store *cache.Store, intervals cache.Intervals) *OrderService {
	return &OrderService{
		backend:   backend,
		store:     store,
		intervals: intervals,
		logger:    util.GetLogger(),
	}
}

// CreateOrder submits a new order, marks the dashboard list stale and seeds
// the detail cache with the confirmed order
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderConfirmation, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	confirmation, err := s.backend.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	s.store.Invalidate(cache.OrderListKey)
	order := confirmation.Order
	s.store.Set(cache.OrderDetailKey(order.ID), &order, s.intervals.OrderDetail(&order))
	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order submitted",
		zap.String("order_id", confirmation.ID),
		zap.String("display_id", confirmation.DisplayID()))

	return confirmation, nil
}

// CreateOrderFromItems encodes items into the order description and total
// before submitting.
func (s *OrderService) CreateOrderFromItems(ctx context.Context, req *models.CreateOrderRequest, items []models.LineItem) (*models.OrderConfirmation, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order has no line items")
	}
	req.OrderDescription = models.EncodeLineItems(items)
	req.TotalAmount = models.SumLineItems(items)
	return s.CreateOrder(ctx, req)
}

// ListOrders returns the dashboard rows
func (s *OrderService) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	return cache.Get(ctx, s.store, cache.OrderListKey, s.backend.GetAllOrders,
		func([]models.OrderSummary) cache.Policy { return s.intervals.OrderList() })
}

// GetOrder returns the full order
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return cache.Get(ctx, s.store, cache.OrderDetailKey(orderID),
		func(ctx context.Context) (*models.Order, error) {
			return s.backend.GetOrderByID(ctx, orderID)
		},
		s.intervals.OrderDetail)
}

// GetPayment returns the order's payment, or nil while none exists
func (s *OrderService) GetPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	return cache.Get(ctx, s.store, cache.PaymentDetailKey(orderID),
		func(ctx context.Context) (*models.Payment, error) {
			return s.backend.GetPaymentByOrderID(ctx, orderID)
		},
		s.intervals.PaymentDetail)
}

// GetOrderStatus returns the order status, fetching it unless the cached
// status is final.
func (s *OrderService) GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	return cache.Get(ctx, s.store, cache.OrderStatusKey(orderID),
		func(ctx context.Context) (models.OrderStatus, error) {
			return s.backend.GetOrderStatus(ctx, orderID)
		},
		s.intervals.OrderStatus)
}

// GetPaymentStatus returns the payment status, PaymentStatusAbsent while no
// payment exists.
func (s *OrderService) GetPaymentStatus(ctx context.Context, orderID string) (models.PaymentStatus, error) {
	return cache.Get(ctx, s.store, cache.PaymentStatusKey(orderID),
		func(ctx context.Context) (models.PaymentStatus, error) {
			return s.backend.GetPaymentStatusByOrder(ctx, orderID)
		},
		s.intervals.PaymentStatus)
}

// Invalidate marks every cached view of orderID stale.
func (s *OrderService) Invalidate(orderID string) {
	s.store.InvalidateAll(cache.OrderKeys(orderID)...)
}
