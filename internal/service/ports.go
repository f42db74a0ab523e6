package service

import (
	"context"
	"time"

	"order-portal/internal/models"
	"order-portal/internal/remote"
)

// Backend is the subset of the remote client the portal services use.
type Backend interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderConfirmation, error)
	GetAllOrders(ctx context.Context) ([]models.OrderSummary, error)
	GetOrderByID(ctx context.Context, orderID string) (*models.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error)
	GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error)
	GetPaymentStatusByOrder(ctx context.Context, orderID string) (models.PaymentStatus, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*remote.CancelResult, error)
}

// TransitionPublisher announces status changes observed by polling.
type TransitionPublisher interface {
	PublishStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error
}

// CancelGuard serialises cancel submissions for one order across portal
// instances.
type CancelGuard interface {
	AcquireCancelLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseCancelLock(ctx context.Context, orderID string) error
}
