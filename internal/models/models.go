package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order as reported by the backend.
type OrderStatus string

// Order statuses
const (
	OrderStatusCreated             OrderStatus = "CREATED"
	OrderStatusConfirmed           OrderStatus = "CONFIRMED"
	OrderStatusCancellationPending OrderStatus = "CANCELLATION_PENDING"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
	OrderStatusDelivered           OrderStatus = "DELIVERED"
)

// OrderStatuses lists every order status the backend can report.
var OrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusConfirmed,
	OrderStatusCancellationPending,
	OrderStatusCancelled,
	OrderStatusDelivered,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:             {OrderStatusConfirmed, OrderStatusCancellationPending},
	OrderStatusConfirmed:           {OrderStatusDelivered, OrderStatusCancellationPending},
	OrderStatusCancellationPending: {OrderStatusCancelled},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is expected.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanCancel reports whether a cancellation may be requested from s.
func (s OrderStatus) CanCancel() bool {
	return s == OrderStatusCreated || s == OrderStatusConfirmed
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// PaymentStatus is the state of the payment transaction attached to an order.
type PaymentStatus string

// Payment statuses
const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusDeclined  PaymentStatus = "DECLINED"
	PaymentStatusReversed  PaymentStatus = "REVERSED"

	// PaymentStatusAbsent is never sent by the backend. It marks an order
	// whose payment transaction has not been created yet.
	PaymentStatusAbsent PaymentStatus = "ABSENT"
)

// PaymentStatuses lists every payment status the backend can report.
var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusConfirmed,
	PaymentStatusFailed,
	PaymentStatusDeclined,
	PaymentStatusReversed,
}

// Valid reports whether s is a status the backend can report.
func (s PaymentStatus) Valid() bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether polling can stop. REVERSED only follows
// CONFIRMED and is final as well.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusConfirmed, PaymentStatusFailed, PaymentStatusDeclined, PaymentStatusReversed:
		return true
	}
	return false
}

// Order is the client-side projection of a backend order
type Order struct {
	ID               string          `json:"orderId"`
	UserID           string          `json:"userId"`
	UserName         string          `json:"userName"`
	UserEmail        string          `json:"userEmail"`
	ShippingAddress  string          `json:"shippingAddress,omitempty"`
	OrderDescription string          `json:"orderDescription"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// DisplayID returns the identifier shown to customers.
func (o *Order) DisplayID() string {
	return DisplayID(o.ID)
}

// Payment is the payment transaction attached to an order
type Payment struct {
	ID                   int64         `json:"id"`
	PaymentMethod        string        `json:"paymentMethod"`
	TransactionReference string        `json:"transactionReference"`
	Status               PaymentStatus `json:"status"`
	ProcessedAt          *time.Time    `json:"processedAt,omitempty"`
	FailureReason        *string       `json:"failureReason,omitempty"`
}

// OrderSummary is one row of the orders dashboard
type OrderSummary struct {
	DisplayID        string          `json:"displayId"`
	OrderID          string          `json:"orderId"`
	OrderDescription string          `json:"orderDescription"`
	UserName         string          `json:"userName"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Status           OrderStatus     `json:"status"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// CreateOrderRequest is the payload for a new order
type CreateOrderRequest struct {
	UserID           string          `json:"userId" validate:"required"`
	UserName         string          `json:"userName" validate:"required"`
	UserEmail        string          `json:"userEmail" validate:"required,email"`
	OrderDescription string          `json:"orderDescription" validate:"required,max=1000"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	ShippingAddress  string          `json:"shippingAddress" validate:"required,max=1000"`
}

// OrderConfirmation is returned by the backend after an order is accepted
type OrderConfirmation struct {
	Order
	SagaID string `json:"sagaId,omitempty"`
}

// DisplayID prefixes a backend order id for display.
func DisplayID(orderID string) string {
	return "ORD_" + orderID
}

// LineItem is one product line entered when creating an order
type LineItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Total returns price times quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// EncodeLineItems flattens items into the backend's order description format:
// "<name> (x<qty>) - $<lineTotal>" joined by ", ".
func EncodeLineItems(items []LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (x%d) - $%s", item.Name, item.Quantity, item.Total().StringFixed(2)))
	}
	return strings.Join(parts, ", ")
}

// SumLineItems returns the order total for items.
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}
	return total
}
