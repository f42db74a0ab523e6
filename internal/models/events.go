package models

import "time"

// Event types
const (
	EventTypeOrderStatusChanged   = "ORDER_STATUS_CHANGED"
	EventTypePaymentStatusChanged = "PAYMENT_STATUS_CHANGED"
)

// Entities whose status is polled
const (
	EntityOrder   = "order"
	EntityPayment = "payment"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusChangedEvent is emitted once when polling observes a status that
// differs from the cached entity.
type StatusChangedEvent struct {
	BaseEvent
	Entity  string `json:"entity"`
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}
