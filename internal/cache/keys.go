package cache

// Key identifies one cached entity: (entity type, id).
type Key string

// OrderListKey holds the dashboard rows.
const OrderListKey Key = "orders:list"

// OrderDetailKey holds the full order.
func OrderDetailKey(orderID string) Key {
	return Key("orders:detail:" + orderID)
}

// OrderStatusKey holds the polled order status.
func OrderStatusKey(orderID string) Key {
	return Key("orders:status:" + orderID)
}

// PaymentDetailKey holds the payment attached to an order.
func PaymentDetailKey(orderID string) Key {
	return Key("payments:detail:" + orderID)
}

// PaymentStatusKey holds the polled payment status.
func PaymentStatusKey(orderID string) Key {
	return Key("payments:status:" + orderID)
}

// OrderKeys lists every key that depends on orderID's order state.
func OrderKeys(orderID string) []Key {
	return []Key{OrderListKey, OrderDetailKey(orderID), OrderStatusKey(orderID)}
}
