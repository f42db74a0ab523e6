package cache

import (
	"math"
	"time"

	"order-portal/internal/models"
)

// Forever marks an entry that never goes stale on its own.
const Forever = time.Duration(math.MaxInt64)

// Policy is the freshness of one cached value. A zero PollEvery means the
// value is not polled.
type Policy struct {
	StaleAfter time.Duration
	PollEvery  time.Duration
}

// Polls reports whether the value should be polled.
func (p Policy) Polls() bool {
	return p.PollEvery > 0
}

// Intervals holds the cadences every policy is derived from
type Intervals struct {
	Fast        time.Duration
	Slow        time.Duration
	DetailStale time.Duration
	ListStale   time.Duration
}

// DefaultIntervals returns the production cadences.
func DefaultIntervals() Intervals {
	return Intervals{
		Fast:        5 * time.Second,
		Slow:        30 * time.Second,
		DetailStale: 10 * time.Minute,
		ListStale:   time.Minute,
	}
}

// OrderStatus returns the policy for a polled order status.
func (iv Intervals) OrderStatus(status models.OrderStatus) Policy {
	switch {
	case status.IsTerminal():
		return Policy{StaleAfter: Forever}
	case status == models.OrderStatusCreated:
		return Policy{PollEvery: iv.Fast}
	default:
		return Policy{PollEvery: iv.Slow}
	}
}

// PaymentStatus returns the policy for a polled payment status. An absent
// payment is polled fast and is always stale.
func (iv Intervals) PaymentStatus(status models.PaymentStatus) Policy {
	switch {
	case status.IsTerminal():
		return Policy{StaleAfter: Forever}
	case status == models.PaymentStatusPending, status == models.PaymentStatusAbsent:
		return Policy{PollEvery: iv.Fast}
	default:
		return Policy{PollEvery: iv.Slow}
	}
}

// OrderDetail returns the policy for a full order. Details are refreshed by
// invalidation, never by polling.
func (iv Intervals) OrderDetail(order *models.Order) Policy {
	if order != nil && order.Status.IsTerminal() {
		return Policy{StaleAfter: Forever}
	}
	return Policy{StaleAfter: iv.DetailStale}
}

// PaymentDetail returns the policy for a payment lookup. A nil payment is
// always stale so the next read looks for it again.
func (iv Intervals) PaymentDetail(payment *models.Payment) Policy {
	switch {
	case payment == nil:
		return Policy{PollEvery: iv.Fast}
	case payment.Status.IsTerminal():
		return Policy{StaleAfter: Forever}
	default:
		return Policy{StaleAfter: iv.DetailStale}
	}
}

// OrderList returns the dashboard policy.
func (iv Intervals) OrderList() Policy {
	return Policy{StaleAfter: iv.ListStale, PollEvery: iv.ListStale}
}
