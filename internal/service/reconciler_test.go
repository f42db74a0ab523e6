package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"order-portal/internal/models"
	"order-portal/internal/remote"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(backend *fakeBackend, publisher TransitionPublisher) *Reconciler {
	orders, store := newTestOrderService(backend)
	return NewReconciler(orders, store, ReconcilerConfig{
		Intervals: testIntervals(),
		Publisher: publisher,
		Source:    "test-instance",
	})
}

func TestReconcileStatusPrefersLiveValue(t *testing.T) {
	for _, cached := range models.OrderStatuses {
		assert.Equal(t, cached, ReconcileStatus(cached, ""))
		for _, live := range models.OrderStatuses {
			assert.Equal(t, live, ReconcileStatus(cached, live))
		}
	}

	payments := append([]models.PaymentStatus{models.PaymentStatusAbsent}, models.PaymentStatuses...)
	for _, cached := range payments {
		assert.Equal(t, cached, ReconcileStatus(cached, ""))
		for _, live := range models.PaymentStatuses {
			assert.Equal(t, live, ReconcileStatus(cached, live))
		}
	}
}

func TestOpenWithoutPaymentPollsOnlyOrderStatus(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{{ID: "1", Status: models.OrderStatusCreated}}
	backend.orderStatuses = []models.OrderStatus{models.OrderStatusCreated}

	session, err := newTestReconciler(backend, nil).Open(context.Background(), "1")
	require.NoError(t, err)
	defer session.Close()

	view := session.View()
	assert.Equal(t, models.OrderStatusCreated, view.OrderStatus)
	assert.Equal(t, models.PaymentStatusAbsent, view.PaymentStatus)
	assert.Nil(t, view.Payment)
	assert.Empty(t, view.PaymentError)
	assert.True(t, view.CanCancel)

	orderPolling, paymentPolling := session.Polling()
	assert.True(t, orderPolling)
	assert.False(t, paymentPolling)

	require.Eventually(t, func() bool { return backend.count("GetOrderStatus") >= 3 }, time.Second, time.Millisecond)
	assert.Zero(t, backend.count("GetPaymentStatusByOrder"))
	assert.GreaterOrEqual(t, backend.count("GetPaymentByOrderID"), 2)
}

func TestPolledTerminalStatusRefreshesOrderAndStopsPolling(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{
		{ID: "2", Status: models.OrderStatusConfirmed},
		{ID: "2", Status: models.OrderStatusDelivered},
	}
	backend.orderStatuses = []models.OrderStatus{models.OrderStatusDelivered}
	backend.payments = []*models.Payment{{ID: 9, Status: models.PaymentStatusConfirmed}}
	publisher := &fakePublisher{}

	session, err := newTestReconciler(backend, publisher).Open(context.Background(), "2")
	require.NoError(t, err)
	defer session.Close()

	require.Eventually(t, func() bool {
		orderPolling, _ := session.Polling()
		return !orderPolling
	}, time.Second, time.Millisecond)

	view := session.View()
	assert.Equal(t, models.OrderStatusDelivered, view.OrderStatus)
	assert.Equal(t, models.OrderStatusDelivered, view.Order.Status)
	assert.False(t, view.CanCancel)
	assert.Equal(t, 2, backend.count("GetOrderByID"))
	assert.Equal(t, []string{"order:CONFIRMED->DELIVERED"}, publisher.transitions())

	polls := backend.count("GetOrderStatus")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, polls, backend.count("GetOrderStatus"))
	assert.Zero(t, backend.count("GetPaymentStatusByOrder"))
}

func TestPaymentPollStartsOnlyAfterPaymentAppears(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{{ID: "3", Status: models.OrderStatusCreated}}
	backend.orderStatuses = []models.OrderStatus{models.OrderStatusCreated}
	backend.payments = []*models.Payment{
		nil,
		nil,
		{ID: 4, Status: models.PaymentStatusPending},
		{ID: 4, Status: models.PaymentStatusConfirmed},
	}
	backend.paymentStatuses = []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusConfirmed}
	publisher := &fakePublisher{}

	session, err := newTestReconciler(backend, publisher).Open(context.Background(), "3")
	require.NoError(t, err)
	defer session.Close()

	require.Eventually(t, func() bool {
		return session.View().PaymentStatus == models.PaymentStatusConfirmed
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		_, paymentPolling := session.Polling()
		return !paymentPolling
	}, time.Second, time.Millisecond)

	backend.mu.Lock()
	assert.False(t, backend.statusBeforePayment)
	backend.mu.Unlock()

	assert.Contains(t, publisher.transitions(), "payment:ABSENT->PENDING")
	assert.Contains(t, publisher.transitions(), "payment:PENDING->CONFIRMED")
	assert.Equal(t, models.PaymentStatusConfirmed, session.View().Payment.Status)
}

func TestOpenFailsWhenOrderIsMissing(t *testing.T) {
	backend := newFakeBackend()
	backend.orderErr = &remote.ClientError{Op: "GetOrderByID", StatusCode: http.StatusNotFound, Message: "Order not found"}

	_, err := newTestReconciler(backend, nil).Open(context.Background(), "404")
	assert.True(t, remote.IsNotFound(err))
}

func TestPaymentServerErrorIsSoft(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{{ID: "5", Status: models.OrderStatusDelivered}}
	backend.paymentErr = &remote.ServerError{Op: "GetPaymentByOrderID", StatusCode: http.StatusBadGateway, Message: "down"}

	session, err := newTestReconciler(backend, nil).Open(context.Background(), "5")
	require.NoError(t, err)
	defer session.Close()

	view := session.View()
	assert.Equal(t, models.OrderStatusDelivered, view.OrderStatus)
	assert.Equal(t, models.PaymentStatusAbsent, view.PaymentStatus)
	assert.NotEmpty(t, view.PaymentError)
}

func TestPaymentClientErrorIsTreatedAsAbsent(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{{ID: "6", Status: models.OrderStatusDelivered}}
	backend.paymentErr = &remote.ClientError{Op: "GetPaymentByOrderID", StatusCode: http.StatusBadRequest, Message: "bad"}

	session, err := newTestReconciler(backend, nil).Open(context.Background(), "6")
	require.NoError(t, err)
	defer session.Close()

	view := session.View()
	assert.Equal(t, models.PaymentStatusAbsent, view.PaymentStatus)
	assert.Empty(t, view.PaymentError)
}

func TestInactiveSessionSuppressesPolling(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{{ID: "7", Status: models.OrderStatusConfirmed}}
	backend.orderStatuses = []models.OrderStatus{models.OrderStatusConfirmed}
	backend.payments = []*models.Payment{{ID: 1, Status: models.PaymentStatusConfirmed}}

	session, err := newTestReconciler(backend, nil).Open(context.Background(), "7")
	require.NoError(t, err)
	defer session.Close()

	session.SetActive(false)
	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, backend.count("GetOrderStatus"))

	session.SetActive(true)
	require.Eventually(t, func() bool { return backend.count("GetOrderStatus") > 0 }, time.Second, time.Millisecond)
}

func TestCloseStopsPolling(t *testing.T) {
	backend := newFakeBackend()
	backend.orders = []*models.Order{{ID: "8", Status: models.OrderStatusCreated}}
	backend.orderStatuses = []models.OrderStatus{models.OrderStatusCreated}

	session, err := newTestReconciler(backend, nil).Open(context.Background(), "8")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return backend.count("GetOrderStatus") > 0 }, time.Second, time.Millisecond)
	session.Close()
	session.Close()

	orderCalls, paymentCalls := backend.count("GetOrderStatus"), backend.count("GetPaymentByOrderID")
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, orderCalls, backend.count("GetOrderStatus"))
	assert.Equal(t, paymentCalls, backend.count("GetPaymentByOrderID"))

	orderPolling, paymentPolling := session.Polling()
	assert.False(t, orderPolling)
	assert.False(t, paymentPolling)
}

func TestTransitionEventsUseReconcilerClock(t *testing.T) {
	clk := clock.NewMock()
	clk.Add(90 * time.Minute)
	publisher := &fakePublisher{}
	orders, store := newTestOrderService(newFakeBackend())
	r := NewReconciler(orders, store, ReconcilerConfig{
		Intervals: testIntervals(),
		Publisher: publisher,
		Source:    "test-instance",
		Clock:     clk,
	})

	r.emitTransition(context.Background(), models.EntityOrder, "1", "CREATED", "CONFIRMED")

	require.Equal(t, []string{"order:CREATED->CONFIRMED"}, publisher.transitions())
	event := publisher.events[0]
	assert.True(t, clk.Now().Equal(event.Timestamp))
	assert.Equal(t, "test-instance", event.Source)
	assert.Equal(t, models.EventTypeOrderStatusChanged, event.EventType)
}
