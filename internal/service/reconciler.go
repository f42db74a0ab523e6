package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"order-portal/internal/cache"
	"order-portal/internal/models"
	"order-portal/internal/remote"
	"order-portal/internal/util"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Poll loop names used in metrics.
const (
	loopOrderStatus   = "order_status"
	loopPaymentStatus = "payment_status"
	loopPaymentWatch  = "payment_watch"
)

// ReconcileStatus returns the live polled status when there is one and the
// status of the last full fetch otherwise.
func ReconcileStatus[S ~string](entity, live S) S {
	if live != "" {
		return live
	}
	return entity
}

// OrderView is the reconciled state of one order detail page
type OrderView struct {
	Order         *models.Order        `json:"order"`
	Payment       *models.Payment      `json:"payment"`
	OrderStatus   models.OrderStatus   `json:"orderStatus"`
	PaymentStatus models.PaymentStatus `json:"paymentStatus"`
	// PaymentError is set when the payment lookup failed on the server side.
	// The rest of the view stays usable.
	PaymentError string `json:"paymentError,omitempty"`
	CanCancel    bool   `json:"canCancel"`
}

// ReconcilerConfig configures a Reconciler
type ReconcilerConfig struct {
	Intervals cache.Intervals
	Publisher TransitionPublisher
	// Source tags published transitions so this instance can ignore its own.
	Source string
	Clock  clock.Clock
}

// Reconciler opens order sessions that keep cached details and live polled
// statuses convergent.
type Reconciler struct {
	orders    *OrderService
	store     *cache.Store
	poller    *cache.Poller
	intervals cache.Intervals
	publisher TransitionPublisher
	source    string
	clock     clock.Clock
	logger    *zap.Logger
}

// NewReconciler creates a new reconciler
func NewReconciler(orders *OrderService, store *cache.Store, cfg ReconcilerConfig) *Reconciler {
	source := cfg.Source
	if source == "" {
		source = util.ServiceName
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Reconciler{
		orders:    orders,
		store:     store,
		poller:    cache.NewPoller(clk),
		intervals: cfg.Intervals,
		publisher: cfg.Publisher,
		source:    source,
		clock:     clk,
		logger:    util.GetLogger(),
	}
}

// Session tracks one mounted order view. Close must be called to stop its
// poll loops.
type Session struct {
	orderID string
	r       *Reconciler
	ctx     context.Context
	cancel  context.CancelFunc
	active  atomic.Bool

	mu          sync.Mutex
	order       *models.Order
	payment     *models.Payment
	paymentErr  error
	liveOrder   models.OrderStatus
	livePayment models.PaymentStatus
	orderSub    *cache.Subscription
	paymentSub  *cache.Subscription
	watchSub    *cache.Subscription
	closed      bool

	updates chan struct{}
}

// Open loads the order and its payment and starts the poll loops the
// current statuses call for. A failed order load is returned; a failed
// payment load is not.
func (r *Reconciler) Open(ctx context.Context, orderID string) (*Session, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Open")
	defer span.End()

	order, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	payment, paymentErr := r.orders.GetPayment(ctx, orderID)
	if paymentErr != nil {
		payment = nil
		r.logger.Warn("Payment lookup failed",
			zap.String("order_id", orderID),
			zap.Error(paymentErr))
		if !isServerError(paymentErr) {
			paymentErr = nil
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		orderID:    orderID,
		r:          r,
		ctx:        loopCtx,
		cancel:     cancel,
		order:      order,
		payment:    payment,
		paymentErr: paymentErr,
		updates:    make(chan struct{}, 1),
	}
	s.active.Store(true)

	s.mu.Lock()
	if policy := r.intervals.OrderStatus(order.Status); policy.Polls() {
		s.orderSub = r.poller.Start(loopCtx, loopOrderStatus, policy.PollEvery, s.isActive, s.pollOrderStatus)
	}
	if payment != nil {
		s.startPaymentPollLocked(payment.Status)
	} else {
		s.watchSub = r.poller.Start(loopCtx, loopPaymentWatch, r.intervals.PaymentDetail(nil).PollEvery, s.isActive, s.watchPayment)
	}
	s.mu.Unlock()

	util.ActiveSessions.Inc()
	r.logger.Info("Order session opened",
		zap.String("order_id", orderID),
		zap.String("order_status", string(order.Status)),
		zap.Bool("has_payment", payment != nil))

	return s, nil
}

func isServerError(err error) bool {
	var serverErr *remote.ServerError
	return errors.As(err, &serverErr)
}

// OrderID returns the order the session tracks.
func (s *Session) OrderID() string {
	return s.orderID
}

// View returns the reconciled state.
func (s *Session) View() OrderView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := OrderView{
		Order:       s.order,
		Payment:     s.payment,
		OrderStatus: ReconcileStatus(s.order.Status, s.liveOrder),
	}

	paymentStatus := models.PaymentStatusAbsent
	if s.payment != nil {
		paymentStatus = s.payment.Status
	}
	view.PaymentStatus = ReconcileStatus(paymentStatus, s.livePayment)
	if s.paymentErr != nil {
		view.PaymentError = s.paymentErr.Error()
	}
	view.CanCancel = view.OrderStatus.CanCancel()

	return view
}

// Updates delivers a signal after every change to the view. Signals are
// coalesced.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// SetActive pauses or resumes polling while the view is in the background.
func (s *Session) SetActive(active bool) {
	s.active.Store(active)
}

func (s *Session) isActive() bool {
	return s.active.Load()
}

// Polling reports which loops are running.
func (s *Session) Polling() (orderStatus, paymentStatus bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return running(s.orderSub), running(s.paymentSub)
}

func running(sub *cache.Subscription) bool {
	if sub == nil {
		return false
	}
	select {
	case <-sub.Done():
		return false
	default:
		return true
	}
}

// Close stops every poll loop of the session and waits for them to exit.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := []*cache.Subscription{s.orderSub, s.paymentSub, s.watchSub}
	s.mu.Unlock()

	s.cancel()
	for _, sub := range subs {
		if sub != nil {
			sub.Stop()
		}
	}

	// Live statuses are only meaningful while polled.
	s.r.store.Delete(cache.OrderStatusKey(s.orderID))
	s.r.store.Delete(cache.PaymentStatusKey(s.orderID))

	util.ActiveSessions.Dec()
	s.r.logger.Info("Order session closed", zap.String("order_id", s.orderID))
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// pollOrderStatus is one tick of the order status loop.
func (s *Session) pollOrderStatus(ctx context.Context) time.Duration {
	ctx, span := util.StartSpan(ctx, "Session.pollOrderStatus")
	defer span.End()

	r := s.r
	status, err := r.orders.GetOrderStatus(ctx, s.orderID)
	if err != nil {
		return s.retryAfterPollError(loopOrderStatus, err, s.currentOrderPolicy().PollEvery)
	}

	s.mu.Lock()
	previous := ReconcileStatus(s.order.Status, s.liveOrder)
	s.liveOrder = status
	stale := status != s.order.Status
	s.mu.Unlock()

	if status != previous {
		r.emitTransition(ctx, models.EntityOrder, s.orderID, string(previous), string(status))
	}
	if stale {
		r.store.Invalidate(cache.OrderListKey)
		r.store.Invalidate(cache.OrderDetailKey(s.orderID))
		if order, err := r.orders.GetOrder(ctx, s.orderID); err == nil {
			s.mu.Lock()
			s.order = order
			s.mu.Unlock()
		} else {
			r.logger.Warn("Order refetch failed", zap.String("order_id", s.orderID), zap.Error(err))
		}
	}
	if status != previous || stale {
		s.notify()
	}

	return r.intervals.OrderStatus(status).PollEvery
}

// pollPaymentStatus is one tick of the payment status loop.
func (s *Session) pollPaymentStatus(ctx context.Context) time.Duration {
	ctx, span := util.StartSpan(ctx, "Session.pollPaymentStatus")
	defer span.End()

	r := s.r
	status, err := r.orders.GetPaymentStatus(ctx, s.orderID)
	if err != nil {
		return s.retryAfterPollError(loopPaymentStatus, err, r.intervals.Fast)
	}
	if status == models.PaymentStatusAbsent {
		return r.intervals.Fast
	}

	s.mu.Lock()
	entity := models.PaymentStatusAbsent
	if s.payment != nil {
		entity = s.payment.Status
	}
	previous := ReconcileStatus(entity, s.livePayment)
	s.livePayment = status
	stale := status != entity
	s.mu.Unlock()

	if status != previous {
		r.emitTransition(ctx, models.EntityPayment, s.orderID, string(previous), string(status))
	}
	if stale {
		r.store.Invalidate(cache.PaymentDetailKey(s.orderID))
		if payment, err := r.orders.GetPayment(ctx, s.orderID); err == nil && payment != nil {
			s.mu.Lock()
			s.payment = payment
			s.paymentErr = nil
			s.mu.Unlock()
		} else if err != nil {
			r.logger.Warn("Payment refetch failed", zap.String("order_id", s.orderID), zap.Error(err))
		}
	}
	if status != previous || stale {
		s.notify()
	}

	return r.intervals.PaymentStatus(status).PollEvery
}

// watchPayment looks for the payment of an order that has none yet. Once it
// appears the payment status loop takes over.
func (s *Session) watchPayment(ctx context.Context) time.Duration {
	r := s.r
	payment, err := r.orders.GetPayment(ctx, s.orderID)
	if err != nil {
		s.mu.Lock()
		if isServerError(err) {
			s.paymentErr = err
		}
		s.mu.Unlock()
		return s.retryAfterPollError(loopPaymentWatch, err, r.intervals.Fast)
	}
	if payment == nil {
		return r.intervals.Fast
	}

	s.mu.Lock()
	s.payment = payment
	s.paymentErr = nil
	if !s.closed {
		s.startPaymentPollLocked(payment.Status)
	}
	s.mu.Unlock()

	r.emitTransition(ctx, models.EntityPayment, s.orderID, string(models.PaymentStatusAbsent), string(payment.Status))
	s.notify()
	return 0
}

func (s *Session) startPaymentPollLocked(status models.PaymentStatus) {
	policy := s.r.intervals.PaymentStatus(status)
	if !policy.Polls() {
		return
	}
	s.paymentSub = s.r.poller.Start(s.ctx, loopPaymentStatus, policy.PollEvery, s.isActive, s.pollPaymentStatus)
}

func (s *Session) currentOrderPolicy() cache.Policy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.intervals.OrderStatus(ReconcileStatus(s.order.Status, s.liveOrder))
}

// retryAfterPollError keeps a loop alive across transient failures. The
// cache has already retried retryable errors by the time this runs.
func (s *Session) retryAfterPollError(loop string, err error, next time.Duration) time.Duration {
	if s.ctx.Err() != nil {
		return 0
	}
	util.PollTicksTotal.WithLabelValues(loop, "error").Inc()
	s.r.logger.Warn("Poll tick failed",
		zap.String("loop", loop),
		zap.String("order_id", s.orderID),
		zap.Error(err))
	return next
}

func (r *Reconciler) emitTransition(ctx context.Context, entity, orderID, from, to string) {
	util.StatusTransitionsTotal.WithLabelValues(entity, to).Inc()
	r.logger.Info("Status transition observed",
		zap.String("entity", entity),
		zap.String("order_id", orderID),
		zap.String("from", from),
		zap.String("to", to))

	if r.publisher == nil {
		return
	}

	eventType := models.EventTypeOrderStatusChanged
	if entity == models.EntityPayment {
		eventType = models.EventTypePaymentStatusChanged
	}
	event := &models.StatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Source:    r.source,
			Timestamp: r.clock.Now(),
		},
		Entity:  entity,
		OrderID: orderID,
		From:    from,
		To:      to,
	}
	if err := r.publisher.PublishStatusChanged(ctx, event); err != nil {
		r.logger.Error("Failed to publish status transition",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
}
