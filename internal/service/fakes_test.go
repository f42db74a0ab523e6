package service

import (
	"context"
	"sync"
	"time"

	"order-portal/internal/cache"
	"order-portal/internal/models"
	"order-portal/internal/remote"
)

// fakeBackend replays scripted answers. Each sequence repeats its last
// element once exhausted.
type fakeBackend struct {
	mu sync.Mutex

	orders          []*models.Order
	orderErr        error
	orderStatuses   []models.OrderStatus
	orderStatusErr  error
	payments        []*models.Payment
	paymentErr      error
	paymentStatuses []models.PaymentStatus
	summaries       []models.OrderSummary

	cancelResult  *remote.CancelResult
	cancelErr     error
	cancelStarted chan struct{}
	cancelRelease chan struct{}
	cancelReasons []string

	paymentSeen         bool
	statusBeforePayment bool

	calls map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func nextOf[T any](seq []T, n int) T {
	var zero T
	if len(seq) == 0 {
		return zero
	}
	if n >= len(seq) {
		return seq[len(seq)-1]
	}
	return seq[n]
}

func (f *fakeBackend) record(op string) int {
	n := f.calls[op]
	f.calls[op] = n + 1
	return n
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeBackend) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.OrderConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateOrder")
	return &models.OrderConfirmation{Order: models.Order{
		ID:               "100",
		UserID:           req.UserID,
		UserName:         req.UserName,
		OrderDescription: req.OrderDescription,
		TotalAmount:      req.TotalAmount,
		Status:           models.OrderStatusCreated,
	}}, nil
}

func (f *fakeBackend) GetAllOrders(ctx context.Context) ([]models.OrderSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetAllOrders")
	return f.summaries, nil
}

func (f *fakeBackend) GetOrderByID(ctx context.Context, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.record("GetOrderByID")
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	order := *nextOf(f.orders, n)
	return &order, nil
}

func (f *fakeBackend) GetOrderStatus(ctx context.Context, orderID string) (models.OrderStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.record("GetOrderStatus")
	if f.orderStatusErr != nil {
		return "", f.orderStatusErr
	}
	return nextOf(f.orderStatuses, n), nil
}

func (f *fakeBackend) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.record("GetPaymentByOrderID")
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	payment := nextOf(f.payments, n)
	if payment == nil {
		return nil, nil
	}
	f.paymentSeen = true
	copied := *payment
	return &copied, nil
}

func (f *fakeBackend) GetPaymentStatusByOrder(ctx context.Context, orderID string) (models.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.record("GetPaymentStatusByOrder")
	if !f.paymentSeen {
		f.statusBeforePayment = true
	}
	return nextOf(f.paymentStatuses, n), nil
}

func (f *fakeBackend) CancelOrder(ctx context.Context, orderID, reason string) (*remote.CancelResult, error) {
	f.mu.Lock()
	f.record("CancelOrder")
	f.cancelReasons = append(f.cancelReasons, reason)
	started, release := f.cancelStarted, f.cancelRelease
	result, err := f.cancelResult, f.cancelErr
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return result, err
}

func (f *fakeBackend) setCancel(result *remote.CancelResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelResult, f.cancelErr = result, err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.StatusChangedEvent
}

func (p *fakePublisher) PublishStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Entity+":"+e.From+"->"+e.To)
	}
	return out
}

type fakeGuard struct {
	mu       sync.Mutex
	grant    bool
	acquired int
	released int
}

func (g *fakeGuard) AcquireCancelLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.grant {
		g.acquired++
	}
	return g.grant, nil
}

func (g *fakeGuard) ReleaseCancelLock(ctx context.Context, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released++
	return nil
}

func testIntervals() cache.Intervals {
	return cache.Intervals{
		Fast:        5 * time.Millisecond,
		Slow:        15 * time.Millisecond,
		DetailStale: time.Hour,
		ListStale:   time.Hour,
	}
}

func newTestOrderService(backend *fakeBackend) (*OrderService, *cache.Store) {
	store := cache.NewStore(cache.StoreConfig{})
	return NewOrderService(backend, store, testIntervals()), store
}
