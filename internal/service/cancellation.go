package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"order-portal/internal/cache"
	"order-portal/internal/remote"
	"order-portal/internal/util"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
)

// CancelState is the state of one order's cancellation workflow.
type CancelState string

// Cancellation states
const (
	CancelIdle            CancelState = "IDLE"
	CancelSubmitting      CancelState = "SUBMITTING"
	CancelNotifiedSuccess CancelState = "NOTIFIED_SUCCESS"
	CancelNotifiedFailure CancelState = "NOTIFIED_FAILURE"
)

// ErrRetryNotAllowed is returned by Retry unless the last attempt failed
// with a retryable outcome.
var ErrRetryNotAllowed = errors.New("cancellation retry is not allowed")

// Notification is the message shown after a cancel attempt
type Notification struct {
	Open       bool   `json:"open"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	OrderID    string `json:"orderId"`
	AllowRetry bool   `json:"allowRetry"`
}

// CancelSnapshot is the observable state of a cancellation workflow
type CancelSnapshot struct {
	OrderID      string       `json:"orderId"`
	State        CancelState  `json:"state"`
	Reason       string       `json:"reason,omitempty"`
	Notification Notification `json:"notification"`
}

type cancelWorkflow struct {
	state        CancelState
	reason       string
	notification Notification
	settle       *clock.Timer
	settleGen    uint64
}

// CancellationConfig configures the cancellation service
type CancellationConfig struct {
	// SettleDelay is how long the backend is given to apply a cancellation
	// before cached order data is refreshed.
	SettleDelay time.Duration
	LockTTL     time.Duration
	Guard       CancelGuard
	Clock       clock.Clock
}

// CancellationService runs the per-order cancel workflows
type CancellationService struct {
	backend Backend
	store   *cache.Store
	cfg     CancellationConfig
	clock   clock.Clock
	logger  *zap.Logger

	mu        sync.Mutex
	workflows map[string]*cancelWorkflow
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(backend Backend, store *cache.Store, cfg CancellationConfig) *CancellationService {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &CancellationService{
		backend:   backend,
		store:     store,
		cfg:       cfg,
		clock:     clk,
		logger:    util.GetLogger(),
		workflows: make(map[string]*cancelWorkflow),
	}
}

// Snapshot returns the workflow state for orderID.
func (s *CancellationService) Snapshot(orderID string) CancelSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(orderID)
}

func (s *CancellationService) snapshotLocked(orderID string) CancelSnapshot {
	wf, ok := s.workflows[orderID]
	if !ok {
		return CancelSnapshot{OrderID: orderID, State: CancelIdle}
	}
	return CancelSnapshot{
		OrderID:      orderID,
		State:        wf.state,
		Reason:       wf.reason,
		Notification: wf.notification,
	}
}

// Submit requests cancellation of orderID. While a submission for the same
// order is in flight further calls return its snapshot without sending
// anything.
func (s *CancellationService) Submit(ctx context.Context, orderID, reason string) CancelSnapshot {
	ctx, span := util.StartSpan(ctx, "CancellationService.Submit")
	defer span.End()

	s.mu.Lock()
	wf, ok := s.workflows[orderID]
	if !ok {
		wf = &cancelWorkflow{state: CancelIdle}
		s.workflows[orderID] = wf
	}
	if wf.state == CancelSubmitting {
		snapshot := s.snapshotLocked(orderID)
		s.mu.Unlock()
		s.logger.Info("Cancel already in flight", zap.String("order_id", orderID))
		return snapshot
	}
	wf.state = CancelSubmitting
	wf.reason = reason
	wf.notification = Notification{}
	s.mu.Unlock()

	notification := s.attempt(ctx, orderID, reason)

	s.mu.Lock()
	defer s.mu.Unlock()
	wf.notification = notification
	if notification.Success {
		wf.state = CancelNotifiedSuccess
		s.scheduleSettleLocked(orderID, wf)
	} else {
		wf.state = CancelNotifiedFailure
	}
	return s.snapshotLocked(orderID)
}

// Retry resubmits the last request for orderID with its original reason.
func (s *CancellationService) Retry(ctx context.Context, orderID string) (CancelSnapshot, error) {
	s.mu.Lock()
	wf, ok := s.workflows[orderID]
	if !ok || wf.state != CancelNotifiedFailure || !wf.notification.AllowRetry {
		snapshot := s.snapshotLocked(orderID)
		s.mu.Unlock()
		return snapshot, ErrRetryNotAllowed
	}
	reason := wf.reason
	s.mu.Unlock()

	return s.Submit(ctx, orderID, reason), nil
}

// Dismiss closes the notification of a finished attempt. The workflow state
// is kept, so a retryable failure can still be retried.
func (s *CancellationService) Dismiss(orderID string) CancelSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[orderID]
	if !ok {
		return s.snapshotLocked(orderID)
	}
	wf.notification.Open = false
	snapshot := s.snapshotLocked(orderID)
	s.pruneLocked(orderID, wf)
	return snapshot
}

// pruneLocked forgets a workflow that has nothing left to show, refresh or
// retry.
func (s *CancellationService) pruneLocked(orderID string, wf *cancelWorkflow) {
	if wf.notification.Open || wf.settle != nil {
		return
	}
	switch {
	case wf.state == CancelNotifiedSuccess,
		wf.state == CancelNotifiedFailure && !wf.notification.AllowRetry:
		delete(s.workflows, orderID)
	}
}

// Pending returns the number of workflows still tracked.
func (s *CancellationService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workflows)
}

// Shutdown cancels pending refreshes.
func (s *CancellationService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, wf := range s.workflows {
		if wf.settle != nil {
			wf.settle.Stop()
			wf.settle = nil
		}
	}
}

// attempt runs one submission and maps its result to a notification.
func (s *CancellationService) attempt(ctx context.Context, orderID, reason string) Notification {
	failure := func(message string, retry bool) Notification {
		return Notification{Open: true, Message: message, OrderID: orderID, AllowRetry: retry}
	}

	// Re-read the status; the one the caller rendered may be outdated.
	status, err := s.backend.GetOrderStatus(ctx, orderID)
	if err != nil {
		return s.errorNotification(orderID, err)
	}
	if !status.CanCancel() {
		util.CancelOutcomesTotal.WithLabelValues("ineligible").Inc()
		s.logger.Info("Order not cancellable",
			zap.String("order_id", orderID),
			zap.String("status", string(status)))
		return failure(MsgCancelTerminal, false)
	}

	if s.cfg.Guard != nil {
		acquired, err := s.cfg.Guard.AcquireCancelLock(ctx, orderID, s.cfg.LockTTL)
		switch {
		case err != nil:
			s.logger.Warn("Cancel lock unavailable, continuing without it",
				zap.String("order_id", orderID),
				zap.Error(err))
		case !acquired:
			return failure(MsgCancelInFlight, true)
		default:
			defer func() {
				if err := s.cfg.Guard.ReleaseCancelLock(context.Background(), orderID); err != nil {
					s.logger.Warn("Failed to release cancel lock", zap.String("order_id", orderID), zap.Error(err))
				}
			}()
		}
	}

	result, err := s.backend.CancelOrder(ctx, orderID, reason)
	if err != nil {
		return s.errorNotification(orderID, err)
	}

	s.logger.Info("Cancel request answered",
		zap.String("order_id", orderID),
		zap.String("outcome", string(result.Outcome)))

	switch result.Outcome {
	case remote.CancelAccepted:
		return Notification{Open: true, Success: true, Message: MsgCancelAccepted, OrderID: orderID}
	case remote.CancelRejectedRetryable:
		return failure(MsgCancelRetryable, true)
	case remote.CancelRejectedTerminal:
		return failure(MsgCancelTerminal, false)
	default:
		return failure(MsgCancelFailed, true)
	}
}

func (s *CancellationService) errorNotification(orderID string, err error) Notification {
	s.logger.Warn("Cancel request failed", zap.String("order_id", orderID), zap.Error(err))

	n := Notification{Open: true, OrderID: orderID, AllowRetry: true}

	var clientErr *remote.ClientError
	var serverErr *remote.ServerError
	var netErr *remote.NetworkError
	var ambiguous *remote.AmbiguousOutcomeError
	switch {
	case errors.As(err, &clientErr) && clientErr.NotFound():
		n.Message = MsgOrderNotFound
	case errors.As(err, &serverErr):
		n.Message = MsgServerError
	case errors.As(err, &netErr):
		n.Message = MsgNetworkError
	case errors.As(err, &ambiguous) && ambiguous.Message != "":
		n.Message = ambiguous.Message
	default:
		n.Message = MsgCancelFailed
	}
	return n
}

// scheduleSettleLocked refreshes the order's cached views once the backend
// has had time to apply the cancellation.
func (s *CancellationService) scheduleSettleLocked(orderID string, wf *cancelWorkflow) {
	if wf.settle != nil {
		wf.settle.Stop()
	}
	wf.settleGen++
	gen := wf.settleGen
	wf.settle = s.clock.AfterFunc(s.cfg.SettleDelay, func() {
		s.store.InvalidateAll(cache.OrderKeys(orderID)...)
		s.logger.Info("Refreshed order after cancellation", zap.String("order_id", orderID))

		s.mu.Lock()
		defer s.mu.Unlock()
		if current, ok := s.workflows[orderID]; ok && current == wf && wf.settleGen == gen {
			wf.settle = nil
			s.pruneLocked(orderID, wf)
		}
	})
}
