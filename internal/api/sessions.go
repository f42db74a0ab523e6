package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"order-portal/internal/service"
	"order-portal/internal/util"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
)

// ErrRegistryClosed is returned once the registry has shut down.
var ErrRegistryClosed = errors.New("session registry closed")

type leasedSession struct {
	session  *service.Session
	lastSeen time.Time
}

// SessionRegistry keeps one reconciling session per viewed order. HTTP has
// no unmount event, so a session is closed once nobody has read it for the
// lease duration.
type SessionRegistry struct {
	reconciler *service.Reconciler
	lease      time.Duration
	clock      clock.Clock
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*leasedSession
	closed   bool
}

// NewSessionRegistry creates a new session registry
func NewSessionRegistry(reconciler *service.Reconciler, lease time.Duration, clk clock.Clock) *SessionRegistry {
	if clk == nil {
		clk = clock.New()
	}
	if lease <= 0 {
		lease = time.Minute
	}
	return &SessionRegistry{
		reconciler: reconciler,
		lease:      lease,
		clock:      clk,
		logger:     util.GetLogger(),
		sessions:   make(map[string]*leasedSession),
	}
}

// View returns the reconciled view of orderID, opening a session on first
// read and renewing its lease on every read.
func (r *SessionRegistry) View(ctx context.Context, orderID string) (service.OrderView, error) {
	if view, ok, err := r.touch(orderID); ok || err != nil {
		return view, err
	}

	session, err := r.reconciler.Open(ctx, orderID)
	if err != nil {
		return service.OrderView{}, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		session.Close()
		return service.OrderView{}, ErrRegistryClosed
	}
	if existing, ok := r.sessions[orderID]; ok {
		// Another request opened the same order first.
		existing.lastSeen = r.clock.Now()
		r.mu.Unlock()
		session.Close()
		return existing.session.View(), nil
	}
	r.sessions[orderID] = &leasedSession{session: session, lastSeen: r.clock.Now()}
	r.mu.Unlock()

	return session.View(), nil
}

func (r *SessionRegistry) touch(orderID string) (service.OrderView, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return service.OrderView{}, false, ErrRegistryClosed
	}
	leased, ok := r.sessions[orderID]
	if !ok {
		return service.OrderView{}, false, nil
	}
	leased.lastSeen = r.clock.Now()
	return leased.session.View(), true, nil
}

// SetActive pauses or resumes polling for orderID. It reports whether a
// session exists.
func (r *SessionRegistry) SetActive(orderID string, active bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	leased, ok := r.sessions[orderID]
	if !ok {
		return false
	}
	leased.session.SetActive(active)
	leased.lastSeen = r.clock.Now()
	return true
}

// Sweep closes sessions whose lease expired and returns how many it closed.
func (r *SessionRegistry) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	var expired []*service.Session
	for orderID, leased := range r.sessions {
		if now.Sub(leased.lastSeen) >= r.lease {
			expired = append(expired, leased.session)
			delete(r.sessions, orderID)
		}
	}
	r.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	if len(expired) > 0 {
		r.logger.Debug("Expired order sessions", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps expired sessions until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context) {
	ticker := r.clock.Ticker(r.lease / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Closed reports whether Close was called.
func (r *SessionRegistry) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close closes every session. Later reads fail with ErrRegistryClosed.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*leasedSession)
	r.mu.Unlock()

	for _, leased := range sessions {
		leased.session.Close()
	}
}
