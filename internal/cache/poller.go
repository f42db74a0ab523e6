package cache

import (
	"context"
	"sync"
	"time"

	"order-portal/internal/util"

	"github.com/facebookgo/clock"
)

// Tick runs one poll and returns the delay before the next one. A delay of
// zero or less ends the loop.
type Tick func(ctx context.Context) time.Duration

// Subscription is the handle of a running poll loop.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop ends the loop and waits for an in-flight tick to return. It is safe
// to call more than once but must not be called from the tick itself.
func (s *Subscription) Stop() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the loop has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Poller schedules poll loops on a clock
type Poller struct {
	clock clock.Clock
}

// NewPoller creates a new Poller. A nil clock uses wall time.
func NewPoller(clk clock.Clock) *Poller {
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{clock: clk}
}

// Start runs tick after first and then after each delay it returns. Ticks
// never overlap. While active reports false the tick is skipped and the same
// delay is waited again.
func (p *Poller) Start(ctx context.Context, name string, first time.Duration, active func() bool, tick Tick) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	if first <= 0 {
		cancel()
		close(sub.done)
		return sub
	}

	go func() {
		defer close(sub.done)
		defer cancel()

		delay := first
		for {
			timer := p.clock.Timer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if active != nil && !active() {
				util.PollTicksTotal.WithLabelValues(name, "suppressed").Inc()
				continue
			}

			next := tick(ctx)
			if ctx.Err() != nil {
				return
			}
			if next <= 0 {
				util.PollTicksTotal.WithLabelValues(name, "stopped").Inc()
				return
			}
			util.PollTicksTotal.WithLabelValues(name, "ok").Inc()
			delay = next
		}
	}()

	return sub
}
