package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop did not exit")
	}
}

func TestPollerStopsWhenTickReturnsZero(t *testing.T) {
	var ticks int32
	sub := NewPoller(nil).Start(context.Background(), "test", time.Millisecond, nil, func(ctx context.Context) time.Duration {
		if atomic.AddInt32(&ticks, 1) == 3 {
			return 0
		}
		return time.Millisecond
	})

	waitDone(t, sub)
	assert.Equal(t, int32(3), atomic.LoadInt32(&ticks))
}

func TestPollerStop(t *testing.T) {
	var ticks int32
	sub := NewPoller(nil).Start(context.Background(), "test", time.Millisecond, nil, func(ctx context.Context) time.Duration {
		atomic.AddInt32(&ticks, 1)
		return time.Millisecond
	})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 2 }, time.Second, time.Millisecond)
	sub.Stop()
	sub.Stop()

	after := atomic.LoadInt32(&ticks)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&ticks))
}

func TestPollerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := NewPoller(nil).Start(ctx, "test", time.Hour, nil, func(ctx context.Context) time.Duration {
		return time.Hour
	})

	cancel()
	waitDone(t, sub)
}

func TestPollerSkipsTicksWhileInactive(t *testing.T) {
	var active int32
	var ticks int32
	sub := NewPoller(nil).Start(context.Background(), "test", time.Millisecond,
		func() bool { return atomic.LoadInt32(&active) == 1 },
		func(ctx context.Context) time.Duration {
			atomic.AddInt32(&ticks, 1)
			return 0
		})

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ticks))

	atomic.StoreInt32(&active, 1)
	waitDone(t, sub)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ticks))
}

func TestPollerTicksNeverOverlap(t *testing.T) {
	var running, maxRunning, ticks int32
	sub := NewPoller(nil).Start(context.Background(), "test", time.Millisecond, nil, func(ctx context.Context) time.Duration {
		n := atomic.AddInt32(&running, 1)
		if n > atomic.LoadInt32(&maxRunning) {
			atomic.StoreInt32(&maxRunning, n)
		}
		time.Sleep(3 * time.Millisecond)
		atomic.AddInt32(&running, -1)

		if atomic.AddInt32(&ticks, 1) == 5 {
			return 0
		}
		return time.Microsecond
	})

	waitDone(t, sub)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxRunning))
}

func TestPollerWithoutFirstDelayNeverRuns(t *testing.T) {
	called := false
	sub := NewPoller(nil).Start(context.Background(), "test", 0, nil, func(ctx context.Context) time.Duration {
		called = true
		return 0
	})

	waitDone(t, sub)
	assert.False(t, called)
}
