package app

import (
	"testing"
	"time"

	"order-portal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutOptionalComponents(t *testing.T) {
	cfg := &config.Config{
		API: config.APIConfig{
			BaseURL:       "http://localhost:8080",
			Timeout:       time.Second,
			RetryAttempts: 2,
		},
		Polling: config.PollingConfig{
			Fast: 2 * time.Second,
			Slow: 20 * time.Second,
		},
		Cache: config.CacheConfig{
			DetailStale: 5 * time.Minute,
		},
	}

	p := New(cfg)
	defer p.Close()

	require.NotNil(t, p.Orders)
	require.NotNil(t, p.Reconciler)
	require.NotNil(t, p.Cancels)
	assert.Nil(t, p.Redis)
	assert.Nil(t, p.Producer)
	assert.Nil(t, p.Worker)

	assert.Equal(t, 2*time.Second, p.Intervals.Fast)
	assert.Equal(t, 20*time.Second, p.Intervals.Slow)
	assert.Equal(t, 5*time.Minute, p.Intervals.DetailStale)
	assert.Equal(t, time.Minute, p.Intervals.ListStale)
	assert.Contains(t, p.Source, "order-portal-")
}

func TestUnreachableRedisDisablesGuard(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Addr: "127.0.0.1:1"},
	}

	p := New(cfg)
	defer p.Close()

	assert.Nil(t, p.Redis)
}

func TestSourcesAreUniquePerProcess(t *testing.T) {
	a, b := New(&config.Config{}), New(&config.Config{})
	defer a.Close()
	defer b.Close()

	assert.NotEqual(t, a.Source, b.Source)
}
