package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

// Client guards portal-wide critical sections in Redis
type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script

	mu     sync.Mutex
	tokens map[string]string
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb), nil
}

func newClient(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
		tokens:        make(map[string]string),
	}
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cancelLockKey(orderID string) string {
	return "lock:cancel:" + orderID
}

// AcquireCancelLock takes the cancel lock of orderID for ttl. It returns
// false when another holder has it.
func (c *Client) AcquireCancelLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	ok, err := c.rdb.SetNX(ctx, cancelLockKey(orderID), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire cancel lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	c.tokens[orderID] = token
	c.mu.Unlock()
	return true, nil
}

// ReleaseCancelLock releases the lock if this client still holds it. An
// expired lock taken over by someone else is left alone.
func (c *Client) ReleaseCancelLock(ctx context.Context, orderID string) error {
	c.mu.Lock()
	token, ok := c.tokens[orderID]
	delete(c.tokens, orderID)
	c.mu.Unlock()

	if !ok {
		return nil
	}

	if err := c.releaseScript.Run(ctx, c.rdb, []string{cancelLockKey(orderID)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release cancel lock: %w", err)
	}
	return nil
}
