package worker

import (
	"context"
	"testing"

	"order-portal/internal/cache"
	"order-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func (c *counter) fetch(context.Context) (interface{}, error) {
	c.n++
	return c.n, nil
}

func prime(t *testing.T, store *cache.Store, key cache.Key, c *counter) {
	t.Helper()
	_, err := store.Get(context.Background(), key, c.fetch, func(interface{}) cache.Policy {
		return cache.Policy{StaleAfter: cache.Forever}
	})
	require.NoError(t, err)
}

func TestHandleStatusChanged(t *testing.T) {
	tests := []struct {
		name        string
		event       models.StatusChangedEvent
		wantOrder   int
		wantPayment int
	}{
		{
			name:        "order transition from another instance",
			event:       models.StatusChangedEvent{BaseEvent: models.BaseEvent{Source: "other"}, Entity: models.EntityOrder, OrderID: "1"},
			wantOrder:   2,
			wantPayment: 1,
		},
		{
			name:        "payment transition from another instance",
			event:       models.StatusChangedEvent{BaseEvent: models.BaseEvent{Source: "other"}, Entity: models.EntityPayment, OrderID: "1"},
			wantOrder:   1,
			wantPayment: 2,
		},
		{
			name:        "own transition",
			event:       models.StatusChangedEvent{BaseEvent: models.BaseEvent{Source: "self"}, Entity: models.EntityOrder, OrderID: "1"},
			wantOrder:   1,
			wantPayment: 1,
		},
		{
			name:        "other order",
			event:       models.StatusChangedEvent{BaseEvent: models.BaseEvent{Source: "other"}, Entity: models.EntityOrder, OrderID: "2"},
			wantOrder:   1,
			wantPayment: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cache.NewStore(cache.StoreConfig{})
			order, payment := &counter{}, &counter{}
			prime(t, store, cache.OrderDetailKey("1"), order)
			prime(t, store, cache.PaymentDetailKey("1"), payment)

			w := NewInvalidationWorker(nil, store, "self")
			require.NoError(t, w.HandleStatusChanged(context.Background(), &tt.event))

			prime(t, store, cache.OrderDetailKey("1"), order)
			prime(t, store, cache.PaymentDetailKey("1"), payment)
			assert.Equal(t, tt.wantOrder, order.n)
			assert.Equal(t, tt.wantPayment, payment.n)
		})
	}
}
