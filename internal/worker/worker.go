package worker

import (
	"context"

	"order-portal/internal/broker"
	"order-portal/internal/cache"
	"order-portal/internal/models"
	"order-portal/internal/util"

	"go.uber.org/zap"
)

// InvalidationWorker applies status transitions seen by other portal
// instances to the local cache
type InvalidationWorker struct {
	consumer *broker.Consumer
	handler  *broker.StatusHandler
	store    *cache.Store
	source   string
	logger   *zap.Logger
}

// NewInvalidationWorker creates a new invalidation worker. Events tagged
// with source are this instance's own and are skipped.
func NewInvalidationWorker(consumer *broker.Consumer, store *cache.Store, source string) *InvalidationWorker {
	w := &InvalidationWorker{
		consumer: consumer,
		store:    store,
		source:   source,
		logger:   util.GetLogger(),
	}
	w.handler = broker.NewStatusHandler(w.HandleStatusChanged)
	return w
}

// Start consumes until ctx is done
func (w *InvalidationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting invalidation worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *InvalidationWorker) Stop() error {
	w.logger.Info("Stopping invalidation worker")
	return w.consumer.Close()
}

// HandleStatusChanged invalidates the cached entries event makes stale.
func (w *InvalidationWorker) HandleStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error {
	if event.Source == w.source {
		return nil
	}

	switch event.Entity {
	case models.EntityOrder:
		w.store.InvalidateAll(cache.OrderKeys(event.OrderID)...)
	case models.EntityPayment:
		w.store.InvalidateAll(cache.PaymentDetailKey(event.OrderID), cache.PaymentStatusKey(event.OrderID))
	default:
		w.logger.Debug("Ignoring transition for unknown entity", zap.String("entity", event.Entity))
		return nil
	}

	w.logger.Info("Applied remote status transition",
		zap.String("source", event.Source),
		zap.String("entity", event.Entity),
		zap.String("order_id", event.OrderID),
		zap.String("to", event.To))
	return nil
}
