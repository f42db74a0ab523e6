package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"order-portal/internal/models"
	"order-portal/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusPublisher publishes status transitions observed by polling
type StatusPublisher struct {
	producer *Producer
}

// NewStatusPublisher creates a new status publisher
func NewStatusPublisher(producer *Producer) *StatusPublisher {
	return &StatusPublisher{producer: producer}
}

// PublishStatusChanged publishes event keyed by its order id
func (sp *StatusPublisher) PublishStatusChanged(ctx context.Context, event *models.StatusChangedEvent) error {
	return sp.producer.Publish(ctx, "order-"+event.OrderID, event)
}

// StatusHandler decodes status events and passes them on
type StatusHandler struct {
	onStatusChanged func(context.Context, *models.StatusChangedEvent) error
	logger          *zap.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(onStatusChanged func(context.Context, *models.StatusChangedEvent) error) *StatusHandler {
	return &StatusHandler{onStatusChanged: onStatusChanged, logger: util.GetLogger()}
}

// HandleMessage routes messages to the status callback
func (h *StatusHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch base.EventType {
	case models.EventTypeOrderStatusChanged, models.EventTypePaymentStatusChanged:
		var event models.StatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal %s event: %w", base.EventType, err)
		}
		return h.onStatusChanged(ctx, &event)
	default:
		h.logger.Debug("Ignoring event", zap.String("event_type", base.EventType))
		return nil
	}
}
