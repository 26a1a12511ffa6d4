package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

// TopicOrderEvents carries every order lifecycle event keyed by order id.
const TopicOrderEvents = "order.events"

// OrderEventPublisher publishes domain order events onto TopicOrderEvents.
type OrderEventPublisher struct {
	publisher Publisher
}

func NewOrderEventPublisher(p Publisher) *OrderEventPublisher {
	return &OrderEventPublisher{publisher: p}
}

func (p *OrderEventPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	if err := p.publisher.Publish(ctx, event.OrderID, event); err != nil {
		return fmt.Errorf("publish %s for order %s: %w", event.Type, event.OrderID, err)
	}
	return nil
}

func DecodeOrderEvent(payload []byte) (domain.OrderEvent, error) {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.OrderEvent{}, fmt.Errorf("unmarshal order event: %w", err)
	}
	if event.OrderID == "" || event.Type == "" {
		return domain.OrderEvent{}, errors.New("order event missing id or type")
	}
	return event, nil
}

// OrderEventHandler adapts fn to a consumer handler. Payloads that cannot be
// decoded are logged and skipped so one bad message does not stall the
// partition.
func OrderEventHandler(logger *slog.Logger, fn func(ctx context.Context, event domain.OrderEvent) error) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		event, err := DecodeOrderEvent(payload)
		if err != nil {
			logger.Error("skipping malformed order event", "error", err)
			return nil
		}
		return fn(ctx, event)
	}
}
