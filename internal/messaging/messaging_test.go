package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joao-fontenele/drinkshop/internal/domain"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &kafka.Message{}
	c := NewHeaderCarrier(msg)

	c.Set("traceparent", "00-aaa-bbb-01")
	c.Set("traceparent", "00-ccc-ddd-01")
	c.Set("baggage", "shop=drinkshop")

	if len(msg.Headers) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(msg.Headers))
	}
	if got := c.Get("traceparent"); got != "00-ccc-ddd-01" {
		t.Errorf("expected overwritten value, got %s", got)
	}
	if got := c.Get("missing"); got != "" {
		t.Errorf("expected empty value, got %s", got)
	}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != "traceparent" || keys[1] != "baggage" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

type recordingPublisher struct {
	key   string
	event any
	err   error
}

func (r *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	r.key = key
	r.event = event
	return r.err
}

func TestOrderEventPublisher(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewOrderEventPublisher(rec)

	event := domain.OrderEvent{Type: domain.EventOrderCreated, OrderID: "o-1", Status: domain.OrderStatusPending}
	if err := p.PublishOrderEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.key != "o-1" {
		t.Errorf("expected events keyed by order id, got %q", rec.key)
	}

	rec.err = errors.New("broker down")
	if err := p.PublishOrderEvent(context.Background(), event); !errors.Is(err, rec.err) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}

func TestOrderEventHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var got []domain.OrderEvent
	handler := OrderEventHandler(logger, func(_ context.Context, event domain.OrderEvent) error {
		got = append(got, event)
		return nil
	})

	payload, _ := json.Marshal(domain.OrderEvent{
		Type:      domain.EventOrderStatusChanged,
		OrderID:   "o-2",
		Status:    domain.OrderStatusPreparing,
		Timestamp: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	})

	if err := handler(context.Background(), payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := handler(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("malformed payload should be skipped, got %v", err)
	}
	if err := handler(context.Background(), []byte(`{"status":"pending"}`)); err != nil {
		t.Fatalf("incomplete payload should be skipped, got %v", err)
	}

	if len(got) != 1 || got[0].Status != domain.OrderStatusPreparing {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestRetryPolicy_Do(t *testing.T) {
	errPush := errors.New("push unavailable")

	t.Run("stops at first success", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}.Do(context.Background(), func(attempt int) error {
			calls++
			if attempt < 2 {
				return errPush
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 calls, got %d", calls)
		}
	})

	t.Run("returns last error when attempts run out", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{Attempts: 3, Backoff: time.Millisecond}.Do(context.Background(), func(int) error {
			calls++
			return errPush
		})
		if !errors.Is(err, errPush) {
			t.Errorf("expected push error, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("zero policy tries once", func(t *testing.T) {
		calls := 0
		_ = RetryPolicy{}.Do(context.Background(), func(int) error {
			calls++
			return errPush
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("gives up when context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		err := RetryPolicy{Attempts: 5, Backoff: time.Hour}.Do(ctx, func(int) error {
			cancel()
			return errPush
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
