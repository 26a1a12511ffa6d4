package messaging

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

var consumerTracer = otel.Tracer("messaging/consumer")

// HandlerFunc processes one message payload inside the consumer span.
type HandlerFunc func(ctx context.Context, payload []byte) error

type Consumer struct {
	reader  *kafka.Reader
	topic   string
	groupID string
	retry   RetryPolicy
}

// RetryPolicy bounds how often a failing message is handed to the handler
// again before Consume gives up. Backoff doubles after each attempt.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

type consumerConfig struct {
	reader kafka.ReaderConfig
	retry  RetryPolicy
}

type ConsumerOption func(*consumerConfig)

func WithStartOffset(offset int64) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.reader.StartOffset = offset
	}
}

func WithRetry(attempts int, backoff time.Duration) ConsumerOption {
	return func(cfg *consumerConfig) {
		cfg.retry = RetryPolicy{Attempts: attempts, Backoff: backoff}
	}
}

func NewConsumer(brokers []string, topic, groupID string, opts ...ConsumerOption) *Consumer {
	cfg := consumerConfig{
		reader: kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		},
		retry: RetryPolicy{Attempts: 1},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Consumer{
		reader:  kafka.NewReader(cfg.reader),
		topic:   topic,
		groupID: groupID,
		retry:   cfg.retry,
	}
}

// Consume fetches, handles and commits messages one at a time until ctx is
// done or the handler fails on every retry. A failed message is not
// committed, so the group resumes from it after a restart.
func (c *Consumer) Consume(ctx context.Context, handler HandlerFunc) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.process(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message, handler HandlerFunc) error {
	parentCtx := otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&msg))

	spanCtx, span := consumerTracer.Start(parentCtx, "process "+c.topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystemKafka,
			semconv.MessagingOperationName("process"),
			semconv.MessagingOperationTypeDeliver,
			semconv.MessagingDestinationName(c.topic),
			semconv.MessagingKafkaConsumerGroup(c.groupID),
			semconv.MessagingKafkaMessageOffset(int(msg.Offset)),
			semconv.MessagingDestinationPartitionID(strconv.Itoa(msg.Partition)),
			semconv.MessagingKafkaMessageKey(string(msg.Key)),
		),
	)
	defer span.End()

	err := c.retry.Do(spanCtx, func(attempt int) error {
		if attempt > 1 {
			span.AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
		}
		return handler(spanCtx, msg.Value)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Do runs fn until it succeeds, the attempts run out or ctx is done. fn gets
// the 1-based attempt number.
func (p RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := max(p.Attempts, 1)
	backoff := p.Backoff

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil || attempt == attempts {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
