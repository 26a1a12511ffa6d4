package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeterProvider exposes metrics through the Prometheus exporter and
// starts Go runtime instrumentation. The returned handler serves /metrics.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(serviceResource(serviceName, serviceVersion)),
	)
	otel.SetMeterProvider(mp)

	if err := runtime.Start(runtime.WithMeterProvider(mp)); err != nil {
		_ = mp.Shutdown(context.Background())
		return nil, nil, err
	}

	return promhttp.Handler(), mp.Shutdown, nil
}

// Metrics holds the shop's business counters. A nil *Metrics records
// nothing, so components can run without telemetry in tests.
type Metrics struct {
	ordersSubmitted metric.Int64Counter
	statusChanges   metric.Int64Counter
	discounts       metric.Int64Counter
	pushSent        metric.Int64Counter
	orderValue      metric.Int64Histogram
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/joao-fontenele/drinkshop")

	ordersSubmitted, err := meter.Int64Counter("drinkshop.orders.submitted",
		metric.WithDescription("Orders accepted by the order store"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	statusChanges, err := meter.Int64Counter("drinkshop.orders.status_changes",
		metric.WithDescription("Order status transitions"),
		metric.WithUnit("{change}"),
	)
	if err != nil {
		return nil, err
	}

	discounts, err := meter.Int64Counter("drinkshop.discounts.attempts",
		metric.WithDescription("Promo code applications by outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	pushSent, err := meter.Int64Counter("drinkshop.push.sent",
		metric.WithDescription("Push messages handed to devices"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	orderValue, err := meter.Int64Histogram("drinkshop.orders.value",
		metric.WithDescription("Order total after discount"),
		metric.WithUnit("VND"),
		metric.WithExplicitBucketBoundaries(10000, 25000, 50000, 100000, 200000, 500000),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersSubmitted: ordersSubmitted,
		statusChanges:   statusChanges,
		discounts:       discounts,
		pushSent:        pushSent,
		orderValue:      orderValue,
	}, nil
}

func (m *Metrics) OrderSubmitted(ctx context.Context, orderType string, total int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("order.type", orderType))
	m.ordersSubmitted.Add(ctx, 1, attrs)
	m.orderValue.Record(ctx, total, attrs)
}

func (m *Metrics) StatusChanged(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(attribute.String("order.status", status)))
}

// DiscountAttempt records outcome as "applied", "unknown_code" or
// "minimum_not_met".
func (m *Metrics) DiscountAttempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.discounts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) PushSent(ctx context.Context, audience string, delivered int) {
	if m == nil {
		return
	}
	m.pushSent.Add(ctx, int64(delivered), metric.WithAttributes(attribute.String("push.audience", audience)))
}
