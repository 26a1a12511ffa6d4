package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/drinkshop/internal/catalog"
	"github.com/joao-fontenele/drinkshop/internal/discount"
	"github.com/joao-fontenele/drinkshop/internal/localstore"
	"github.com/joao-fontenele/drinkshop/internal/menu"
	"github.com/joao-fontenele/drinkshop/internal/messaging"
	"github.com/joao-fontenele/drinkshop/internal/orders"
	"github.com/joao-fontenele/drinkshop/internal/push"
	"github.com/joao-fontenele/drinkshop/internal/storefront"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

const serviceName = "storefront"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", serviceName)

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, "0.1.0", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(context.Background()) }()

	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	ordersServiceURL := os.Getenv("ORDERS_SERVICE_URL")
	if ordersServiceURL == "" {
		logger.Error("ORDERS_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	dbPath := os.Getenv("STOREFRONT_DB_PATH")
	if dbPath == "" {
		dbPath = "storefront.db"
	}

	store, err := localstore.Open(ctx, dbPath)
	if err != nil {
		logger.Error("failed to open local store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	menuCatalog, engine := loadMenu(ctx, os.Getenv("MENU_SERVICE_URL"), httpClient, logger)

	var registrar storefront.Registrar
	if pushServiceURL := os.Getenv("PUSH_SERVICE_URL"); pushServiceURL != "" {
		registrar = push.NewClient(pushServiceURL, httpClient)
	}

	ctrl, err := storefront.New(ctx, storefront.Deps{
		Catalog:   menuCatalog,
		Discounts: engine,
		Storage:   store,
		Orders:    orders.NewClient(ordersServiceURL, httpClient),
		Push:      registrar,
		Metrics:   metrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to restore storefront session", "error", err)
		os.Exit(1)
	}

	if token := os.Getenv("PUSH_TOKEN"); token != "" {
		if err := ctrl.RegisterPush(ctx, token); err != nil {
			logger.Warn("failed to register push token", "error", err)
		}
	}

	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		// Each profile reads the feed on its own and only cares about new events.
		consumer := messaging.NewConsumer(
			strings.Split(kafkaBrokers, ","),
			messaging.TopicOrderEvents,
			"storefront-"+uuid.NewString(),
			messaging.WithStartOffset(kafka.LastOffset),
		)
		defer func() { _ = consumer.Close() }()

		go func() {
			err := consumer.Consume(ctx, messaging.OrderEventHandler(logger, ctrl.HandleOrderEvent))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("order feed stopped", "error", err)
			}
		}()
	} else {
		logger.Warn("KAFKA_BROKERS not set, order tracking will not receive live updates")
	}

	mux := http.NewServeMux()
	storefront.NewHandler(ctrl, logger).Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      otelhttp.NewHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront", "port", port, "db_path", dbPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}

// loadMenu reads the live menu and running promotion when the menu service
// is configured, falling back to the built-in menu on any failure.
func loadMenu(ctx context.Context, menuServiceURL string, client *http.Client, logger *slog.Logger) (*catalog.Catalog, *discount.Engine) {
	if menuServiceURL == "" {
		return catalog.Default(), discount.DefaultEngine()
	}

	mc := menu.NewClient(menuServiceURL, client)

	items, err := mc.ListItems(ctx)
	if err != nil {
		logger.Warn("failed to load menu, using built-in catalog", "error", err)
		return catalog.Default(), discount.DefaultEngine()
	}
	cat := catalog.New(items, catalog.Default().Toppings())

	codes := discount.DefaultCodes()
	promo, err := mc.CurrentPromotion(ctx)
	switch {
	case err != nil:
		logger.Warn("failed to load current promotion", "error", err)
	case promo != nil:
		if code, ok := discount.FromPromotion(*promo, time.Now()); ok {
			codes = append(codes, code)
			logger.Info("promotion loaded", "code", code.Code)
		}
	}

	logger.Info("menu loaded", "items", len(items))
	return cat, discount.NewEngine(codes)
}
