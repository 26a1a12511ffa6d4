package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/drinkshop/internal/admin"
	"github.com/joao-fontenele/drinkshop/internal/orders"
	"github.com/joao-fontenele/drinkshop/internal/telemetry"
)

const (
	serviceName    = "admin"
	shopTimezone   = "Asia/Ho_Chi_Minh"
	shopUTCOffset  = 7 * 60 * 60
	defaultRefresh = time.Minute
)

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

	ordersServiceURL := os.Getenv("ORDERS_SERVICE_URL")
	if ordersServiceURL == "" {
		logger.Error("ORDERS_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	refresh := defaultRefresh
	if s := os.Getenv("ANALYTICS_REFRESH"); s != "" {
		if refresh, err = time.ParseDuration(s); err != nil || refresh <= 0 {
			logger.Error("invalid ANALYTICS_REFRESH", "value", s)
			os.Exit(1)
		}
	}

	location, err := time.LoadLocation(shopTimezone)
	if err != nil {
		logger.Warn("timezone database unavailable, using fixed offset", "error", err)
		location = time.FixedZone("ICT", shopUTCOffset)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	source := orders.NewClient(ordersServiceURL, httpClient)

	refresher := admin.NewRefresher(source, refresh, location, logger)
	go refresher.Run(ctx)

	mux := http.NewServeMux()
	admin.NewHandler(source, refresher, location, logger).Register(mux)
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      otelhttp.NewHandler(mux, serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting admin service", "port", port, "refresh", refresh.String())
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
