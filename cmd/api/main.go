package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/avillareal/marketpay-backend/api/routes"
	"github.com/avillareal/marketpay-backend/internal/notifications"
	"github.com/avillareal/marketpay-backend/internal/orders"
	"github.com/avillareal/marketpay-backend/internal/payments"
	gatewaywebhook "github.com/avillareal/marketpay-backend/internal/webhooks/gateway"
	"github.com/avillareal/marketpay-backend/pkg/config"
	"github.com/avillareal/marketpay-backend/pkg/db"
	"github.com/avillareal/marketpay-backend/pkg/gateway/sandbox"
	"github.com/avillareal/marketpay-backend/pkg/logger"
	"github.com/avillareal/marketpay-backend/pkg/metrics"
	"github.com/avillareal/marketpay-backend/pkg/migrate"
	"github.com/avillareal/marketpay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	gatewayPort, err := sandbox.New(cfg.Gateway.WebhookSecret)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway provider", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		dbClient,
		payments.NewRepository(dbClient.DB()),
		ordersService,
		notificationsService,
		gatewayPort,
		cfg.Payments,
		cfg.Gateway,
		logg,
		paymentMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookGuard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookEventTTL, "gateway")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookService, err := gatewaywebhook.NewService(gatewaywebhook.ServiceParams{
		Payments:  paymentsService,
		Validator: gatewayPort,
		Guard:     webhookGuard,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"provider": gatewayPort.Name(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			paymentsService,
			ordersService,
			notificationsService,
			webhookService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
