package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brcommerce/pagbank-gateway/api/controllers"
	"github.com/brcommerce/pagbank-gateway/api/routes"
	"github.com/brcommerce/pagbank-gateway/internal/connect"
	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/settings"
	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	"github.com/brcommerce/pagbank-gateway/internal/tokens"
	pagbankwebhook "github.com/brcommerce/pagbank-gateway/internal/webhooks/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/db"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	"github.com/brcommerce/pagbank-gateway/pkg/events"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
	"github.com/brcommerce/pagbank-gateway/pkg/migrate"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/redis"
	"github.com/brcommerce/pagbank-gateway/pkg/security"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(promRegistry)

	environment, err := enums.ParseEnvironment(strings.ToLower(cfg.PagBank.Environment))
	if err != nil {
		logg.Error(context.Background(), "invalid provider environment", err)
		os.Exit(1)
	}

	settingsRepo := settings.NewRepository(dbClient.DB())

	connectSvc, err := connect.NewService(connect.ServiceParams{
		Settings:    settingsRepo,
		Environment: environment,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create connect service", err)
		os.Exit(1)
	}

	providerClient, err := pagbank.NewClient(context.Background(), cfg.PagBank, connectSvc, redisClient, paymentMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create provider client", err)
		os.Exit(1)
	}
	connectSvc.BindAPI(providerClient)

	dispatcher := events.NewDispatcher()

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              orders.NewRepository(dbClient.DB()),
		Events:            dispatcher,
		Logger:            logg,
		TransactionRunner: dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	tokensSvc, err := tokens.NewService(tokens.ServiceParams{
		Repo: tokens.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tokens service", err)
		os.Exit(1)
	}

	signer := security.NewSigner(settingsRepo)

	cardGateway, err := gateways.NewCreditCardGateway(gateways.CreditCardParams{
		Config:          cfg.CreditCard,
		Environment:     environment,
		StoreName:       cfg.Store.Name,
		NotificationURL: cfg.Webhook.NotificationURL,
		API:             providerClient,
		Connect:         connectSvc,
		Orders:          ordersSvc,
		Tokens:          tokensSvc,
		Signer:          signer,
		Logger:          logg,
		Metrics:         paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credit card gateway", err)
		os.Exit(1)
	}

	boletoGateway, err := gateways.NewBoletoGateway(gateways.BoletoParams{
		Config:          cfg.Boleto,
		Environment:     environment,
		StoreName:       cfg.Store.Name,
		NotificationURL: cfg.Webhook.NotificationURL,
		API:             providerClient,
		Connect:         connectSvc,
		Orders:          ordersSvc,
		Signer:          signer,
		Logger:          logg,
		Metrics:         paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create boleto gateway", err)
		os.Exit(1)
	}

	pixGateway, err := gateways.NewPixGateway(gateways.PixParams{
		Config:          cfg.Pix,
		Environment:     environment,
		StoreName:       cfg.Store.Name,
		NotificationURL: cfg.Webhook.NotificationURL,
		API:             providerClient,
		Connect:         connectSvc,
		Orders:          ordersSvc,
		Signer:          signer,
		Logger:          logg,
		Metrics:         paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pix gateway", err)
		os.Exit(1)
	}

	registry := gateways.NewRegistry()
	registry.Register(cardGateway)
	registry.Register(boletoGateway)
	registry.Register(pixGateway)

	refunder, err := gateways.NewRefunder(gateways.RefunderParams{
		API:     providerClient,
		Orders:  ordersSvc,
		Logger:  logg,
		Metrics: paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refunder", err)
		os.Exit(1)
	}

	subscriptionsSvc, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:    subscriptions.NewRepository(dbClient.DB()),
		Orders:  ordersSvc,
		Renewer: cardGateway,
		Events:  dispatcher,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	webhookGuard, err := pagbankwebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "pagbank")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookSvc, err := pagbankwebhook.NewService(pagbankwebhook.ServiceParams{
		Orders:  ordersSvc,
		Guard:   webhookGuard,
		Logger:  logg,
		Metrics: paymentMetrics,
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
		"env":         cfg.App.Env,
		"addr":        addr,
		"environment": environment.String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			RedisClient:     redisClient,
			MetricsGatherer: promRegistry,
			Registry:        registry,
			CreditCard:      cardGateway,
			Refunder:        refunder,
			Orders:          ordersSvc,
			Subscriptions:   subscriptionsSvc,
			Connect:         connectSvc,
			ProviderClient:  providerClient,
			Webhooks:        webhookSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
