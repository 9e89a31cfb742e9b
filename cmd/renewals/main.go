package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brcommerce/pagbank-gateway/internal/connect"
	"github.com/brcommerce/pagbank-gateway/internal/cron"
	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/settings"
	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	"github.com/brcommerce/pagbank-gateway/internal/tokens"
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

const (
	lockKeyFormat = "pb:renewals:lock:%s"
	sweepInterval = time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "renewals"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "renewals",
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

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

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

	cardGateway, err := gateways.NewCreditCardGateway(gateways.CreditCardParams{
		Config:          cfg.CreditCard,
		Environment:     environment,
		StoreName:       cfg.Store.Name,
		NotificationURL: cfg.Webhook.NotificationURL,
		API:             providerClient,
		Connect:         connectSvc,
		Orders:          ordersSvc,
		Tokens:          tokensSvc,
		Signer:          security.NewSigner(settingsRepo),
		Logger:          logg,
		Metrics:         paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create credit card gateway", err)
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

	renewalJob, err := cron.NewRenewalJob(subscriptionsSvc, logg, 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create renewal job", err)
		os.Exit(1)
	}
	refreshJob, err := cron.NewCredentialRefreshJob(connectSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create credential refresh job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(refreshJob, renewalJob),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: sweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"environment": environment.String(),
	})
	logg.Info(ctx, "starting renewals worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "renewals worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "renewals worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
