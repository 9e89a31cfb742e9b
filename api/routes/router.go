package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brcommerce/pagbank-gateway/api/controllers"
	"github.com/brcommerce/pagbank-gateway/api/middleware"
	"github.com/brcommerce/pagbank-gateway/internal/connect"
	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	pagbankwebhook "github.com/brcommerce/pagbank-gateway/internal/webhooks/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/auth"
	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	Readiness       map[string]controllers.Pinger
	RedisClient     *redis.Client
	MetricsGatherer prometheus.Gatherer

	Registry       *gateways.Registry
	CreditCard     *gateways.CreditCardGateway
	Refunder       *gateways.Refunder
	Orders         orders.Service
	Subscriptions  subscriptions.Service
	Connect        *connect.Service
	ProviderClient *pagbank.Client
	Webhooks       *pagbankwebhook.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A typed nil inside the interface would defeat the middlewares' own
	// nil checks.
	var idemStore redis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	if deps.RedisClient != nil {
		idemStore = deps.RedisClient
		rateStore = deps.RedisClient
	}

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutIPLimit, 0,
	)
	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookIPLimit, cfg.RateLimit.WebhookOrder,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(logg, deps.Readiness))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, rateStore, logg)).
			Post("/pagbank", controllers.PagBankWebhook(logg, deps.Webhooks))
	})

	r.Get("/api/v1/checkout/gateways", controllers.CheckoutGateways(logg, deps.Registry, cfg.Store.Currency))
	r.Get("/api/v1/checkout/installments", controllers.CheckoutInstallments(logg, deps.CreditCard))
	r.With(
		middleware.RateLimit(checkoutPolicy, rateStore, logg),
		middleware.Idempotency(idemStore, logg),
	).Post("/api/v1/checkout", controllers.Checkout(logg, deps.Registry, deps.Orders, deps.Subscriptions, cfg.Store.Currency))

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(auth.RoleAdmin, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/connect", func(r chi.Router) {
			r.Get("/", controllers.ConnectStatus(logg, deps.Connect))
			r.Post("/authorize", controllers.ConnectAuthorize(logg, deps.ProviderClient))
			r.Get("/callback", controllers.ConnectCallback(logg, deps.ProviderClient, deps.Connect))
		})
		r.Post("/orders/{orderID}/refund", controllers.AdminRefund(logg, deps.Refunder))
		r.Post("/subscriptions/{subscriptionID}/renew", controllers.AdminRenewSubscription(logg, deps.Subscriptions))
	})

	return r
}
