package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	pagbankwebhook "github.com/brcommerce/pagbank-gateway/internal/webhooks/pagbank"
	pkgAuth "github.com/brcommerce/pagbank-gateway/pkg/auth"
	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

type stubGateway struct{}

func (stubGateway) ID() enums.GatewayID { return enums.GatewayCreditCard }
func (stubGateway) Title() string       { return "PagBank Cartão de Crédito" }
func (stubGateway) IsAvailable(context.Context, int64, string) bool {
	return true
}
func (stubGateway) ProcessPayment(context.Context, *models.Order, gateways.CheckoutInput) (*gateways.PaymentResult, error) {
	return &gateways.PaymentResult{}, nil
}

type noopOrders struct{}

var _ orders.Service = noopOrders{}

func (noopOrders) Find(context.Context, int64) (*models.Order, error) { return nil, nil }
func (noopOrders) Create(context.Context, *models.Order) error        { return nil }
func (noopOrders) PaymentComplete(context.Context, *models.Order, string, enums.GatewayID) error {
	return nil
}
func (noopOrders) OnHold(context.Context, *models.Order, string, enums.GatewayID) error { return nil }
func (noopOrders) Fail(context.Context, *models.Order, string, enums.GatewayID) error   { return nil }
func (noopOrders) Refunded(context.Context, *models.Order, enums.GatewayID) error       { return nil }
func (noopOrders) GetMeta(context.Context, int64, string) (string, error)               { return "", nil }
func (noopOrders) SetMeta(context.Context, int64, string, string) error                 { return nil }
func (noopOrders) AddFeeItem(context.Context, *models.Order, string, int64) error       { return nil }
func (noopOrders) AddNote(context.Context, int64, string) error                         { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	registry := gateways.NewRegistry()
	registry.Register(stubGateway{})

	webhookSvc, err := pagbankwebhook.NewService(pagbankwebhook.ServiceParams{
		Orders: noopOrders{},
		Logger: logg,
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.App.CORSOrigins = []string{"http://localhost:3000"}
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	cfg.Store.Currency = "BRL"

	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Registry: registry,
		Orders:   noopOrders{},
		Webhooks: webhookSvc,
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"live"`)
}

func TestRouterListsGateways(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/gateways?total=10000", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "PagBank Cartão de Crédito")
}

type failingOrders struct{ noopOrders }

func (failingOrders) Find(context.Context, int64) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "order store unavailable")
}

func TestRouterWebhookRejectsOnBackendFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	webhookSvc, err := pagbankwebhook.NewService(pagbankwebhook.ServiceParams{
		Orders: failingOrders{},
		Logger: logg,
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	cfg.Store.Currency = "BRL"

	router := NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Registry: gateways.NewRegistry(),
		Orders:   failingOrders{},
		Webhooks: webhookSvc,
	})

	payload := `{"reference_id":"{\"id\":501,\"password\":\"pw\"}","charges":[]}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagbank", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestRouterWebhookRejectsMalformedPayload(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/pagbank", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/subscriptions/abc/renew", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterAdminAcceptsValidToken(t *testing.T) {
	router := newTestRouter(t)

	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		Subject: "ops@example.com",
		Role:    pkgAuth.RoleAdmin,
	})
	require.NoError(t, err)

	// Malformed subscription id, so the request clears auth and fails
	// validation inside the controller.
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/subscriptions/abc/renew", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "router-test-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
