package pagbank

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	feeCacheTTL    = 15 * time.Minute
	oauthStateTTL  = 15 * time.Minute
)

var (
	errLoggerRequired      = errors.New("pagbank logger is required")
	errStoreRequired       = errors.New("pagbank state store is required")
	errUnknownApplication  = errors.New("unknown pagbank application id")
	errEnvironmentMismatch = errors.New("application does not belong to the configured environment")
)

var apiBaseURLs = map[enums.Environment]string{
	enums.EnvironmentSandbox:    "https://sandbox.api.pagseguro.com",
	enums.EnvironmentProduction: "https://api.pagseguro.com",
}

var connectBaseURLs = map[enums.Environment]string{
	enums.EnvironmentSandbox:    "https://connect.sandbox.pagseguro.uol.com.br",
	enums.EnvironmentProduction: "https://connect.pagseguro.uol.com.br",
}

// TokenSource yields a currently valid merchant access token. Implemented by
// the connect credential service, which refreshes tokens behind the scenes.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Store is the redis surface the client needs: TTL caching for fee
// responses and transient OAuth authorization state.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(scope, id string) string
	OAuthStateKey(state string) string
}

// Client talks to the provider REST API with centralized auth, logging,
// caching and error mapping.
type Client struct {
	httpClient  *http.Client
	environment enums.Environment
	app         Application
	redirectURL string
	apiBase     string
	connectBase string
	tokens      TokenSource
	store       Store
	metrics     *metrics.PaymentMetrics
	logger      *logger.Logger
}

// NewClient initializes the provider wrapper and validates the application.
func NewClient(ctx context.Context, cfg config.PagBankConfig, tokens TokenSource, store Store, m *metrics.PaymentMetrics, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if store == nil {
		return nil, errStoreRequired
	}
	env, err := enums.ParseEnvironment(strings.TrimSpace(strings.ToLower(cfg.Environment)))
	if err != nil {
		return nil, err
	}

	app, ok := FindApplication(strings.TrimSpace(cfg.ApplicationID))
	if !ok {
		return nil, errUnknownApplication
	}
	if app.Environment != env {
		return nil, errEnvironmentMismatch
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: requestTimeout},
		environment: env,
		app:         app,
		redirectURL: strings.TrimSpace(cfg.RedirectURL),
		apiBase:     apiBaseURLs[env],
		connectBase: connectBaseURLs[env],
		tokens:      tokens,
		store:       store,
		metrics:     m,
		logger:      logg,
	}

	logg.Info(ctx, "pagbank client initialized")
	return c, nil
}

// Environment reports the configured provider environment.
func (c *Client) Environment() enums.Environment {
	if c == nil {
		return ""
	}
	return c.environment
}

// Application returns the configured connect application.
func (c *Client) Application() Application {
	if c == nil {
		return Application{}
	}
	return c.app
}

// CreateOrder submits an order with its charge (or qr code) to the provider.
// Anything but 201 is an error.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderResponse, error) {
	c.log(ctx, "request", "create_order", map[string]any{
		"reference_id": req.ReferenceID,
		"items":        len(req.Items),
		"charges":      len(req.Charges),
		"qr_codes":     len(req.QRCodes),
	})

	var resp OrderResponse
	if err := c.doMerchant(ctx, http.MethodPost, c.apiBase+"/orders", req, http.StatusCreated, &resp, "create_order"); err != nil {
		return nil, err
	}

	fields := map[string]any{"order_id": resp.ID}
	if len(resp.Charges) > 0 {
		fields["charge_id"] = resp.Charges[0].ID
		fields["status"] = resp.Charges[0].Status
	}
	c.log(ctx, "response", "create_order", fields)
	return &resp, nil
}

// CancelCharge refunds (fully or partially) a charge. The provider answers
// 201 with the charge snapshot; refund success is its CANCELED status.
func (c *Client) CancelCharge(ctx context.Context, chargeID string, amountCents int64) (*Charge, error) {
	c.log(ctx, "request", "cancel_charge", map[string]any{
		"charge_id": chargeID,
		"amount":    amountCents,
	})

	body := map[string]any{"amount": map[string]any{"value": amountCents}}
	endpoint := fmt.Sprintf("%s/charges/%s/cancel", c.apiBase, url.PathEscape(chargeID))

	var resp Charge
	if err := c.doMerchant(ctx, http.MethodPost, endpoint, body, http.StatusCreated, &resp, "cancel_charge"); err != nil {
		return nil, err
	}

	c.log(ctx, "response", "cancel_charge", map[string]any{
		"charge_id": resp.ID,
		"status":    resp.Status,
	})
	return &resp, nil
}

// FeeParams describes a fee calculation request. Exactly one of CardBin or
// CardTokenID should be set.
type FeeParams struct {
	ValueCents                int64
	MaxInstallments           int
	MaxInstallmentsNoInterest int
	CardBin                   string
	CardTokenID               string
}

// CalculateFees fetches installment plans for a card and amount. Responses
// are cached for 15 minutes keyed by the hash of the full request URL.
func (c *Client) CalculateFees(ctx context.Context, params FeeParams) (*FeesResponse, error) {
	query := url.Values{}
	query.Set("payment_methods", "CREDIT_CARD")
	query.Set("value", strconv.FormatInt(params.ValueCents, 10))
	if params.MaxInstallments > 0 {
		query.Set("max_installments", strconv.Itoa(params.MaxInstallments))
	}
	if params.MaxInstallmentsNoInterest > 0 {
		query.Set("max_installments_no_interest", strconv.Itoa(params.MaxInstallmentsNoInterest))
	}
	if params.CardBin != "" {
		query.Set("credit_card_bin", params.CardBin)
	}
	if params.CardTokenID != "" {
		query.Set("credit_card_token", params.CardTokenID)
	}
	endpoint := c.apiBase + "/charges/fees/calculate?" + query.Encode()

	sum := sha256.Sum256([]byte(endpoint))
	cacheKey := c.store.CacheKey("fees", hex.EncodeToString(sum[:]))

	if cached, err := c.store.Get(ctx, cacheKey); err == nil && cached != "" {
		var resp FeesResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			c.log(ctx, "response", "calculate_fees", map[string]any{"cache": "hit"})
			return &resp, nil
		}
	}

	c.log(ctx, "request", "calculate_fees", map[string]any{"value": params.ValueCents})

	raw, err := c.doMerchantRaw(ctx, http.MethodGet, endpoint, nil, http.StatusOK, "calculate_fees")
	if err != nil {
		return nil, err
	}

	var resp FeesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "pagbank calculate_fees returned malformed body")
	}

	// Cache failures only cost the next caller a round trip.
	_ = c.store.Set(ctx, cacheKey, string(raw), feeCacheTTL)

	c.log(ctx, "response", "calculate_fees", map[string]any{"cache": "miss"})
	return &resp, nil
}

// CreatePublicKey asks the provider for the card-encryption public key
// bound to the given merchant access token.
func (c *Client) CreatePublicKey(ctx context.Context, accessToken string) (*PublicKeyResponse, error) {
	c.log(ctx, "request", "create_public_key", nil)

	var resp PublicKeyResponse
	err := c.do(ctx, http.MethodPost, c.apiBase+"/public-keys", "Bearer "+accessToken,
		map[string]string{"type": "card"}, http.StatusOK, &resp, "create_public_key")
	if err != nil {
		return nil, err
	}

	c.log(ctx, "response", "create_public_key", nil)
	return &resp, nil
}

func (c *Client) doMerchant(ctx context.Context, method, endpoint string, body any, want int, out any, op string) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "pagbank account is not connected")
	}
	return c.do(ctx, method, endpoint, "Bearer "+token, body, want, out, op)
}

func (c *Client) doMerchantRaw(ctx context.Context, method, endpoint string, body any, want int, op string) ([]byte, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "pagbank account is not connected")
	}
	return c.doRaw(ctx, method, endpoint, "Bearer "+token, body, want, op)
}

func (c *Client) do(ctx context.Context, method, endpoint, auth string, body any, want int, out any, op string) error {
	raw, err := c.doRaw(ctx, method, endpoint, auth, body, want, op)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("pagbank %s returned malformed body", op))
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, endpoint, auth string, body any, want int, op string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encoding pagbank %s request", op))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("building pagbank %s request", op))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveProviderRequest(op, time.Since(started))
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("pagbank %s failed", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("reading pagbank %s response", op))
	}

	if resp.StatusCode != want {
		providerErr := c.mapProviderError(resp.StatusCode, raw, op)
		c.log(ctx, "error", op, map[string]any{
			"status": resp.StatusCode,
			"error":  providerErr.Error(),
		})
		return nil, providerErr
	}

	return raw, nil
}

func (c *Client) mapProviderError(status int, raw []byte, op string) error {
	code := domainCodeForStatus(status)

	var envelope ErrorResponse
	detail := ""
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.ErrorMessages) > 0 {
		first := envelope.ErrorMessages[0]
		detail = strings.TrimSpace(first.Description)
		if first.ParameterName != "" {
			detail = fmt.Sprintf("%s (%s)", detail, first.ParameterName)
		}
	}

	message := fmt.Sprintf("pagbank %s failed with status %d", op, status)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	return pkgerrors.New(code, message)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("pagbank %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("pagbank %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "token", "cvv", "security_code", "secret", "encrypted", "email", "phone", "code"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusPaymentRequired:
		return pkgerrors.CodeDeclined
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
