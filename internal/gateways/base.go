package gateways

import (
	"context"
	"strconv"
	"strings"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/payments"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/security"
)

// base carries the collaborators and gating rules shared by the three
// gateways.
type base struct {
	id              enums.GatewayID
	title           string
	enabled         bool
	maxAmountCents  int64
	environment     enums.Environment
	storeName       string
	notificationURL string

	api     providerAPI
	connect connectStore
	orders  orders.Service
	signer  *security.Signer
	logger  *logger.Logger
	metrics *metrics.PaymentMetrics
}

func (b *base) ID() enums.GatewayID {
	return b.id
}

func (b *base) Title() string {
	return b.title
}

// IsAvailable hides the gateway unless it is enabled, the merchant account
// is connected, the store sells in BRL and the cart total clears the
// configured cap.
func (b *base) IsAvailable(ctx context.Context, totalCents int64, currency string) bool {
	if !b.enabled {
		return false
	}
	if !strings.EqualFold(currency, "BRL") {
		return false
	}
	if b.maxAmountCents > 0 && totalCents > b.maxAmountCents {
		return false
	}
	data, err := b.connect.Data(ctx)
	return err == nil && data != nil
}

// prepare regenerates the per-attempt webhook password, signs the order id
// and persists both so the webhook handler can authenticate deliveries.
func (b *base) prepare(ctx context.Context, order *models.Order) (payments.BuildParams, error) {
	password, err := security.GeneratePassword()
	if err != nil {
		return payments.BuildParams{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating order password")
	}
	signature, err := b.signer.SignOrderID(ctx, order.ID)
	if err != nil {
		return payments.BuildParams{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "signing order id")
	}
	order.GatewayID = b.id

	if err := b.orders.SetMeta(ctx, order.ID, orders.MetaPassword, password); err != nil {
		return payments.BuildParams{}, err
	}
	if err := b.orders.SetMeta(ctx, order.ID, orders.MetaEnvironment, b.environment.String()); err != nil {
		return payments.BuildParams{}, err
	}

	return payments.BuildParams{
		Order:           order,
		StoreName:       b.storeName,
		NotificationURL: b.notificationURL,
		Password:        password,
		Signature:       signature,
	}, nil
}

// dispatch submits the request and records the provider order id.
func (b *base) dispatch(ctx context.Context, order *models.Order, req *pagbank.OrderRequest) (*pagbank.OrderResponse, error) {
	ctx = b.logger.WithGateway(b.logger.WithOrderID(ctx, order.ID), b.id.String())

	resp, err := b.api.CreateOrder(ctx, *req)
	if err != nil {
		b.metrics.IncCharge(b.id.String(), "error")
		return nil, err
	}
	if err := b.orders.SetMeta(ctx, order.ID, orders.MetaOrderID, resp.ID); err != nil {
		return nil, err
	}
	return resp, nil
}

func firstCharge(resp *pagbank.OrderResponse) *pagbank.Charge {
	if resp == nil || len(resp.Charges) == 0 {
		return nil
	}
	return &resp.Charges[0]
}

func linkByRel(links []pagbank.Link, media string) string {
	for _, link := range links {
		if strings.EqualFold(link.Media, media) || strings.EqualFold(link.Type, media) {
			return link.Href
		}
	}
	return ""
}

func formatInstallments(count int) string {
	if count < 1 {
		count = 1
	}
	return strconv.Itoa(count)
}
