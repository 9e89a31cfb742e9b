package gateways

import (
	"context"
	"time"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/payments"
	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
	"github.com/brcommerce/pagbank-gateway/pkg/security"
)

// PixGateway creates Pix QR codes. Payment confirmation always arrives via
// webhook.
type PixGateway struct {
	base
	cfg config.PixConfig
}

// PixParams groups dependencies for the Pix gateway.
type PixParams struct {
	Config          config.PixConfig
	Environment     enums.Environment
	StoreName       string
	NotificationURL string
	API             providerAPI
	Connect         connectStore
	Orders          orders.Service
	Signer          *security.Signer
	Logger          *logger.Logger
	Metrics         *metrics.PaymentMetrics
}

// NewPixGateway constructs the Pix gateway.
func NewPixGateway(params PixParams) (*PixGateway, error) {
	if params.API == nil || params.Connect == nil || params.Orders == nil ||
		params.Signer == nil || params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pix gateway dependencies missing")
	}
	return &PixGateway{
		base: base{
			id:              enums.GatewayPix,
			title:           "PagBank Pix",
			enabled:         params.Config.Enabled,
			maxAmountCents:  params.Config.MaxAmountCents,
			environment:     params.Environment,
			storeName:       params.StoreName,
			notificationURL: params.NotificationURL,
			api:             params.API,
			connect:         params.Connect,
			orders:          params.Orders,
			signer:          params.Signer,
			logger:          params.Logger,
			metrics:         params.Metrics,
		},
		cfg: params.Config,
	}, nil
}

// ProcessPayment creates the QR code and parks the order on hold.
func (g *PixGateway) ProcessPayment(ctx context.Context, order *models.Order, _ CheckoutInput) (*PaymentResult, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	ctx = g.logger.WithGateway(g.logger.WithOrderID(ctx, order.ID), g.id.String())

	params, err := g.prepare(ctx, order)
	if err != nil {
		return nil, err
	}
	req, err := payments.BuildPixOrder(params, g.cfg.ExpirationMinutes, time.Now())
	if err != nil {
		return nil, err
	}

	resp, err := g.dispatch(ctx, order, req)
	if err != nil {
		return nil, err
	}

	if len(resp.QRCodes) == 0 {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider response carried no qr code")
	}
	qr := resp.QRCodes[0]

	details := &PixDetails{
		QRCodeText:  qr.Text,
		QRCodeImage: linkByRel(qr.Links, "image/png"),
		ExpiresAt:   qr.ExpirationDate,
	}
	if err := g.persistPixMeta(ctx, order, details); err != nil {
		return nil, err
	}

	g.metrics.IncCharge(g.id.String(), "waiting")
	if err := g.orders.OnHold(ctx, order, "PagBank: aguardando pagamento do Pix.", g.id); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Gateway:         g.id,
		OrderID:         order.ID,
		OrderStatus:     order.Status,
		ProviderOrderID: resp.ID,
		ChargeStatus:    enums.ChargeStatusWaiting,
		Pix:             details,
	}, nil
}

func (g *PixGateway) persistPixMeta(ctx context.Context, order *models.Order, details *PixDetails) error {
	writes := map[string]string{
		orders.MetaPixQRCodeText: details.QRCodeText,
		orders.MetaPixExpiresAt:  details.ExpiresAt,
	}
	if details.QRCodeImage != "" {
		writes[orders.MetaPixQRCodeImage] = details.QRCodeImage
	}
	for key, value := range writes {
		if err := g.orders.SetMeta(ctx, order.ID, key, value); err != nil {
			return err
		}
	}
	return nil
}
