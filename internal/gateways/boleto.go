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

// BoletoGateway issues bank slips. The order waits on-hold until the
// provider reports payment via webhook.
type BoletoGateway struct {
	base
	cfg config.BoletoConfig
}

// BoletoParams groups dependencies for the boleto gateway.
type BoletoParams struct {
	Config          config.BoletoConfig
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

// NewBoletoGateway constructs the boleto gateway.
func NewBoletoGateway(params BoletoParams) (*BoletoGateway, error) {
	if params.API == nil || params.Connect == nil || params.Orders == nil ||
		params.Signer == nil || params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "boleto gateway dependencies missing")
	}
	return &BoletoGateway{
		base: base{
			id:              enums.GatewayBoleto,
			title:           "PagBank Boleto",
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

// ProcessPayment issues the boleto and parks the order on hold.
func (g *BoletoGateway) ProcessPayment(ctx context.Context, order *models.Order, _ CheckoutInput) (*PaymentResult, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	ctx = g.logger.WithGateway(g.logger.WithOrderID(ctx, order.ID), g.id.String())

	if payments.TaxID(order) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "CPF ou CNPJ é obrigatório para boleto")
	}

	params, err := g.prepare(ctx, order)
	if err != nil {
		return nil, err
	}
	req, err := payments.BuildBoletoOrder(params, g.cfg.ExpirationDays, time.Now())
	if err != nil {
		return nil, err
	}

	resp, err := g.dispatch(ctx, order, req)
	if err != nil {
		return nil, err
	}

	charge := firstCharge(resp)
	if charge == nil || charge.PaymentMethod.Boleto == nil {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider response carried no boleto")
	}
	status, err := enums.ParseChargeStatus(charge.Status)
	if err != nil {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider returned unknown charge status")
	}

	details := &BoletoDetails{
		Barcode:          charge.PaymentMethod.Boleto.Barcode,
		FormattedBarcode: charge.PaymentMethod.Boleto.FormattedBarcode,
		DueDate:          charge.PaymentMethod.Boleto.DueDate,
		PDFLink:          linkByRel(charge.Links, "application/pdf"),
		ImageLink:        linkByRel(charge.Links, "image/png"),
	}
	if err := g.persistBoletoMeta(ctx, order, charge.ID, details); err != nil {
		return nil, err
	}

	g.metrics.IncCharge(g.id.String(), "waiting")
	if err := g.orders.OnHold(ctx, order, "PagBank: aguardando pagamento do boleto.", g.id); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Gateway:         g.id,
		OrderID:         order.ID,
		OrderStatus:     order.Status,
		ProviderOrderID: resp.ID,
		ChargeID:        charge.ID,
		ChargeStatus:    status,
		Boleto:          details,
	}, nil
}

func (g *BoletoGateway) persistBoletoMeta(ctx context.Context, order *models.Order, chargeID string, details *BoletoDetails) error {
	writes := map[string]string{
		orders.MetaChargeID:      chargeID,
		orders.MetaBoletoBarcode: details.Barcode,
		orders.MetaBoletoDueDate: details.DueDate,
	}
	if details.PDFLink != "" {
		writes[orders.MetaBoletoPDFLink] = details.PDFLink
	}
	if details.ImageLink != "" {
		writes[orders.MetaBoletoImageLink] = details.ImageLink
	}
	for key, value := range writes {
		if err := g.orders.SetMeta(ctx, order.ID, key, value); err != nil {
			return err
		}
	}
	return nil
}
