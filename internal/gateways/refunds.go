package gateways

import (
	"context"
	"fmt"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
	"github.com/brcommerce/pagbank-gateway/pkg/money"
)

// RefundVeto can forbid a refund before any provider call, e.g. when vendor
// commissions were already disbursed for the order.
type RefundVeto func(ctx context.Context, order *models.Order, amountCents int64) error

// Refunder cancels charges. A CANCELED provider status is refund success;
// anything else fails.
type Refunder struct {
	api     providerAPI
	orders  orders.Service
	logger  *logger.Logger
	metrics *metrics.PaymentMetrics
	vetoes  []RefundVeto
}

// RefunderParams groups dependencies for the refund service.
type RefunderParams struct {
	API     providerAPI
	Orders  orders.Service
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
	Vetoes  []RefundVeto
}

// NewRefunder constructs a refund service.
func NewRefunder(params RefunderParams) (*Refunder, error) {
	if params.API == nil || params.Orders == nil || params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunder dependencies missing")
	}
	return &Refunder{
		api:     params.API,
		orders:  params.Orders,
		logger:  params.Logger,
		metrics: params.Metrics,
		vetoes:  params.Vetoes,
	}, nil
}

// Refund cancels amountCents of the order's charge.
func (r *Refunder) Refund(ctx context.Context, orderID int64, amountCents int64) error {
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	order, err := r.orders.Find(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if amountCents > order.TotalCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "refund amount exceeds order total")
	}

	chargeID, err := r.orders.GetMeta(ctx, orderID, orders.MetaChargeID)
	if err != nil {
		return err
	}
	if chargeID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order has no charge to refund")
	}

	for _, veto := range r.vetoes {
		if veto == nil {
			continue
		}
		if err := veto(ctx, order, amountCents); err != nil {
			return err
		}
	}

	ctx = r.logger.WithOrderID(ctx, orderID)
	charge, err := r.api.CancelCharge(ctx, chargeID, amountCents)
	if err != nil {
		r.metrics.IncRefund("error")
		return err
	}
	if charge.Status != enums.ChargeStatusCanceled.String() {
		r.metrics.IncRefund("failed")
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("refund ended in status %s", charge.Status))
	}

	r.metrics.IncRefund("success")
	if amountCents == order.TotalCents {
		return r.orders.Refunded(ctx, order, order.GatewayID)
	}
	return r.orders.AddNote(ctx, orderID, fmt.Sprintf(
		"PagBank: reembolso parcial de %s efetuado.", money.FormatBRL(amountCents)))
}
