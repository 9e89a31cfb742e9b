package gateways

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/internal/payments"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
)

// Renew charges a vaulted card for a subscription renewal order. Anything
// but an immediate PAID is a renewal failure, the caller drives the
// subscription failure path.
func (g *CreditCardGateway) Renew(ctx context.Context, order *models.Order, customerID, tokenID uuid.UUID) (*PaymentResult, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	ctx = g.logger.WithGateway(g.logger.WithOrderID(ctx, order.ID), g.id.String())

	connectData, err := g.connect.Data(ctx)
	if err != nil {
		return nil, err
	}
	if connectData == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "pagbank account is not connected")
	}

	token, err := g.tokens.Resolve(ctx, tokenID, customerID, connectData.AccountID)
	if err != nil {
		return nil, err
	}

	params, err := g.prepare(ctx, order)
	if err != nil {
		return nil, err
	}
	req, err := payments.BuildRenewalOrder(params, token.ProviderTokenID, token.HolderName)
	if err != nil {
		return nil, err
	}

	resp, err := g.dispatch(ctx, order, req)
	if err != nil {
		return nil, err
	}

	charge := firstCharge(resp)
	if charge == nil {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider response carried no charge")
	}
	status, err := enums.ParseChargeStatus(charge.Status)
	if err != nil {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider returned unknown charge status")
	}
	if status != enums.ChargeStatusPaid && status != enums.ChargeStatusAuthorized {
		g.metrics.IncCharge(g.id.String(), "declined")
		return nil, pkgerrors.New(pkgerrors.CodeDeclined,
			fmt.Sprintf("renewal charge ended in status %s", status))
	}

	g.metrics.IncCharge(g.id.String(), "paid")
	if err := g.orders.PaymentComplete(ctx, order, charge.ID, g.id); err != nil {
		return nil, err
	}

	return &PaymentResult{
		Gateway:         g.id,
		OrderID:         order.ID,
		OrderStatus:     order.Status,
		ProviderOrderID: resp.ID,
		ChargeID:        charge.ID,
		ChargeStatus:    status,
	}, nil
}
