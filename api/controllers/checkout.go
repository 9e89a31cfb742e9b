package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/api/responses"
	"github.com/brcommerce/pagbank-gateway/api/validators"
	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

type checkoutRequest struct {
	OrderID    int64  `json:"order_id" validate:"required,gt=0"`
	Gateway    string `json:"gateway" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required,uuid4"`

	EncryptedCard string `json:"encrypted_card,omitempty"`
	CardHolder    string `json:"card_holder,omitempty"`
	CardBin       string `json:"card_bin,omitempty"`
	SecurityCode  string `json:"security_code,omitempty"`
	SavedTokenID  string `json:"saved_token_id,omitempty" validate:"omitempty,uuid4"`
	SaveCard      bool   `json:"save_card,omitempty"`
	Installments  int    `json:"installments,omitempty" validate:"omitempty,gte=1"`

	IsSubscription bool `json:"is_subscription,omitempty"`
}

type gatewayOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Checkout runs a payment attempt for an existing pending order.
func Checkout(logg *logger.Logger, registry *gateways.Registry, orderSvc orders.Service, subs subscriptions.Service, currency string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gatewayID, err := enums.ParseGatewayID(req.Gateway)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown payment gateway"))
			return
		}
		gateway, ok := registry.Get(gatewayID)
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "payment gateway is not configured"))
			return
		}

		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}
		var savedTokenID uuid.UUID
		if req.SavedTokenID != "" {
			savedTokenID, err = uuid.Parse(req.SavedTokenID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid saved token id"))
				return
			}
		}

		order, err := orderSvc.Find(r.Context(), req.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if order == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		if !gateway.IsAvailable(r.Context(), order.TotalCents, currency) {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "payment gateway unavailable for this order"))
			return
		}

		result, err := gateway.ProcessPayment(r.Context(), order, gateways.CheckoutInput{
			CustomerID:     customerID,
			EncryptedCard:  req.EncryptedCard,
			CardHolder:     req.CardHolder,
			CardBin:        req.CardBin,
			SecurityCode:   req.SecurityCode,
			SavedTokenID:   savedTokenID,
			SaveCard:       req.SaveCard,
			Installments:   req.Installments,
			IsSubscription: req.IsSubscription,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if req.IsSubscription && subs != nil {
			attachVaultedToken(r.Context(), logg, orderSvc, subs, order.ID)
		}

		responses.WriteSuccess(w, result)
	}
}

// attachVaultedToken links the card vaulted during the first charge of a
// recurring agreement to the subscription it created. Renewals fail on a
// missing token, so a broken link here is logged rather than failing the
// already-captured payment.
func attachVaultedToken(ctx context.Context, logg *logger.Logger, orderSvc orders.Service, subs subscriptions.Service, orderID int64) {
	raw, err := orderSvc.GetMeta(ctx, orderID, orders.MetaPaymentToken)
	if err != nil || raw == "" {
		return
	}
	tokenID, err := uuid.Parse(raw)
	if err != nil {
		logg.Error(logg.WithOrderID(ctx, orderID), "stored payment token id is malformed", err)
		return
	}
	if err := subs.AttachToken(ctx, orderID, tokenID); err != nil {
		logg.Error(logg.WithOrderID(ctx, orderID), "failed to attach payment token to subscription", err)
	}
}

// CheckoutGateways lists the gateways offered for a cart total.
func CheckoutGateways(logg *logger.Logger, registry *gateways.Registry, currency string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := parseQueryCents(r, "total")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		available := registry.Available(r.Context(), total, currency)
		options := make([]gatewayOption, 0, len(available))
		for _, gateway := range available {
			options = append(options, gatewayOption{ID: gateway.ID().String(), Title: gateway.Title()})
		}
		responses.WriteSuccess(w, options)
	}
}

// CheckoutInstallments quotes the installment plans for a cart total.
func CheckoutInstallments(logg *logger.Logger, card *gateways.CreditCardGateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := parseQueryCents(r, "total")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var customerID, savedTokenID uuid.UUID
		if raw := r.URL.Query().Get("customer_id"); raw != "" {
			customerID, err = uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
				return
			}
		}
		if raw := r.URL.Query().Get("saved_token_id"); raw != "" {
			savedTokenID, err = uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid saved token id"))
				return
			}
		}

		options, err := card.InstallmentOptions(r.Context(), customerID, total, r.URL.Query().Get("bin"), savedTokenID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

func parseQueryCents(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter is required").WithDetails(map[string]any{"field": key})
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a positive amount in cents").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
