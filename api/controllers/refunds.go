package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/brcommerce/pagbank-gateway/api/responses"
	"github.com/brcommerce/pagbank-gateway/api/validators"
	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

type refundRequest struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

// AdminRefund sends part or all of an order's payment back to the buyer.
func AdminRefund(logg *logger.Logger, refunder *gateways.Refunder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil || orderID <= 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order id must be a positive integer"))
			return
		}

		var req refundRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := refunder.Refund(r.Context(), orderID, req.AmountCents); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id":     orderID,
			"amount_cents": req.AmountCents,
			"refunded":     true,
		})
	}
}
