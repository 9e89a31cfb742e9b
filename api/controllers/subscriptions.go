package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/api/responses"
	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

// AdminRenewSubscription charges a subscription's vaulted card out of
// schedule, for support-driven retries.
func AdminRenewSubscription(logg *logger.Logger, subs subscriptions.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "subscriptionID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid subscription id"))
			return
		}

		sub, err := subs.Renew(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}
