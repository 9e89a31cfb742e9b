package controllers

import (
	"io"
	"net/http"

	"github.com/brcommerce/pagbank-gateway/api/responses"
	pagbankwebhook "github.com/brcommerce/pagbank-gateway/internal/webhooks/pagbank"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

const maxWebhookBodyBytes = 1 << 20

// PagBankWebhook ingests provider payment notifications. Rejections are
// reported as 400 regardless of cause so the endpoint leaks nothing about
// which orders exist or how they are protected.
func PagBankWebhook(logg *logger.Logger, svc *pagbankwebhook.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading webhook payload"))
			return
		}

		result, err := svc.Process(r.Context(), body)
		if err != nil {
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				err = pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook rejected")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
