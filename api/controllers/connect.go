package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/api/responses"
	"github.com/brcommerce/pagbank-gateway/internal/connect"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

// oauthClient is the slice of the provider client the connect flow uses.
type oauthClient interface {
	AuthorizationURL(ctx context.Context, state string) (string, error)
	ExchangeCode(ctx context.Context, state, code string) (*pagbank.OAuthCredentials, error)
}

type connectStatus struct {
	Connected      bool   `json:"connected"`
	Environment    string `json:"environment,omitempty"`
	AccountID      string `json:"account_id,omitempty"`
	Scope          string `json:"scope,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
}

// ConnectStatus reports whether a merchant account is linked. Token
// material never leaves the server.
func ConnectStatus(logg *logger.Logger, svc *connect.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := svc.Data(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if data == nil {
			responses.WriteSuccess(w, connectStatus{Connected: false})
			return
		}
		responses.WriteSuccess(w, connectStatus{
			Connected:      true,
			Environment:    data.Environment.String(),
			AccountID:      data.AccountID,
			Scope:          data.Scope,
			ExpirationDate: data.ExpirationDate.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
}

// ConnectAuthorize starts the merchant consent flow and returns the URL
// the admin should be sent to.
func ConnectAuthorize(logg *logger.Logger, client oauthClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()
		authorizeURL, err := client.AuthorizationURL(r.Context(), state)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"authorization_url": authorizeURL,
			"state":             state,
		})
	}
}

// ConnectCallback finishes the consent flow by trading the authorization
// code for merchant credentials.
func ConnectCallback(logg *logger.Logger, client oauthClient, svc *connect.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if code == "" || state == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "code and state query parameters are required"))
			return
		}

		creds, err := client.ExchangeCode(r.Context(), state, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		data, err := svc.Complete(r.Context(), creds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, connectStatus{
			Connected:      true,
			Environment:    data.Environment.String(),
			AccountID:      data.AccountID,
			Scope:          data.Scope,
			ExpirationDate: data.ExpirationDate.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
}
