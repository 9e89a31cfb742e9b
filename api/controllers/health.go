package controllers

import (
	"context"
	"net/http"

	"github.com/brcommerce/pagbank-gateway/api/responses"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

// Pinger mirrors the health checks the backing stores expose.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing stores answer before reporting ready.
func HealthReady(logg *logger.Logger, dependencies map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for name, dependency := range dependencies {
			if dependency == nil {
				continue
			}
			if err := dependency.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
