package cron

import (
	"context"
	"fmt"

	"github.com/brcommerce/pagbank-gateway/internal/connect"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

// CredentialRefreshJob touches the merchant credential so grants nearing
// expiry are rotated ahead of checkout traffic.
type CredentialRefreshJob struct {
	connect *connect.Service
	logg    *logger.Logger
}

// NewCredentialRefreshJob builds the credential refresh job.
func NewCredentialRefreshJob(svc *connect.Service, logg *logger.Logger) (*CredentialRefreshJob, error) {
	if svc == nil {
		return nil, fmt.Errorf("connect service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CredentialRefreshJob{connect: svc, logg: logg}, nil
}

func (j *CredentialRefreshJob) Name() string { return "credential-refresh" }

func (j *CredentialRefreshJob) Run(ctx context.Context) error {
	data, err := j.connect.Data(ctx)
	if err != nil {
		return err
	}
	if data == nil {
		j.logg.Info(ctx, "no merchant account connected; nothing to refresh")
		return nil
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"account_id": data.AccountID,
		"expires_at": data.ExpirationDate.UTC().Format("2006-01-02"),
	})
	j.logg.Info(ctx, "merchant credential checked")
	return nil
}
