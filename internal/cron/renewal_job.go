package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

const defaultRenewalBatchSize = 100

// RenewalJob charges every subscription whose next payment has come due.
type RenewalJob struct {
	subs      subscriptions.Service
	logg      *logger.Logger
	batchSize int
}

// NewRenewalJob builds the renewal sweep job.
func NewRenewalJob(subs subscriptions.Service, logg *logger.Logger, batchSize int) (*RenewalJob, error) {
	if subs == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if batchSize <= 0 {
		batchSize = defaultRenewalBatchSize
	}
	return &RenewalJob{subs: subs, logg: logg, batchSize: batchSize}, nil
}

func (j *RenewalJob) Name() string { return "subscription-renewals" }

func (j *RenewalJob) Run(ctx context.Context) error {
	result, err := j.subs.RenewDue(ctx, time.Now().UTC(), j.batchSize)
	if err != nil {
		return err
	}
	ctx = j.logg.WithFields(ctx, map[string]any{
		"due":     result.Due,
		"renewed": result.Renewed,
		"failed":  result.Failed,
	})
	j.logg.Info(ctx, "renewal sweep finished")
	return nil
}
