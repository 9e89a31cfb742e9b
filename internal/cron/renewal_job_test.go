package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brcommerce/pagbank-gateway/internal/subscriptions"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

type stubSubscriptions struct {
	result subscriptions.SweepResult
	err    error

	gotLimit int
	gotNow   time.Time
}

var _ subscriptions.Service = (*stubSubscriptions)(nil)

func (s *stubSubscriptions) Create(context.Context, *models.Subscription) error { return nil }
func (s *stubSubscriptions) Find(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}
func (s *stubSubscriptions) AttachToken(context.Context, int64, uuid.UUID) error { return nil }
func (s *stubSubscriptions) Renew(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}
func (s *stubSubscriptions) RenewDue(_ context.Context, now time.Time, limit int) (subscriptions.SweepResult, error) {
	s.gotNow = now
	s.gotLimit = limit
	return s.result, s.err
}

func TestRenewalJobSweepsDueSubscriptions(t *testing.T) {
	subs := &stubSubscriptions{result: subscriptions.SweepResult{Due: 3, Renewed: 2, Failed: 1}}
	job, err := NewRenewalJob(subs, testLogger(), 0)
	require.NoError(t, err)

	require.Equal(t, "subscription-renewals", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, defaultRenewalBatchSize, subs.gotLimit)
	require.WithinDuration(t, time.Now().UTC(), subs.gotNow, time.Minute)
}

func TestRenewalJobPropagatesSweepError(t *testing.T) {
	subs := &stubSubscriptions{err: errors.New("listing due subscriptions")}
	job, err := NewRenewalJob(subs, testLogger(), 25)
	require.NoError(t, err)

	require.Error(t, job.Run(context.Background()))
	require.Equal(t, 25, subs.gotLimit)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test"})
}
