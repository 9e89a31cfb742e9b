package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/internal/gateways"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/events"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

// maxFailures is how many consecutive declined renewals a subscription
// survives before it is parked on hold instead of past due.
const maxFailures = 3

// renewer charges a renewal order against a vaulted card.
type renewer interface {
	Renew(ctx context.Context, order *models.Order, customerID, tokenID uuid.UUID) (*gateways.PaymentResult, error)
}

// Service drives subscription renewals. Each renewal creates a fresh order
// from the parent and charges the vaulted token; failures advance the
// failure counter until the subscription is parked on hold.
type Service interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Find(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	AttachToken(ctx context.Context, parentOrderID int64, tokenID uuid.UUID) error
	Renew(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	RenewDue(ctx context.Context, now time.Time, limit int) (SweepResult, error)
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo    Repository
	Orders  orders.Service
	Renewer renewer
	Events  *events.Dispatcher
	Logger  *logger.Logger
}

// SweepResult summarizes one renewal sweep.
type SweepResult struct {
	Due     int
	Renewed int
	Failed  int
}

type service struct {
	repo    Repository
	orders  orders.Service
	renewer renewer
	events  *events.Dispatcher
	logger  *logger.Logger
}

// NewService constructs a subscription service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscriptions repo required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Renewer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "renewer required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event dispatcher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		renewer: params.Renewer,
		events:  params.Events,
		logger:  params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, sub *models.Subscription) error {
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	if sub.TotalCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription total must not be negative")
	}
	if sub.IntervalDays < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription interval must be at least one day")
	}
	if sub.Status == "" {
		sub.Status = enums.SubscriptionStatusActive
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating subscription")
	}
	return nil
}

func (s *service) Find(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading subscription")
	}
	return sub, nil
}

func (s *service) AttachToken(ctx context.Context, parentOrderID int64, tokenID uuid.UUID) error {
	if err := s.repo.AttachToken(ctx, parentOrderID, tokenID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attaching payment token")
	}
	return nil
}

// Renew charges the subscription once. On success the next payment date
// advances by the interval and the failure counter resets; on a declined or
// errored charge the failure path runs and the charge error is returned.
func (s *service) Renew(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if sub.Status == enums.SubscriptionStatusCancelled || sub.Status == enums.SubscriptionStatusExpired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("subscription is %s and cannot renew", sub.Status))
	}
	if sub.PaymentTokenID == nil {
		return sub, s.fail(ctx, sub, 0,
			pkgerrors.New(pkgerrors.CodeValidation, "subscription has no vaulted card"))
	}

	parent, err := s.orders.Find(ctx, sub.ParentOrderID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "parent order not found")
	}

	order := renewalOrder(parent, sub)
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	ctx = s.logger.WithFields(ctx, map[string]any{"subscription_id": sub.ID.String()})
	result, err := s.renewer.Renew(ctx, order, sub.CustomerID, *sub.PaymentTokenID)
	if err != nil {
		return sub, s.fail(ctx, sub, order.ID, err)
	}

	sub.Status = enums.SubscriptionStatusActive
	sub.FailureCount = 0
	sub.NextPaymentAt = nextPayment(sub.NextPaymentAt, sub.IntervalDays, time.Now())
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating subscription")
	}

	s.logger.Info(ctx, "subscription renewed")
	s.events.Publish(ctx, events.TypeRenewalComplete, events.SubscriptionEvent{
		SubscriptionID: sub.ID.String(),
		OrderID:        result.OrderID,
	})
	return sub, nil
}

// RenewDue sweeps subscriptions whose next payment date has passed.
// Individual failures do not stop the sweep.
func (s *service) RenewDue(ctx context.Context, now time.Time, limit int) (SweepResult, error) {
	due, err := s.repo.ListDue(ctx, now, limit)
	if err != nil {
		return SweepResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing due subscriptions")
	}

	result := SweepResult{Due: len(due)}
	for _, sub := range due {
		if _, err := s.Renew(ctx, sub.ID); err != nil {
			result.Failed++
			failCtx := s.logger.WithFields(ctx, map[string]any{
				"subscription_id": sub.ID.String(),
				"error":           err.Error(),
			})
			s.logger.Warn(failCtx, "subscription renewal failed")
			continue
		}
		result.Renewed++
	}
	return result, nil
}

func (s *service) fail(ctx context.Context, sub *models.Subscription, orderID int64, cause error) error {
	sub.FailureCount++
	sub.Status = enums.SubscriptionStatusPastDue
	if sub.FailureCount >= maxFailures {
		sub.Status = enums.SubscriptionStatusOnHold
	}
	if err := s.repo.Update(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating subscription")
	}

	s.events.Publish(ctx, events.TypeRenewalFailed, events.SubscriptionEvent{
		SubscriptionID: sub.ID.String(),
		OrderID:        orderID,
		FailureCount:   sub.FailureCount,
	})
	return cause
}

// renewalOrder copies the buyer and address data from the parent order into
// a fresh pending order for the renewal charge.
func renewalOrder(parent *models.Order, sub *models.Subscription) *models.Order {
	return &models.Order{
		CustomerID: sub.CustomerID,
		Status:     enums.OrderStatusPending,
		Currency:   parent.Currency,
		TotalCents: sub.TotalCents,

		CustomerEmail:     parent.CustomerEmail,
		CustomerFirstName: parent.CustomerFirstName,
		CustomerLastName:  parent.CustomerLastName,
		CustomerPhone:     parent.CustomerPhone,
		CustomerCPF:       parent.CustomerCPF,
		CustomerCNPJ:      parent.CustomerCNPJ,

		BillingStreet:     parent.BillingStreet,
		BillingNumber:     parent.BillingNumber,
		BillingComplement: parent.BillingComplement,
		BillingLocality:   parent.BillingLocality,
		BillingCity:       parent.BillingCity,
		BillingRegionCode: parent.BillingRegionCode,
		BillingPostcode:   parent.BillingPostcode,

		Items: []models.OrderItem{{
			Name:          fmt.Sprintf("Renovação da assinatura %s", sub.ID),
			Quantity:      1,
			SubtotalCents: sub.TotalCents,
		}},
	}
}

// nextPayment advances from the scheduled date while it stays in the future,
// otherwise from now, so a long-stalled subscription does not renew again
// immediately.
func nextPayment(scheduled time.Time, intervalDays int, now time.Time) time.Time {
	next := scheduled.AddDate(0, 0, intervalDays)
	if next.After(now) {
		return next
	}
	return now.AddDate(0, 0, intervalDays)
}
