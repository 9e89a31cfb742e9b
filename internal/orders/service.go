package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/events"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

// Service drives order status transitions. Every transition appends an
// operator-visible note and publishes a domain event so external
// collaborators can react.
type Service interface {
	Find(ctx context.Context, id int64) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	PaymentComplete(ctx context.Context, order *models.Order, chargeID string, gateway enums.GatewayID) error
	OnHold(ctx context.Context, order *models.Order, reason string, gateway enums.GatewayID) error
	Fail(ctx context.Context, order *models.Order, reason string, gateway enums.GatewayID) error
	Refunded(ctx context.Context, order *models.Order, gateway enums.GatewayID) error
	GetMeta(ctx context.Context, orderID int64, key string) (string, error)
	SetMeta(ctx context.Context, orderID int64, key, value string) error
	AddFeeItem(ctx context.Context, order *models.Order, name string, amountCents int64) error
	AddNote(ctx context.Context, orderID int64, note string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Repo              Repository
	Events            *events.Dispatcher
	Logger            *logger.Logger
	TransactionRunner txRunner
}

type service struct {
	repo     Repository
	events   *events.Dispatcher
	logger   *logger.Logger
	txRunner txRunner
}

// NewService constructs an order service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event dispatcher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		events:   params.Events,
		logger:   params.Logger,
		txRunner: params.TransactionRunner,
	}, nil
}

func (s *service) Find(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) Create(ctx context.Context, order *models.Order) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}
	return nil
}

// PaymentComplete marks the order captured and persists the charge id. A
// second call for an already paid order is a no-op, webhooks and the
// synchronous checkout path can race on the same charge.
func (s *service) PaymentComplete(ctx context.Context, order *models.Order, chargeID string, gateway enums.GatewayID) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if order.Status.IsPaid() {
		s.logger.Info(s.logger.WithOrderID(ctx, order.ID), "order already paid, skipping transition")
		return nil
	}

	status := enums.OrderStatusCompleted
	if order.NeedsShipping {
		status = enums.OrderStatusProcessing
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()
		order.Status = status
		order.PaidAt = &now
		if err := repo.Update(ctx, order); err != nil {
			return err
		}
		if chargeID != "" {
			if err := repo.SetMeta(ctx, order.ID, MetaChargeID, chargeID); err != nil {
				return err
			}
		}
		return repo.AddNote(ctx, order.ID, fmt.Sprintf("PagBank: pagamento confirmado (cobranca %s).", chargeID))
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "completing payment")
	}

	s.events.Publish(ctx, events.TypeOrderPaid, events.OrderEvent{
		OrderID:      order.ID,
		ChargeID:     chargeID,
		ChargeStatus: enums.ChargeStatusPaid,
		OrderStatus:  status,
		Gateway:      gateway,
	})
	return nil
}

// OnHold parks the order awaiting asynchronous confirmation.
func (s *service) OnHold(ctx context.Context, order *models.Order, reason string, gateway enums.GatewayID) error {
	if err := s.transition(ctx, order, enums.OrderStatusOnHold, reason); err != nil {
		return err
	}
	s.events.Publish(ctx, events.TypeOrderOnHold, events.OrderEvent{
		OrderID:      order.ID,
		ChargeStatus: enums.ChargeStatusInAnalysis,
		OrderStatus:  enums.OrderStatusOnHold,
		Gateway:      gateway,
	})
	return nil
}

// Fail marks the order failed and leaves it re-editable by the customer.
func (s *service) Fail(ctx context.Context, order *models.Order, reason string, gateway enums.GatewayID) error {
	if err := s.transition(ctx, order, enums.OrderStatusFailed, reason); err != nil {
		return err
	}
	s.events.Publish(ctx, events.TypeOrderFailed, events.OrderEvent{
		OrderID:      order.ID,
		ChargeStatus: enums.ChargeStatusDeclined,
		OrderStatus:  enums.OrderStatusFailed,
		Gateway:      gateway,
	})
	return nil
}

// Refunded marks the order refunded after a provider-side cancellation.
func (s *service) Refunded(ctx context.Context, order *models.Order, gateway enums.GatewayID) error {
	if err := s.transition(ctx, order, enums.OrderStatusRefunded, "PagBank: cobranca cancelada, pedido reembolsado."); err != nil {
		return err
	}
	s.events.Publish(ctx, events.TypeOrderRefunded, events.OrderEvent{
		OrderID:      order.ID,
		ChargeStatus: enums.ChargeStatusCanceled,
		OrderStatus:  enums.OrderStatusRefunded,
		Gateway:      gateway,
	})
	return nil
}

func (s *service) transition(ctx context.Context, order *models.Order, status enums.OrderStatus, reason string) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order.Status = status
		if err := repo.Update(ctx, order); err != nil {
			return err
		}
		return repo.AddNote(ctx, order.ID, reason)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transitioning order")
	}
	return nil
}

func (s *service) GetMeta(ctx context.Context, orderID int64, key string) (string, error) {
	value, err := s.repo.GetMeta(ctx, orderID, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading order meta")
	}
	return value, nil
}

func (s *service) SetMeta(ctx context.Context, orderID int64, key, value string) error {
	if err := s.repo.SetMeta(ctx, orderID, key, value); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "writing order meta")
	}
	return nil
}

// AddFeeItem appends an extra fee line (installment interest) and raises the
// order total accordingly.
func (s *service) AddFeeItem(ctx context.Context, order *models.Order, name string, amountCents int64) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if amountCents <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "fee amount must be positive")
	}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item := &models.OrderItem{
			OrderID:       order.ID,
			Name:          name,
			Quantity:      1,
			SubtotalCents: amountCents,
			IsFee:         true,
		}
		if err := repo.AddItem(ctx, item); err != nil {
			return err
		}
		order.TotalCents += amountCents
		order.Items = append(order.Items, *item)
		return repo.Update(ctx, order)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding fee item")
	}
	return nil
}

func (s *service) AddNote(ctx context.Context, orderID int64, note string) error {
	if err := s.repo.AddNote(ctx, orderID, note); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adding order note")
	}
	return nil
}
