package pagbankwebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/payments"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/security"
)

// Notification is the provider's push payload. It mirrors the order
// resource; reference_id and metadata both carry the shop order id and the
// per-order webhook password.
type Notification struct {
	ID          string           `json:"id"`
	ReferenceID string           `json:"reference_id"`
	Charges     []pagbank.Charge `json:"charges"`
	Metadata    map[string]any   `json:"metadata"`
}

// Result reports what a delivery did to the order.
type Result struct {
	OrderID      int64              `json:"order_id"`
	ChargeID     string             `json:"charge_id,omitempty"`
	ChargeStatus enums.ChargeStatus `json:"charge_status"`
	OrderStatus  enums.OrderStatus  `json:"order_status"`
	Duplicate    bool               `json:"duplicate,omitempty"`
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	Orders  orders.Service
	Guard   *IdempotencyGuard
	Logger  *logger.Logger
	Metrics *metrics.PaymentMetrics
}

// Service applies provider notifications to orders. Deliveries authenticate
// with the per-order password; a mismatch never mutates the order.
type Service struct {
	orders  orders.Service
	guard   *IdempotencyGuard
	logger  *logger.Logger
	metrics *metrics.PaymentMetrics
}

// NewService constructs the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:  params.Orders,
		guard:   params.Guard,
		logger:  params.Logger,
		metrics: params.Metrics,
	}, nil
}

// Process decodes and applies one delivery.
func (s *Service) Process(ctx context.Context, body []byte) (*Result, error) {
	var notification Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		s.metrics.IncWebhookEvent("unknown", "malformed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook payload")
	}

	orderID, password := credentials(&notification)
	if orderID <= 0 {
		s.metrics.IncWebhookEvent("unknown", "malformed")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload carries no order id")
	}
	ctx = s.logger.WithOrderID(ctx, orderID)

	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		s.metrics.IncWebhookEvent("unknown", "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook references an unknown order")
	}
	if !paidViaPagBank(order) {
		s.metrics.IncWebhookEvent("unknown", "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order was not paid through pagbank")
	}

	stored, err := s.orders.GetMeta(ctx, orderID, orders.MetaPassword)
	if err != nil {
		return nil, err
	}
	if stored == "" || !security.VerifyPassword(password, stored) {
		s.metrics.IncWebhookEvent("unknown", "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook password mismatch")
	}

	charge := firstCharge(&notification)
	if charge == nil {
		s.metrics.IncWebhookEvent("unknown", "malformed")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload carries no charge")
	}
	status, err := enums.ParseChargeStatus(charge.Status)
	if err != nil {
		s.metrics.IncWebhookEvent(charge.Status, "malformed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook carries unknown charge status")
	}
	ctx = s.logger.WithChargeID(ctx, charge.ID)

	result := &Result{
		OrderID:      orderID,
		ChargeID:     charge.ID,
		ChargeStatus: status,
	}

	eventID := fmt.Sprintf("%s:%s", charge.ID, status)
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, eventID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking idempotency")
		}
		if seen {
			s.metrics.IncWebhookEvent(status.String(), "duplicate")
			result.Duplicate = true
			result.OrderStatus = order.Status
			return result, nil
		}
	}

	if err := s.apply(ctx, order, charge.ID, status); err != nil {
		if s.guard != nil {
			if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
				s.logger.Error(ctx, "releasing idempotency key", delErr)
			}
		}
		s.metrics.IncWebhookEvent(status.String(), "error")
		return nil, err
	}

	s.metrics.IncWebhookEvent(status.String(), "processed")
	result.OrderStatus = order.Status
	return result, nil
}

func (s *Service) apply(ctx context.Context, order *models.Order, chargeID string, status enums.ChargeStatus) error {
	switch status {
	case enums.ChargeStatusPaid, enums.ChargeStatusAuthorized:
		return s.orders.PaymentComplete(ctx, order, chargeID, order.GatewayID)
	case enums.ChargeStatusInAnalysis:
		return s.orders.OnHold(ctx, order, "PagBank: pagamento em análise.", order.GatewayID)
	case enums.ChargeStatusDeclined:
		return s.orders.Fail(ctx, order, "PagBank: pagamento recusado.", order.GatewayID)
	case enums.ChargeStatusCanceled:
		return s.orders.Refunded(ctx, order, order.GatewayID)
	default:
		s.logger.Info(ctx, "webhook charge status requires no transition")
		return nil
	}
}

// credentials pulls the order id and password from reference_id, falling
// back to the metadata copy written at charge time.
func credentials(notification *Notification) (int64, string) {
	reference := notification.ReferenceID
	if reference == "" && len(notification.Charges) > 0 {
		reference = notification.Charges[0].ReferenceID
	}
	if orderID, password, err := payments.ParseReferenceID(reference); err == nil {
		if password == "" {
			password = metadataString(notification.Metadata, "password")
		}
		return orderID, password
	}

	orderID := metadataInt(notification.Metadata, "order_id")
	return orderID, metadataString(notification.Metadata, "password")
}

func paidViaPagBank(order *models.Order) bool {
	switch order.GatewayID {
	case enums.GatewayCreditCard, enums.GatewayBoleto, enums.GatewayPix:
		return true
	}
	return false
}

func firstCharge(notification *Notification) *pagbank.Charge {
	if len(notification.Charges) == 0 {
		return nil
	}
	return &notification.Charges[0]
}

func metadataString(metadata map[string]any, key string) string {
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

func metadataInt(metadata map[string]any, key string) int64 {
	switch value := metadata[key].(type) {
	case float64:
		return int64(value)
	case string:
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}
