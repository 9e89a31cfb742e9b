package pagbankwebhook

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
)

type memOrders struct {
	orders      map[int64]*models.Order
	meta        map[int64]map[string]string
	notes       map[int64][]string
	completions int
	transitions int
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: map[int64]*models.Order{},
		meta:   map[int64]map[string]string{},
		notes:  map[int64][]string{},
	}
}

func (m *memOrders) Find(_ context.Context, id int64) (*models.Order, error) {
	return m.orders[id], nil
}

func (m *memOrders) Create(_ context.Context, order *models.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *memOrders) PaymentComplete(_ context.Context, order *models.Order, chargeID string, _ enums.GatewayID) error {
	if order.Status.IsPaid() {
		return nil
	}
	m.completions++
	order.Status = enums.OrderStatusCompleted
	if order.NeedsShipping {
		order.Status = enums.OrderStatusProcessing
	}
	if chargeID != "" {
		m.setMeta(order.ID, orders.MetaChargeID, chargeID)
	}
	return nil
}

func (m *memOrders) OnHold(_ context.Context, order *models.Order, reason string, _ enums.GatewayID) error {
	m.transitions++
	order.Status = enums.OrderStatusOnHold
	m.notes[order.ID] = append(m.notes[order.ID], reason)
	return nil
}

func (m *memOrders) Fail(_ context.Context, order *models.Order, reason string, _ enums.GatewayID) error {
	m.transitions++
	order.Status = enums.OrderStatusFailed
	m.notes[order.ID] = append(m.notes[order.ID], reason)
	return nil
}

func (m *memOrders) Refunded(_ context.Context, order *models.Order, _ enums.GatewayID) error {
	m.transitions++
	order.Status = enums.OrderStatusRefunded
	return nil
}

func (m *memOrders) GetMeta(_ context.Context, orderID int64, key string) (string, error) {
	return m.meta[orderID][key], nil
}

func (m *memOrders) SetMeta(_ context.Context, orderID int64, key, value string) error {
	m.setMeta(orderID, key, value)
	return nil
}

func (m *memOrders) setMeta(orderID int64, key, value string) {
	if m.meta[orderID] == nil {
		m.meta[orderID] = map[string]string{}
	}
	m.meta[orderID][key] = value
}

func (m *memOrders) AddFeeItem(_ context.Context, _ *models.Order, _ string, _ int64) error {
	return nil
}

func (m *memOrders) AddNote(_ context.Context, orderID int64, note string) error {
	m.notes[orderID] = append(m.notes[orderID], note)
	return nil
}

var _ orders.Service = (*memOrders)(nil)

type memIdempotencyStore struct {
	keys map[string]string
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{keys: map[string]string{}}
}

func (m *memIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return m.keys[key], nil
}

func (m *memIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, exists := m.keys[key]; exists {
		return false, nil
	}
	m.keys[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (m *memIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "pb:idem:" + scope + ":" + id
}

func (m *memIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

const testPassword = "yRwBYx5kGVBRZ2B80eaV0r3PKhjnfm"

func newWebhookService(t *testing.T, store *memOrders) *Service {
	t.Helper()

	guard, err := NewIdempotencyGuard(newMemIdempotencyStore(), time.Hour, "pagbank")
	require.NoError(t, err)

	service, err := NewService(ServiceParams{
		Orders: store,
		Guard:  guard,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return service
}

func webhookOrder(store *memOrders, gateway enums.GatewayID) *models.Order {
	order := &models.Order{
		ID:            501,
		Status:        enums.OrderStatusPending,
		GatewayID:     gateway,
		Currency:      "BRL",
		TotalCents:    15000,
		CustomerEmail: "maria@example.com",
	}
	store.orders[order.ID] = order
	store.setMeta(order.ID, orders.MetaPassword, testPassword)
	return order
}

func delivery(status, password string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "ORDE_1",
		"reference_id": "{\"id\":501,\"password\":\"%s\"}",
		"charges": [{"id": "CHAR_1", "status": %q, "amount": {"value": 15000}}]
	}`, password, status))
}

func TestProcessPaidDelivery(t *testing.T) {
	store := newMemOrders()
	order := webhookOrder(store, enums.GatewayPix)
	service := newWebhookService(t, store)

	result, err := service.Process(context.Background(), delivery("PAID", testPassword))
	require.NoError(t, err)

	assert.Equal(t, int64(501), result.OrderID)
	assert.Equal(t, "CHAR_1", result.ChargeID)
	assert.Equal(t, enums.ChargeStatusPaid, result.ChargeStatus)
	assert.Equal(t, enums.OrderStatusCompleted, result.OrderStatus)
	assert.False(t, result.Duplicate)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.Equal(t, "CHAR_1", store.meta[order.ID][orders.MetaChargeID])
}

func TestProcessDuplicatePaidDelivery(t *testing.T) {
	store := newMemOrders()
	order := webhookOrder(store, enums.GatewayBoleto)
	service := newWebhookService(t, store)

	_, err := service.Process(context.Background(), delivery("PAID", testPassword))
	require.NoError(t, err)

	result, err := service.Process(context.Background(), delivery("PAID", testPassword))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.Equal(t, 1, store.completions)
}

func TestProcessPasswordMismatch(t *testing.T) {
	store := newMemOrders()
	order := webhookOrder(store, enums.GatewayCreditCard)
	service := newWebhookService(t, store)

	_, err := service.Process(context.Background(), delivery("PAID", "wrong-password"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, 0, store.completions)
}

func TestProcessUnknownOrder(t *testing.T) {
	service := newWebhookService(t, newMemOrders())

	_, err := service.Process(context.Background(), delivery("PAID", testPassword))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestProcessOrderFromAnotherGateway(t *testing.T) {
	store := newMemOrders()
	webhookOrder(store, "")
	service := newWebhookService(t, store)

	_, err := service.Process(context.Background(), delivery("PAID", testPassword))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestProcessMetadataFallback(t *testing.T) {
	store := newMemOrders()
	order := webhookOrder(store, enums.GatewayPix)
	service := newWebhookService(t, store)

	body := []byte(fmt.Sprintf(`{
		"id": "ORDE_1",
		"reference_id": "501",
		"charges": [{"id": "CHAR_1", "status": "PAID", "amount": {"value": 15000}}],
		"metadata": {"order_id": 501, "password": %q}
	}`, testPassword))

	result, err := service.Process(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, int64(501), result.OrderID)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
}

func TestProcessStatusTransitions(t *testing.T) {
	cases := []struct {
		status string
		want   enums.OrderStatus
	}{
		{"IN_ANALYSIS", enums.OrderStatusOnHold},
		{"DECLINED", enums.OrderStatusFailed},
		{"CANCELED", enums.OrderStatusRefunded},
	}
	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			store := newMemOrders()
			order := webhookOrder(store, enums.GatewayCreditCard)
			service := newWebhookService(t, store)

			result, err := service.Process(context.Background(), delivery(tc.status, testPassword))
			require.NoError(t, err)
			assert.Equal(t, tc.want, order.Status)
			assert.Equal(t, tc.want, result.OrderStatus)
		})
	}
}

func TestProcessWaitingNeedsNoTransition(t *testing.T) {
	store := newMemOrders()
	order := webhookOrder(store, enums.GatewayBoleto)
	service := newWebhookService(t, store)

	result, err := service.Process(context.Background(), delivery("WAITING", testPassword))
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.ChargeStatusWaiting, result.ChargeStatus)
	assert.Equal(t, 0, store.transitions)
}

func TestProcessMalformedPayload(t *testing.T) {
	service := newWebhookService(t, newMemOrders())

	_, err := service.Process(context.Background(), []byte("not-json"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = service.Process(context.Background(), []byte(`{"charges": []}`))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
