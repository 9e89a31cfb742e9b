package gateways

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brcommerce/pagbank-gateway/internal/connect"
	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/tokens"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/security"
)

type stubAPI struct {
	createReqs   []pagbank.OrderRequest
	createResp   *pagbank.OrderResponse
	createErr    error
	cancelCalls  []int64
	cancelStatus string
	cancelErr    error
	feeResp      *pagbank.FeesResponse
	feeErr       error
}

func (s *stubAPI) CreateOrder(_ context.Context, req pagbank.OrderRequest) (*pagbank.OrderResponse, error) {
	s.createReqs = append(s.createReqs, req)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResp, nil
}

func (s *stubAPI) CancelCharge(_ context.Context, chargeID string, amountCents int64) (*pagbank.Charge, error) {
	s.cancelCalls = append(s.cancelCalls, amountCents)
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	status := s.cancelStatus
	if status == "" {
		status = "CANCELED"
	}
	return &pagbank.Charge{ID: chargeID, Status: status, Amount: pagbank.Amount{Value: amountCents}}, nil
}

func (s *stubAPI) CalculateFees(_ context.Context, _ pagbank.FeeParams) (*pagbank.FeesResponse, error) {
	if s.feeErr != nil {
		return nil, s.feeErr
	}
	return s.feeResp, nil
}

type stubConnect struct {
	data *connect.Data
	err  error
}

func (s *stubConnect) Data(_ context.Context) (*connect.Data, error) {
	return s.data, s.err
}

func connectedStub() *stubConnect {
	return &stubConnect{data: &connect.Data{AccountID: "ACCO-1", Environment: enums.EnvironmentSandbox}}
}

// memOrders is an in-memory orders.Service covering what the gateways use.
type memOrders struct {
	orders map[int64]*models.Order
	meta   map[int64]map[string]string
	notes  map[int64][]string
	fees   map[int64][]int64
}

func newMemOrders() *memOrders {
	return &memOrders{
		orders: map[int64]*models.Order{},
		meta:   map[int64]map[string]string{},
		notes:  map[int64][]string{},
		fees:   map[int64][]int64{},
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
	order.Status = enums.OrderStatusCompleted
	if order.NeedsShipping {
		order.Status = enums.OrderStatusProcessing
	}
	if chargeID != "" {
		m.setMeta(order.ID, "_pagbank_charge_id", chargeID)
	}
	return nil
}

func (m *memOrders) OnHold(_ context.Context, order *models.Order, reason string, _ enums.GatewayID) error {
	order.Status = enums.OrderStatusOnHold
	m.notes[order.ID] = append(m.notes[order.ID], reason)
	return nil
}

func (m *memOrders) Fail(_ context.Context, order *models.Order, reason string, _ enums.GatewayID) error {
	order.Status = enums.OrderStatusFailed
	m.notes[order.ID] = append(m.notes[order.ID], reason)
	return nil
}

func (m *memOrders) Refunded(_ context.Context, order *models.Order, _ enums.GatewayID) error {
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

func (m *memOrders) AddFeeItem(_ context.Context, order *models.Order, _ string, amountCents int64) error {
	m.fees[order.ID] = append(m.fees[order.ID], amountCents)
	order.TotalCents += amountCents
	return nil
}

func (m *memOrders) AddNote(_ context.Context, orderID int64, note string) error {
	m.notes[orderID] = append(m.notes[orderID], note)
	return nil
}

var _ orders.Service = (*memOrders)(nil)

type memTokens struct {
	byID    map[uuid.UUID]*models.PaymentToken
	saved   []*models.PaymentToken
	saveErr error
}

func newMemTokens() *memTokens {
	return &memTokens{byID: map[uuid.UUID]*models.PaymentToken{}}
}

func (m *memTokens) SaveCard(_ context.Context, customerID uuid.UUID, connectAccountID string, card pagbank.Card) (*models.PaymentToken, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	token := &models.PaymentToken{
		ID:               uuid.New(),
		CustomerID:       customerID,
		ConnectAccountID: connectAccountID,
		ProviderTokenID:  card.ID,
		Bin:              card.FirstDigits,
	}
	m.byID[token.ID] = token
	m.saved = append(m.saved, token)
	return token, nil
}

func (m *memTokens) Resolve(_ context.Context, id uuid.UUID, customerID uuid.UUID, connectAccountID string) (*models.PaymentToken, error) {
	token, ok := m.byID[id]
	if !ok || token.CustomerID != customerID || token.ConnectAccountID != connectAccountID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card token not found")
	}
	return token, nil
}

func (m *memTokens) List(_ context.Context, _ uuid.UUID, _ string) ([]models.PaymentToken, error) {
	return nil, nil
}

func (m *memTokens) Delete(_ context.Context, _ uuid.UUID, _ uuid.UUID) error {
	return nil
}

var _ tokens.Service = (*memTokens)(nil)

type memKeypairStore struct {
	values map[string]string
}

func (m *memKeypairStore) GetSetting(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memKeypairStore) PutSetting(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func testSigner() *security.Signer {
	return security.NewSigner(&memKeypairStore{values: map[string]string{}})
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func checkoutOrder(totalCents int64) *models.Order {
	return &models.Order{
		ID:                501,
		CustomerID:        uuid.New(),
		Status:            enums.OrderStatusPending,
		Currency:          "BRL",
		TotalCents:        totalCents,
		CustomerEmail:     "maria@example.com",
		CustomerFirstName: "Maria",
		CustomerLastName:  "Silva",
		CustomerCPF:       "123.456.789-09",
		BillingStreet:     "Rua das Flores",
		BillingNumber:     "100",
		BillingLocality:   "Centro",
		BillingCity:       "Sao Paulo",
		BillingRegionCode: "SP",
		BillingPostcode:   "01310-100",
		Items: []models.OrderItem{
			{ID: 1, OrderID: 501, Name: "Produto A", Quantity: 1, SubtotalCents: totalCents},
		},
	}
}

func paidResponse(chargeID string, amountCents int64) *pagbank.OrderResponse {
	return &pagbank.OrderResponse{
		ID: "ORDE_1",
		Charges: []pagbank.Charge{{
			ID:     chargeID,
			Status: "PAID",
			Amount: pagbank.Amount{Value: amountCents},
			PaymentMethod: pagbank.PaymentMethod{
				Type: "CREDIT_CARD",
				Card: &pagbank.Card{ID: "TOKE_NEW", Brand: "visa", FirstDigits: "411111"},
			},
		}},
	}
}

func newCreditCardGateway(t *testing.T, api *stubAPI, conn connectStore, store *memOrders, vault *memTokens, cfgEdit func(*CreditCardParams)) *CreditCardGateway {
	t.Helper()

	params := CreditCardParams{
		Config:          creditCardConfig(),
		Environment:     enums.EnvironmentSandbox,
		StoreName:       "Loja Exemplo",
		NotificationURL: "https://loja.example.com/webhooks/pagbank",
		API:             api,
		Connect:         conn,
		Orders:          store,
		Tokens:          vault,
		Signer:          testSigner(),
		Logger:          testLogger(),
	}
	if cfgEdit != nil {
		cfgEdit(&params)
	}
	gateway, err := NewCreditCardGateway(params)
	require.NoError(t, err)
	return gateway
}
