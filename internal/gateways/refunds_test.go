package gateways

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
)

func newRefunder(t *testing.T, api *stubAPI, store *memOrders, vetoes ...RefundVeto) *Refunder {
	t.Helper()

	refunder, err := NewRefunder(RefunderParams{
		API:    api,
		Orders: store,
		Logger: testLogger(),
		Vetoes: vetoes,
	})
	require.NoError(t, err)
	return refunder
}

func refundableOrder(store *memOrders, totalCents int64) *models.Order {
	order := checkoutOrder(totalCents)
	order.Status = enums.OrderStatusCompleted
	order.GatewayID = enums.GatewayCreditCard
	store.orders[order.ID] = order
	store.setMeta(order.ID, orders.MetaChargeID, "CHAR_1")
	return order
}

func TestRefundFull(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	order := refundableOrder(store, 10000)
	refunder := newRefunder(t, api, store)

	err := refunder.Refund(context.Background(), order.ID, 10000)
	require.NoError(t, err)
	assert.Equal(t, []int64{10000}, api.cancelCalls)
	assert.Equal(t, enums.OrderStatusRefunded, order.Status)
}

func TestRefundPartial(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	order := refundableOrder(store, 10000)
	refunder := newRefunder(t, api, store)

	err := refunder.Refund(context.Background(), order.ID, 2550)
	require.NoError(t, err)
	assert.Equal(t, []int64{2550}, api.cancelCalls)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	require.NotEmpty(t, store.notes[order.ID])
	assert.Contains(t, store.notes[order.ID][0], "reembolso parcial de R$ 25,50")
}

func TestRefundValidation(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	order := refundableOrder(store, 10000)
	refunder := newRefunder(t, api, store)

	err := refunder.Refund(context.Background(), order.ID, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = refunder.Refund(context.Background(), order.ID, 10001)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = refunder.Refund(context.Background(), 999, 100)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	assert.Empty(t, api.cancelCalls)
}

func TestRefundWithoutCharge(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	order := checkoutOrder(10000)
	store.orders[order.ID] = order
	refunder := newRefunder(t, api, store)

	err := refunder.Refund(context.Background(), order.ID, 10000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Empty(t, api.cancelCalls)
}

func TestRefundVetoed(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	order := refundableOrder(store, 10000)
	veto := func(_ context.Context, _ *models.Order, _ int64) error {
		return pkgerrors.New(pkgerrors.CodeConflict, "comissões já repassadas ao vendedor")
	}
	refunder := newRefunder(t, api, store, veto)

	err := refunder.Refund(context.Background(), order.ID, 10000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Empty(t, api.cancelCalls)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
}

func TestRefundProviderDidNotCancel(t *testing.T) {
	api := &stubAPI{cancelStatus: "DECLINED"}
	store := newMemOrders()
	order := refundableOrder(store, 10000)
	refunder := newRefunder(t, api, store)

	err := refunder.Refund(context.Background(), order.ID, 10000)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
}
