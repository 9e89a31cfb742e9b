package gateways

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

func TestRegistryAvailable(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	card := newCreditCardGateway(t, api, connectedStub(), store, newMemTokens(), nil)
	boleto := newBoletoGateway(t, api, connectedStub(), store)
	boleto.maxAmountCents = 5000
	pix := newPixGateway(t, api, connectedStub(), store)

	registry := NewRegistry()
	registry.Register(card)
	registry.Register(boleto)
	registry.Register(pix)

	got, ok := registry.Get(enums.GatewayBoleto)
	require.True(t, ok)
	assert.Equal(t, "PagBank Boleto", got.Title())

	available := registry.Available(context.Background(), 10000, "BRL")
	require.Len(t, available, 2)
	assert.Equal(t, enums.GatewayCreditCard, available[0].ID())
	assert.Equal(t, enums.GatewayPix, available[1].ID())

	available = registry.Available(context.Background(), 4000, "BRL")
	require.Len(t, available, 3)
	assert.Equal(t, enums.GatewayBoleto, available[1].ID())

	assert.Empty(t, registry.Available(context.Background(), 10000, "USD"))
}

func TestRegistryHidesDisconnectedGateways(t *testing.T) {
	api := &stubAPI{}
	store := newMemOrders()
	pix := newPixGateway(t, api, &stubConnect{}, store)

	registry := NewRegistry()
	registry.Register(pix)

	assert.Empty(t, registry.Available(context.Background(), 10000, "BRL"))
}

func TestRegistryDisabledGateway(t *testing.T) {
	gateway, err := NewPixGateway(PixParams{
		Config:          config.PixConfig{Enabled: false, ExpirationMinutes: 30},
		Environment:     enums.EnvironmentSandbox,
		StoreName:       "Loja Exemplo",
		NotificationURL: "https://loja.example.com/webhooks/pagbank",
		API:             &stubAPI{},
		Connect:         connectedStub(),
		Orders:          newMemOrders(),
		Signer:          testSigner(),
		Logger:          testLogger(),
	})
	require.NoError(t, err)
	assert.False(t, gateway.IsAvailable(context.Background(), 1000, "BRL"))
}
