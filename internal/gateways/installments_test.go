package gateways

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

func TestInstallmentOptionsLocalPlans(t *testing.T) {
	gateway := newCreditCardGateway(t, &stubAPI{}, connectedStub(), newMemOrders(), newMemTokens(), func(p *CreditCardParams) {
		p.Config.MaxInstallments = 3
	})

	options, err := gateway.InstallmentOptions(context.Background(), uuid.New(), 10000, "", uuid.Nil)
	require.NoError(t, err)
	require.Len(t, options, 3)

	assert.Equal(t, int64(10000), options[0].ValueCents)
	assert.Equal(t, "1x de R$ 100,00 sem juros", options[0].Title)
	assert.Equal(t, int64(5000), options[1].ValueCents)
	assert.Equal(t, int64(3334), options[2].ValueCents)
	for _, option := range options {
		assert.True(t, option.InterestFree)
	}
}

func TestInstallmentOptionsRespectMinimumValue(t *testing.T) {
	gateway := newCreditCardGateway(t, &stubAPI{}, connectedStub(), newMemOrders(), newMemTokens(), func(p *CreditCardParams) {
		p.Config.MaxInstallments = 3
		p.Config.MinInstallmentCents = 4000
	})

	options, err := gateway.InstallmentOptions(context.Background(), uuid.New(), 10000, "", uuid.Nil)
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Equal(t, 2, options[1].Installments)
	assert.Equal(t, int64(5000), options[1].ValueCents)
}

func TestInstallmentOptionsProviderQuoted(t *testing.T) {
	feeResp := &pagbank.FeesResponse{}
	feeResp.PaymentMethods.CreditCard = map[string]pagbank.CreditCardFees{
		"VISA": {InstallmentPlans: []pagbank.InstallmentPlan{
			{Installments: 3, InstallmentValue: 3450, InterestFree: false, Amount: pagbank.Amount{Value: 10350}},
			{Installments: 1, InstallmentValue: 10000, InterestFree: true, Amount: pagbank.Amount{Value: 10000}},
		}},
	}
	api := &stubAPI{feeResp: feeResp}
	gateway := newCreditCardGateway(t, api, connectedStub(), newMemOrders(), newMemTokens(), func(p *CreditCardParams) {
		p.Config.TransferOfInterestFee = true
	})

	options, err := gateway.InstallmentOptions(context.Background(), uuid.New(), 10000, "411111", uuid.Nil)
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Equal(t, 1, options[0].Installments)
	assert.Equal(t, "1x de R$ 100,00 sem juros", options[0].Title)
	assert.Equal(t, 3, options[1].Installments)
	assert.Equal(t, int64(10350), options[1].TotalCents)
	assert.Equal(t, "3x de R$ 34,50 (R$ 103,50)", options[1].Title)
}

func TestInstallmentOptionsRequireExactlyOneCard(t *testing.T) {
	gateway := newCreditCardGateway(t, &stubAPI{}, connectedStub(), newMemOrders(), newMemTokens(), func(p *CreditCardParams) {
		p.Config.TransferOfInterestFee = true
	})

	_, err := gateway.InstallmentOptions(context.Background(), uuid.New(), 10000, "", uuid.Nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = gateway.InstallmentOptions(context.Background(), uuid.New(), 10000, "411111", uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
