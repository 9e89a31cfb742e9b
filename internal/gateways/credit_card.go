package gateways

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/internal/orders"
	"github.com/brcommerce/pagbank-gateway/internal/payments"
	"github.com/brcommerce/pagbank-gateway/internal/tokens"
	"github.com/brcommerce/pagbank-gateway/pkg/config"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/logger"
	"github.com/brcommerce/pagbank-gateway/pkg/metrics"
	"github.com/brcommerce/pagbank-gateway/pkg/money"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
	"github.com/brcommerce/pagbank-gateway/pkg/security"
)

// CreditCardGateway charges new or vaulted cards, optionally in
// installments, and handles subscription renewals.
type CreditCardGateway struct {
	base
	cfg    config.CreditCardConfig
	tokens tokens.Service
}

// CreditCardParams groups dependencies for the credit card gateway.
type CreditCardParams struct {
	Config          config.CreditCardConfig
	Environment     enums.Environment
	StoreName       string
	NotificationURL string
	API             providerAPI
	Connect         connectStore
	Orders          orders.Service
	Tokens          tokens.Service
	Signer          *security.Signer
	Logger          *logger.Logger
	Metrics         *metrics.PaymentMetrics
}

// NewCreditCardGateway constructs the credit card gateway.
func NewCreditCardGateway(params CreditCardParams) (*CreditCardGateway, error) {
	if params.API == nil || params.Connect == nil || params.Orders == nil ||
		params.Tokens == nil || params.Signer == nil || params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credit card gateway dependencies missing")
	}
	return &CreditCardGateway{
		base: base{
			id:              enums.GatewayCreditCard,
			title:           "PagBank Cartão de Crédito",
			enabled:         params.Config.Enabled,
			maxAmountCents:  params.Config.MaxAmountCents,
			environment:     params.Environment,
			storeName:       params.StoreName,
			notificationURL: params.NotificationURL,
			api:             params.API,
			connect:         params.Connect,
			orders:          params.Orders,
			signer:          params.Signer,
			logger:          params.Logger,
			metrics:         params.Metrics,
		},
		cfg:    params.Config,
		tokens: params.Tokens,
	}, nil
}

// ProcessPayment validates the card input, builds the charge and interprets
// the synchronous provider status.
func (g *CreditCardGateway) ProcessPayment(ctx context.Context, order *models.Order, input CheckoutInput) (*PaymentResult, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	ctx = g.logger.WithGateway(g.logger.WithOrderID(ctx, order.ID), g.id.String())

	builderInput, err := g.validateInput(ctx, order, input)
	if err != nil {
		return nil, err
	}

	connectData, err := g.connect.Data(ctx)
	if err != nil {
		return nil, err
	}
	if connectData == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "pagbank account is not connected")
	}

	// With interest transfer enabled the buyer pays the installment fee:
	// the charge total comes from the provider's fee calculation instead
	// of the order total.
	if g.cfg.TransferOfInterestFee && builderInput.Installments > g.cfg.InstallmentsFreeOfFee {
		adjusted, err := g.negotiatedAmount(ctx, order, *builderInput)
		if err != nil {
			return nil, err
		}
		builderInput.AmountOverrideCents = adjusted
	}

	params, err := g.prepare(ctx, order)
	if err != nil {
		return nil, err
	}
	req, err := payments.BuildCreditCardOrder(params, *builderInput)
	if err != nil {
		return nil, err
	}

	resp, err := g.dispatch(ctx, order, req)
	if err != nil {
		return nil, err
	}
	return g.settle(ctx, order, input, *builderInput, connectData.AccountID, resp)
}

func (g *CreditCardGateway) validateInput(ctx context.Context, order *models.Order, input CheckoutInput) (*payments.CreditCardInput, error) {
	installments := input.Installments
	if installments == 0 {
		installments = 1
	}
	if installments < 1 || installments > g.cfg.MaxInstallments {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("installments must be between 1 and %d", g.cfg.MaxInstallments))
	}

	builderInput := &payments.CreditCardInput{
		SecurityCode:   strings.TrimSpace(input.SecurityCode),
		Store:          input.SaveCard && g.cfg.AllowTokenizedPayments,
		Installments:   installments,
		IsSubscription: input.IsSubscription,
	}

	if input.SavedTokenID != uuid.Nil {
		if !g.cfg.AllowTokenizedPayments {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "saved cards are disabled")
		}
		connectData, err := g.connect.Data(ctx)
		if err != nil {
			return nil, err
		}
		if connectData == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "pagbank account is not connected")
		}
		token, err := g.tokens.Resolve(ctx, input.SavedTokenID, input.CustomerID, connectData.AccountID)
		if err != nil {
			return nil, err
		}
		builderInput.TokenID = token.ProviderTokenID
		builderInput.Bin = token.Bin
		builderInput.HolderName = token.HolderName
		return builderInput, nil
	}

	if strings.TrimSpace(input.EncryptedCard) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "encrypted card data is required")
	}
	if strings.TrimSpace(input.CardHolder) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card holder name is required")
	}
	bin := strings.TrimSpace(input.CardBin)
	if len(bin) != 6 || strings.Trim(bin, "0123456789") != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card bin must be 6 digits")
	}
	builderInput.Encrypted = input.EncryptedCard
	builderInput.Bin = bin
	builderInput.HolderName = input.CardHolder
	return builderInput, nil
}

// negotiatedAmount asks the provider for the installment plan matching the
// chosen count and returns its fee-adjusted total.
func (g *CreditCardGateway) negotiatedAmount(ctx context.Context, order *models.Order, input payments.CreditCardInput) (int64, error) {
	feeParams := pagbank.FeeParams{
		ValueCents:                order.TotalCents,
		MaxInstallments:           g.cfg.MaxInstallments,
		MaxInstallmentsNoInterest: g.cfg.InstallmentsFreeOfFee,
	}
	if input.TokenID != "" {
		feeParams.CardTokenID = input.TokenID
	} else {
		feeParams.CardBin = input.Bin
	}
	fees, err := g.api.CalculateFees(ctx, feeParams)
	if err != nil {
		return 0, err
	}

	for _, brand := range fees.PaymentMethods.CreditCard {
		for _, plan := range brand.InstallmentPlans {
			if plan.Installments == input.Installments {
				return plan.Amount.Value, nil
			}
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("no installment plan available for %d installments", input.Installments))
}

func (g *CreditCardGateway) settle(ctx context.Context, order *models.Order, input CheckoutInput, builderInput payments.CreditCardInput, accountID string, resp *pagbank.OrderResponse) (*PaymentResult, error) {
	charge := firstCharge(resp)
	if charge == nil {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "provider response carried no charge")
	}

	status, err := enums.ParseChargeStatus(charge.Status)
	if err != nil {
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provider returned unknown charge status")
	}

	if err := g.persistCardMeta(ctx, order, charge, builderInput.Installments); err != nil {
		return nil, err
	}

	switch status {
	case enums.ChargeStatusPaid, enums.ChargeStatusAuthorized:
		g.metrics.IncCharge(g.id.String(), "paid")
		if err := g.afterSuccess(ctx, order, input, builderInput, accountID, charge); err != nil {
			return nil, err
		}
		if err := g.orders.PaymentComplete(ctx, order, charge.ID, g.id); err != nil {
			return nil, err
		}
	case enums.ChargeStatusInAnalysis:
		g.metrics.IncCharge(g.id.String(), "in_analysis")
		if err := g.orders.OnHold(ctx, order, "PagBank: pagamento em análise.", g.id); err != nil {
			return nil, err
		}
	case enums.ChargeStatusDeclined:
		g.metrics.IncCharge(g.id.String(), "declined")
		reason := declineReason(charge)
		if err := g.orders.Fail(ctx, order, "PagBank: pagamento recusado. "+reason, g.id); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodeDeclined, reason)
	default:
		g.metrics.IncCharge(g.id.String(), "error")
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("unexpected charge status %s", status))
	}

	return &PaymentResult{
		Gateway:         g.id,
		OrderID:         order.ID,
		OrderStatus:     order.Status,
		ProviderOrderID: resp.ID,
		ChargeID:        charge.ID,
		ChargeStatus:    status,
	}, nil
}

// afterSuccess vaults the card when requested, books the interest fee line
// and refunds the nominal 1-cent charge of a zero-value subscription.
func (g *CreditCardGateway) afterSuccess(ctx context.Context, order *models.Order, input CheckoutInput, builderInput payments.CreditCardInput, accountID string, charge *pagbank.Charge) error {
	if (input.SaveCard || input.IsSubscription) && charge.PaymentMethod.Card != nil && charge.PaymentMethod.Card.ID != "" {
		token, err := g.tokens.SaveCard(ctx, input.CustomerID, accountID, *charge.PaymentMethod.Card)
		if err != nil {
			g.logger.Error(ctx, "vaulting card after charge failed", err)
		} else if err := g.orders.SetMeta(ctx, order.ID, orders.MetaPaymentToken, token.ID.String()); err != nil {
			return err
		}
	}

	if interest := interestTotal(charge); interest > 0 {
		if err := g.orders.AddFeeItem(ctx, order, "Parcelamento", interest); err != nil {
			return err
		}
		if err := g.orders.AddNote(ctx, order.ID, fmt.Sprintf(
			"PagBank: juros de parcelamento de %s repassados ao comprador.", money.FormatBRL(interest))); err != nil {
			return err
		}
	}

	// Zero-value subscription: the 1-cent charge only registered the card,
	// give it straight back.
	if order.TotalCents == 0 && charge.Amount.Value == 1 {
		if _, err := g.api.CancelCharge(ctx, charge.ID, 1); err != nil {
			g.logger.Error(ctx, "refunding nominal subscription charge failed", err)
		} else if err := g.orders.AddNote(ctx, order.ID,
			"PagBank: cobrança nominal de R$ 0,01 estornada."); err != nil {
			return err
		}
	}
	return nil
}

func (g *CreditCardGateway) persistCardMeta(ctx context.Context, order *models.Order, charge *pagbank.Charge, installments int) error {
	if err := g.orders.SetMeta(ctx, order.ID, orders.MetaInstallments, formatInstallments(installments)); err != nil {
		return err
	}
	if charge.PaymentMethod.Card != nil && charge.PaymentMethod.Card.Brand != "" {
		return g.orders.SetMeta(ctx, order.ID, orders.MetaCardBrand, charge.PaymentMethod.Card.Brand)
	}
	return nil
}

func interestTotal(charge *pagbank.Charge) int64 {
	if charge.Amount.Fees == nil {
		return 0
	}
	return charge.Amount.Fees.Buyer.Interest.Total
}

func declineReason(charge *pagbank.Charge) string {
	if charge.PaymentResponse != nil && charge.PaymentResponse.Message != "" {
		return charge.PaymentResponse.Message
	}
	return "transação não autorizada pelo emissor"
}
