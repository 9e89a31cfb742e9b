package gateways

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/internal/payments"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/money"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

// InstallmentOption is one plan offered at checkout, with a display title.
type InstallmentOption struct {
	Installments int    `json:"installments"`
	ValueCents   int64  `json:"value_cents"`
	TotalCents   int64  `json:"total_cents"`
	InterestFree bool   `json:"interest_free"`
	Title        string `json:"title"`
}

// InstallmentOptions lists the plans for a cart total. With interest
// transfer disabled the plans are computed locally and interest free;
// otherwise the provider quotes them for the card, identified by exactly
// one of bin or saved token.
func (g *CreditCardGateway) InstallmentOptions(ctx context.Context, customerID uuid.UUID, totalCents int64, bin string, savedTokenID uuid.UUID) ([]InstallmentOption, error) {
	if totalCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total must be positive")
	}

	if !g.cfg.TransferOfInterestFee {
		plans := payments.InstallmentPlansWithoutInterest(totalCents, g.cfg.MaxInstallments, g.cfg.MinInstallmentCents)
		options := make([]InstallmentOption, 0, len(plans))
		for _, plan := range plans {
			options = append(options, InstallmentOption{
				Installments: plan.Installments,
				ValueCents:   plan.InstallmentValue,
				TotalCents:   plan.TotalValue,
				InterestFree: true,
				Title: fmt.Sprintf("%dx de %s sem juros",
					plan.Installments, money.FormatBRL(plan.InstallmentValue)),
			})
		}
		return options, nil
	}

	bin = strings.TrimSpace(bin)
	hasBin := bin != ""
	hasToken := savedTokenID != uuid.Nil
	if hasBin == hasToken {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"exactly one of card bin or saved card is required")
	}

	feeParams := pagbank.FeeParams{
		ValueCents:                totalCents,
		MaxInstallments:           g.cfg.MaxInstallments,
		MaxInstallmentsNoInterest: g.cfg.InstallmentsFreeOfFee,
	}
	if hasToken {
		connectData, err := g.connect.Data(ctx)
		if err != nil {
			return nil, err
		}
		if connectData == nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "pagbank account is not connected")
		}
		token, err := g.tokens.Resolve(ctx, savedTokenID, customerID, connectData.AccountID)
		if err != nil {
			return nil, err
		}
		feeParams.CardTokenID = token.ProviderTokenID
	} else {
		if len(bin) != 6 || strings.Trim(bin, "0123456789") != "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "card bin must be 6 digits")
		}
		feeParams.CardBin = bin
	}

	fees, err := g.api.CalculateFees(ctx, feeParams)
	if err != nil {
		return nil, err
	}

	var options []InstallmentOption
	for _, brand := range fees.PaymentMethods.CreditCard {
		for _, plan := range brand.InstallmentPlans {
			option := InstallmentOption{
				Installments: plan.Installments,
				ValueCents:   plan.InstallmentValue,
				TotalCents:   plan.Amount.Value,
				InterestFree: plan.InterestFree,
			}
			if plan.InterestFree {
				option.Title = fmt.Sprintf("%dx de %s sem juros",
					plan.Installments, money.FormatBRL(plan.InstallmentValue))
			} else {
				option.Title = fmt.Sprintf("%dx de %s (%s)",
					plan.Installments, money.FormatBRL(plan.InstallmentValue), money.FormatBRL(plan.Amount.Value))
			}
			options = append(options, option)
		}
	}
	sort.Slice(options, func(i, j int) bool {
		return options[i].Installments < options[j].Installments
	})
	return options, nil
}
