package tokens

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

// Service vaults and resolves reusable card tokens.
type Service interface {
	SaveCard(ctx context.Context, customerID uuid.UUID, connectAccountID string, card pagbank.Card) (*models.PaymentToken, error)
	Resolve(ctx context.Context, id uuid.UUID, customerID uuid.UUID, connectAccountID string) (*models.PaymentToken, error)
	List(ctx context.Context, customerID uuid.UUID, connectAccountID string) ([]models.PaymentToken, error)
	Delete(ctx context.Context, id uuid.UUID, customerID uuid.UUID) error
}

// ServiceParams groups dependencies for the token service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService constructs a payment token service.
func NewService(params ServiceParams) (*service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tokens repo required")
	}
	return &service{repo: params.Repo}, nil
}

// SaveCard persists the provider-issued token from a charge response. A
// token the same customer already vaulted under the same account is
// returned rather than duplicated; another customer's vault never matches.
func (s *service) SaveCard(ctx context.Context, customerID uuid.UUID, connectAccountID string, card pagbank.Card) (*models.PaymentToken, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.TrimSpace(connectAccountID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "connect account id is required")
	}
	if strings.TrimSpace(card.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "card token id is required")
	}

	existing, err := s.repo.FindByProviderID(ctx, card.ID, customerID, connectAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "looking up card token")
	}
	if existing != nil {
		return existing, nil
	}

	holder := ""
	if card.Holder != nil {
		holder = card.Holder.Name
	}
	token := &models.PaymentToken{
		ID:               uuid.New(),
		CustomerID:       customerID,
		GatewayID:        enums.GatewayCreditCard,
		ConnectAccountID: connectAccountID,
		ProviderTokenID:  card.ID,
		Bin:              card.FirstDigits,
		Brand:            card.Brand,
		LastFour:         card.LastDigits,
		ExpMonth:         card.ExpMonth,
		ExpYear:          card.ExpYear,
		HolderName:       holder,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving card token")
	}
	return token, nil
}

// Resolve loads a vaulted token, enforcing both owner and connect account
// scope. A token held by another customer or minted under another account
// resolves to not found.
func (s *service) Resolve(ctx context.Context, id uuid.UUID, customerID uuid.UUID, connectAccountID string) (*models.PaymentToken, error) {
	token, err := s.repo.Find(ctx, id, connectAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading card token")
	}
	if token == nil || token.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "card token not found")
	}
	return token, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID, connectAccountID string) ([]models.PaymentToken, error) {
	list, err := s.repo.ListByCustomer(ctx, customerID, connectAccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing card tokens")
	}
	return list, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, customerID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting card token")
	}
	return nil
}
