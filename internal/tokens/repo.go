package tokens

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
)

// Repository handles vaulted card persistence. Every read is scoped to a
// connect account id: tokens minted under a different merchant account (or
// environment) cannot charge and must stay invisible.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, token *models.PaymentToken) error
	Find(ctx context.Context, id uuid.UUID, connectAccountID string) (*models.PaymentToken, error)
	FindByProviderID(ctx context.Context, providerTokenID string, customerID uuid.UUID, connectAccountID string) (*models.PaymentToken, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, connectAccountID string) ([]models.PaymentToken, error)
	Delete(ctx context.Context, id uuid.UUID, customerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment token repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, token *models.PaymentToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID, connectAccountID string) (*models.PaymentToken, error) {
	var token models.PaymentToken
	if err := r.db.WithContext(ctx).
		Where("id = ? AND connect_account_id = ?", id, connectAccountID).
		First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *repository) FindByProviderID(ctx context.Context, providerTokenID string, customerID uuid.UUID, connectAccountID string) (*models.PaymentToken, error) {
	var token models.PaymentToken
	if err := r.db.WithContext(ctx).
		Where("provider_token_id = ? AND customer_id = ? AND connect_account_id = ?", providerTokenID, customerID, connectAccountID).
		First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, connectAccountID string) ([]models.PaymentToken, error) {
	var list []models.PaymentToken
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND connect_account_id = ?", customerID, connectAccountID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND customer_id = ?", id, customerID).
		Delete(&models.PaymentToken{}).Error
}
