package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

// Repository handles subscription persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sub *models.Subscription) error
	Find(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	Update(ctx context.Context, sub *models.Subscription) error
	ListDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Subscription, error)
	AttachToken(ctx context.Context, parentOrderID int64, tokenID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscription repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

// Find loads the subscription, or nil when unknown.
func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// ListDue returns renewable subscriptions whose next payment is at or before
// cutoff, oldest first.
func (r *repository) ListDue(ctx context.Context, cutoff time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	query := r.db.WithContext(ctx).
		Where("status IN ? AND next_payment_at <= ?",
			[]enums.SubscriptionStatus{enums.SubscriptionStatusActive, enums.SubscriptionStatusPastDue},
			cutoff).
		Order("next_payment_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// AttachToken points every subscription opened by the parent order at the
// vaulted card token.
func (r *repository) AttachToken(ctx context.Context, parentOrderID int64, tokenID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("parent_order_id = ?", parentOrderID).
		Update("payment_token_id", tokenID).Error
}
