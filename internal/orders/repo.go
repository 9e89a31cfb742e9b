package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
)

// Repository handles order persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, id int64) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	GetMeta(ctx context.Context, orderID int64, key string) (string, error)
	SetMeta(ctx context.Context, orderID int64, key, value string) error
	AddItem(ctx context.Context, item *models.OrderItem) error
	AddNote(ctx context.Context, orderID int64, note string) error
	ListNotes(ctx context.Context, orderID int64) ([]models.OrderNote, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// Find loads the order with its items and meta, or nil when unknown.
func (r *repository) Find(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Meta").
		First(&order, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) Update(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Omit("Items", "Meta").
		Save(order).Error
}

// GetMeta returns the stored value, or "" when the key was never written.
func (r *repository) GetMeta(ctx context.Context, orderID int64, key string) (string, error) {
	var meta models.OrderMeta
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND key = ?", orderID, key).
		First(&meta).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

func (r *repository) SetMeta(ctx context.Context, orderID int64, key, value string) error {
	meta := models.OrderMeta{OrderID: orderID, Key: key, Value: value}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&meta).Error
}

func (r *repository) AddItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) AddNote(ctx context.Context, orderID int64, note string) error {
	return r.db.WithContext(ctx).Create(&models.OrderNote{OrderID: orderID, Note: note}).Error
}

func (r *repository) ListNotes(ctx context.Context, orderID int64) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}
