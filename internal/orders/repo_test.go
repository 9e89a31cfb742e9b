package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  customer_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  gateway_id TEXT,
  currency TEXT NOT NULL DEFAULT 'BRL',
  total_cents INTEGER NOT NULL,
  customer_email TEXT NOT NULL,
  customer_first_name TEXT,
  customer_last_name TEXT,
  customer_phone TEXT,
  customer_cpf TEXT,
  customer_cnpj TEXT,
  billing_street TEXT,
  billing_number TEXT,
  billing_complement TEXT,
  billing_locality TEXT,
  billing_city TEXT,
  billing_region_code TEXT,
  billing_postcode TEXT,
  shipping_street TEXT,
  shipping_number TEXT,
  shipping_complement TEXT,
  shipping_locality TEXT,
  shipping_city TEXT,
  shipping_region_code TEXT,
  shipping_postcode TEXT,
  needs_shipping INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL DEFAULT 1,
  subtotal_cents INTEGER NOT NULL,
  is_fee INTEGER NOT NULL DEFAULT 0
);`
	orderMeta := `
CREATE TABLE IF NOT EXISTS order_meta (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  key TEXT NOT NULL,
  value TEXT NOT NULL,
  CONSTRAINT idx_order_meta_key UNIQUE (order_id, key)
);`
	orderNotes := `
CREATE TABLE IF NOT EXISTS order_notes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_id INTEGER NOT NULL,
  note TEXT NOT NULL,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(orderMeta).Error)
	require.NoError(t, db.Exec(orderNotes).Error)
	return db
}

func newOrder(t *testing.T, db *gorm.DB, totalCents int64) *models.Order {
	t.Helper()

	order := &models.Order{
		CustomerID:    uuid.New(),
		Status:        enums.OrderStatusPending,
		Currency:      "BRL",
		TotalCents:    totalCents,
		CustomerEmail: "comprador@example.com",
	}
	require.NoError(t, db.Create(order).Error)
	require.NoError(t, db.Create(&models.OrderItem{
		OrderID:       order.ID,
		Name:          "Produto Teste",
		Quantity:      1,
		SubtotalCents: totalCents,
	}).Error)
	return order
}

func TestRepositoryFindPreloadsRelations(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)

	order := newOrder(t, db, 15000)
	require.NoError(t, repo.SetMeta(context.Background(), order.ID, MetaPassword, "secret"))

	found, err := repo.Find(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Len(t, found.Items, 1)
	require.Len(t, found.Meta, 1)
	assert.Equal(t, "Produto Teste", found.Items[0].Name)
	assert.Equal(t, MetaPassword, found.Meta[0].Key)

	missing, err := repo.Find(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositorySetMetaUpserts(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := newOrder(t, db, 1000)

	require.NoError(t, repo.SetMeta(context.Background(), order.ID, MetaChargeID, "CHAR_1"))
	require.NoError(t, repo.SetMeta(context.Background(), order.ID, MetaChargeID, "CHAR_2"))

	value, err := repo.GetMeta(context.Background(), order.ID, MetaChargeID)
	require.NoError(t, err)
	assert.Equal(t, "CHAR_2", value)

	var count int64
	require.NoError(t, db.Model(&models.OrderMeta{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRepositoryGetMetaMissingKey(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := newOrder(t, db, 1000)

	value, err := repo.GetMeta(context.Background(), order.ID, MetaBoletoBarcode)
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestRepositoryNotes(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	order := newOrder(t, db, 1000)

	require.NoError(t, repo.AddNote(context.Background(), order.ID, "primeira"))
	require.NoError(t, repo.AddNote(context.Background(), order.ID, "segunda"))

	notes, err := repo.ListNotes(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "primeira", notes[0].Note)
	assert.Equal(t, "segunda", notes[1].Note)
}
