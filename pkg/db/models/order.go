package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

// Order is the shop-side order the gateways charge against. Billing and
// shipping are flattened onto the row; free-form per-order state lives in
// OrderMeta.
type Order struct {
	ID         int64             `gorm:"primaryKey;autoIncrement"`
	CustomerID uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;index"`
	Status     enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	GatewayID  enums.GatewayID   `gorm:"column:gateway_id"`
	Currency   string            `gorm:"column:currency;not null;default:'BRL'"`
	TotalCents int64             `gorm:"column:total_cents;not null"`

	CustomerEmail     string `gorm:"column:customer_email;not null"`
	CustomerFirstName string `gorm:"column:customer_first_name"`
	CustomerLastName  string `gorm:"column:customer_last_name"`
	CustomerPhone     string `gorm:"column:customer_phone"`
	CustomerCPF       string `gorm:"column:customer_cpf"`
	CustomerCNPJ      string `gorm:"column:customer_cnpj"`

	BillingStreet     string `gorm:"column:billing_street"`
	BillingNumber     string `gorm:"column:billing_number"`
	BillingComplement string `gorm:"column:billing_complement"`
	BillingLocality   string `gorm:"column:billing_locality"`
	BillingCity       string `gorm:"column:billing_city"`
	BillingRegionCode string `gorm:"column:billing_region_code"`
	BillingPostcode   string `gorm:"column:billing_postcode"`

	ShippingStreet     string `gorm:"column:shipping_street"`
	ShippingNumber     string `gorm:"column:shipping_number"`
	ShippingComplement string `gorm:"column:shipping_complement"`
	ShippingLocality   string `gorm:"column:shipping_locality"`
	ShippingCity       string `gorm:"column:shipping_city"`
	ShippingRegionCode string `gorm:"column:shipping_region_code"`
	ShippingPostcode   string `gorm:"column:shipping_postcode"`
	NeedsShipping      bool   `gorm:"column:needs_shipping;not null;default:false"`

	PaidAt    *time.Time `gorm:"column:paid_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID"`
	Meta  []OrderMeta `gorm:"foreignKey:OrderID"`
}

// OrderItem is a charged line item. SubtotalCents already includes line
// discounts; fee lines added after the fact (installment interest) are also
// stored here with IsFee set.
type OrderItem struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	OrderID       int64  `gorm:"column:order_id;not null;index"`
	Name          string `gorm:"column:name;not null"`
	Quantity      int    `gorm:"column:quantity;not null;default:1"`
	SubtotalCents int64  `gorm:"column:subtotal_cents;not null"`
	IsFee         bool   `gorm:"column:is_fee;not null;default:false"`
}

// OrderMeta is a keyed order attribute (_pagbank_order_id, passwords,
// boleto links and the like).
type OrderMeta struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	OrderID int64  `gorm:"column:order_id;not null;uniqueIndex:idx_order_meta_key"`
	Key     string `gorm:"column:key;not null;uniqueIndex:idx_order_meta_key"`
	Value   string `gorm:"column:value;not null"`
}

// OrderNote is an operator-visible annotation appended during processing.
type OrderNote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	OrderID   int64     `gorm:"column:order_id;not null;index"`
	Note      string    `gorm:"column:note;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
