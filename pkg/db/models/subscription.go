package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

// Subscription is a recurring agreement renewed by charging the vaulted
// card token. ParentOrderID points at the order that opened it; each
// renewal creates a fresh order.
type Subscription struct {
	ID             uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	ParentOrderID  int64                    `gorm:"column:parent_order_id;not null;index"`
	Status         enums.SubscriptionStatus `gorm:"column:status;not null;default:'active'"`
	TotalCents     int64                    `gorm:"column:total_cents;not null"`
	IntervalDays   int                      `gorm:"column:interval_days;not null"`
	NextPaymentAt  time.Time                `gorm:"column:next_payment_at;not null;index"`
	PaymentTokenID *uuid.UUID               `gorm:"column:payment_token_id;type:uuid"`
	FailureCount   int                      `gorm:"column:failure_count;not null;default:0"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
