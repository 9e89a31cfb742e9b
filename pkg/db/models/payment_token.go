package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/pkg/enums"
)

// PaymentToken is a vaulted card reference issued by the provider. Tokens
// are minted under a connect account; one issued under a different account
// (or environment) cannot charge, so reads always filter by the current
// account id.
type PaymentToken struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID       `gorm:"column:customer_id;type:uuid;not null;index"`
	GatewayID        enums.GatewayID `gorm:"column:gateway_id;not null"`
	ConnectAccountID string          `gorm:"column:connect_account_id;not null;index"`
	ProviderTokenID  string          `gorm:"column:provider_token_id;not null;unique"`
	Bin              string          `gorm:"column:bin"`
	Brand            string          `gorm:"column:brand"`
	LastFour         string          `gorm:"column:last_four"`
	ExpMonth         int             `gorm:"column:exp_month"`
	ExpYear          int             `gorm:"column:exp_year"`
	HolderName       string          `gorm:"column:holder_name"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
