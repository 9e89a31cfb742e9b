package gateways

import (
	"context"

	"github.com/google/uuid"

	"github.com/brcommerce/pagbank-gateway/internal/connect"
	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	"github.com/brcommerce/pagbank-gateway/pkg/enums"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

// Gateway is one checkout payment method.
type Gateway interface {
	ID() enums.GatewayID
	Title() string
	// IsAvailable reports whether the gateway may be offered for a cart
	// total in the given currency.
	IsAvailable(ctx context.Context, totalCents int64, currency string) bool
	ProcessPayment(ctx context.Context, order *models.Order, input CheckoutInput) (*PaymentResult, error)
}

// CheckoutInput is the payment payload submitted with a checkout.
type CheckoutInput struct {
	CustomerID uuid.UUID

	// Credit card fields. EncryptedCard carries a fresh card from the
	// browser SDK; SavedTokenID references a vaulted card instead.
	EncryptedCard string
	CardHolder    string
	CardBin       string
	SecurityCode  string
	SavedTokenID  uuid.UUID
	SaveCard      bool
	Installments  int

	// IsSubscription marks the first charge of a recurring agreement.
	IsSubscription bool
}

// BoletoDetails are the customer-facing boleto fields.
type BoletoDetails struct {
	Barcode          string `json:"barcode"`
	FormattedBarcode string `json:"formatted_barcode,omitempty"`
	DueDate          string `json:"due_date"`
	PDFLink          string `json:"pdf_link,omitempty"`
	ImageLink        string `json:"image_link,omitempty"`
}

// PixDetails are the customer-facing Pix fields.
type PixDetails struct {
	QRCodeText  string `json:"qr_code_text"`
	QRCodeImage string `json:"qr_code_image,omitempty"`
	ExpiresAt   string `json:"expires_at,omitempty"`
}

// PaymentResult is the outcome of a accepted charge attempt.
type PaymentResult struct {
	Gateway         enums.GatewayID    `json:"gateway"`
	OrderID         int64              `json:"order_id"`
	OrderStatus     enums.OrderStatus  `json:"order_status"`
	ProviderOrderID string             `json:"provider_order_id"`
	ChargeID        string             `json:"charge_id,omitempty"`
	ChargeStatus    enums.ChargeStatus `json:"charge_status"`
	Boleto          *BoletoDetails     `json:"boleto,omitempty"`
	Pix             *PixDetails        `json:"pix,omitempty"`
}

// providerAPI is the slice of the provider client the gateways consume.
type providerAPI interface {
	CreateOrder(ctx context.Context, req pagbank.OrderRequest) (*pagbank.OrderResponse, error)
	CancelCharge(ctx context.Context, chargeID string, amountCents int64) (*pagbank.Charge, error)
	CalculateFees(ctx context.Context, params pagbank.FeeParams) (*pagbank.FeesResponse, error)
}

// connectStore exposes the merchant credential state.
type connectStore interface {
	Data(ctx context.Context) (*connect.Data, error)
}

// Registry holds the configured gateways in display order.
type Registry struct {
	order    []enums.GatewayID
	gateways map[enums.GatewayID]Gateway
}

// NewRegistry constructs an empty gateway registry.
func NewRegistry() *Registry {
	return &Registry{gateways: map[enums.GatewayID]Gateway{}}
}

// Register adds a gateway. Re-registering an id replaces it in place.
func (r *Registry) Register(gateway Gateway) {
	if gateway == nil {
		return
	}
	if _, exists := r.gateways[gateway.ID()]; !exists {
		r.order = append(r.order, gateway.ID())
	}
	r.gateways[gateway.ID()] = gateway
}

// Get returns the gateway registered under id.
func (r *Registry) Get(id enums.GatewayID) (Gateway, bool) {
	gateway, ok := r.gateways[id]
	return gateway, ok
}

// Available lists the gateways offered for a cart total.
func (r *Registry) Available(ctx context.Context, totalCents int64, currency string) []Gateway {
	available := make([]Gateway, 0, len(r.order))
	for _, id := range r.order {
		gateway := r.gateways[id]
		if gateway.IsAvailable(ctx, totalCents, currency) {
			available = append(available, gateway)
		}
	}
	return available
}
