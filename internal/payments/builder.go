package payments

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"

	"github.com/brcommerce/pagbank-gateway/pkg/db/models"
	pkgerrors "github.com/brcommerce/pagbank-gateway/pkg/errors"
	"github.com/brcommerce/pagbank-gateway/pkg/pagbank"
)

// Field limits enforced by the provider on address payloads.
const (
	maxStreetLen     = 160
	maxNumberLen     = 20
	maxComplementLen = 40
	maxLocalityLen   = 60
	maxCityLen       = 90
	maxRegionLen     = 2
)

const currencyBRL = "BRL"

// referenceID is the JSON envelope placed in the provider's reference_id
// field. The webhook handler decodes it to find the order and authenticate
// the delivery.
type referenceID struct {
	ID       int64  `json:"id"`
	Password string `json:"password"`
}

// BuildParams carries the order snapshot and per-attempt secrets shared by
// every payment method builder.
type BuildParams struct {
	Order           *models.Order
	StoreName       string
	NotificationURL string
	// Password is the per-attempt webhook shared secret, regenerated on
	// every charge attempt.
	Password string
	// Signature is the signed order id kept alongside the password for
	// in-flight orders created before the password scheme.
	Signature string
}

func (p BuildParams) validate() error {
	if p.Order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order is required")
	}
	if p.Password == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order password is required")
	}
	return nil
}

// CreditCardInput is the checkout-supplied card data. Exactly one of
// Encrypted or TokenID must be set.
type CreditCardInput struct {
	Encrypted    string
	TokenID      string
	Bin          string
	HolderName   string
	SecurityCode string
	Store        bool
	Installments int
	// IsSubscription marks the first charge of a subscription; the
	// provider then vaults the card for SUBSEQUENT renewals.
	IsSubscription bool
	// AmountOverrideCents substitutes a fee-adjusted total negotiated via
	// the fee calculation endpoint, used when interest is transferred to
	// the buyer.
	AmountOverrideCents int64
}

// ReferenceID encodes the order id and webhook password.
func ReferenceID(orderID int64, password string) string {
	encoded, _ := json.Marshal(referenceID{ID: orderID, Password: password})
	return string(encoded)
}

// ParseReferenceID decodes a reference_id envelope. Older payloads carry a
// bare numeric order id and no password.
func ParseReferenceID(raw string) (int64, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "reference_id is empty")
	}
	var ref referenceID
	if err := json.Unmarshal([]byte(raw), &ref); err == nil && ref.ID > 0 {
		return ref.ID, ref.Password, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", pkgerrors.New(pkgerrors.CodeValidation, "reference_id is malformed")
	}
	return id, "", nil
}

// TaxID returns the buyer document with every non-digit stripped. CPF wins
// when both documents are present.
func TaxID(order *models.Order) string {
	if digits := digitsOnly(order.CustomerCPF); digits != "" {
		return digits
	}
	return digitsOnly(order.CustomerCNPJ)
}

// BuildPhones parses the billing phone as a Brazilian number. Unparsable
// input yields no phones rather than an error, the provider accepts
// phone-less customers.
func BuildPhones(order *models.Order) []pagbank.Phone {
	raw := strings.TrimSpace(order.CustomerPhone)
	if raw == "" {
		return nil
	}
	parsed, err := phonenumbers.Parse(raw, "BR")
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return nil
	}

	national := phonenumbers.GetNationalSignificantNumber(parsed)
	if len(national) < 3 {
		return nil
	}
	phoneType := "HOME"
	switch phonenumbers.GetNumberType(parsed) {
	case phonenumbers.MOBILE, phonenumbers.FIXED_LINE_OR_MOBILE:
		phoneType = "MOBILE"
	}
	return []pagbank.Phone{{
		Country: strconv.Itoa(int(parsed.GetCountryCode())),
		Area:    national[:2],
		Number:  national[2:],
		Type:    phoneType,
	}}
}

// BuildItems converts order lines to provider items, skipping any line with
// a non-positive subtotal.
func BuildItems(order *models.Order) []pagbank.Item {
	items := make([]pagbank.Item, 0, len(order.Items))
	for _, line := range order.Items {
		if line.SubtotalCents <= 0 {
			continue
		}
		quantity := line.Quantity
		unitAmount := line.SubtotalCents
		if quantity > 1 && line.SubtotalCents%int64(quantity) == 0 {
			unitAmount = line.SubtotalCents / int64(quantity)
		} else {
			quantity = 1
		}
		items = append(items, pagbank.Item{
			ReferenceID: strconv.FormatInt(line.ID, 10),
			Name:        line.Name,
			Quantity:    quantity,
			UnitAmount:  unitAmount,
		})
	}
	return items
}

// BuildCustomer assembles the provider customer from the order snapshot.
func BuildCustomer(order *models.Order) pagbank.Customer {
	name := strings.TrimSpace(order.CustomerFirstName + " " + order.CustomerLastName)
	return pagbank.Customer{
		Name:   name,
		Email:  order.CustomerEmail,
		TaxID:  TaxID(order),
		Phones: BuildPhones(order),
	}
}

// BuildShippingAddress assembles the delivery address, falling back to the
// billing field whenever the shipping one is empty.
func BuildShippingAddress(order *models.Order) pagbank.Address {
	street := fallback(order.ShippingStreet, order.BillingStreet)
	number := fallback(order.ShippingNumber, order.BillingNumber)
	complement := fallback(order.ShippingComplement, order.BillingComplement)
	locality := fallback(order.ShippingLocality, order.BillingLocality)
	if strings.TrimSpace(locality) == "" {
		// The provider rejects an empty locality outright.
		locality = "N/A"
	}
	city := fallback(order.ShippingCity, order.BillingCity)
	region := fallback(order.ShippingRegionCode, order.BillingRegionCode)
	postcode := fallback(order.ShippingPostcode, order.BillingPostcode)

	return pagbank.Address{
		Street:     truncate(street, maxStreetLen),
		Number:     truncate(number, maxNumberLen),
		Complement: truncate(complement, maxComplementLen),
		Locality:   truncate(locality, maxLocalityLen),
		City:       truncate(city, maxCityLen),
		RegionCode: truncate(strings.ToUpper(region), maxRegionLen),
		Country:    "BRA",
		PostalCode: digitsOnly(postcode),
	}
}

// BuildBillingAddress assembles the billing address with the same limits.
func BuildBillingAddress(order *models.Order) pagbank.Address {
	locality := order.BillingLocality
	if strings.TrimSpace(locality) == "" {
		locality = "N/A"
	}
	return pagbank.Address{
		Street:     truncate(order.BillingStreet, maxStreetLen),
		Number:     truncate(order.BillingNumber, maxNumberLen),
		Complement: truncate(order.BillingComplement, maxComplementLen),
		Locality:   truncate(locality, maxLocalityLen),
		City:       truncate(order.BillingCity, maxCityLen),
		RegionCode: truncate(strings.ToUpper(order.BillingRegionCode), maxRegionLen),
		Country:    "BRA",
		PostalCode: digitsOnly(order.BillingPostcode),
	}
}

// BuildMetadata is the provider-side metadata bag echoed back on webhooks.
func BuildMetadata(params BuildParams) map[string]any {
	metadata := map[string]any{
		"order_id": params.Order.ID,
		"password": params.Password,
	}
	if params.Signature != "" {
		metadata["signature"] = params.Signature
	}
	return metadata
}

// ChargeAmount resolves the amount in cents for a charge attempt. A
// zero-value subscription order is substituted with a nominal 1 cent so the
// provider accepts the transaction; the caller refunds it right after.
func ChargeAmount(order *models.Order, isSubscription bool) (int64, error) {
	if order.TotalCents > 0 {
		return order.TotalCents, nil
	}
	if order.TotalCents == 0 && isSubscription {
		return 1, nil
	}
	return 0, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
}

func chargeItems(order *models.Order, amountCents int64) []pagbank.Item {
	items := BuildItems(order)
	if len(items) == 0 {
		items = []pagbank.Item{{
			Name:       "Pedido " + strconv.FormatInt(order.ID, 10),
			Quantity:   1,
			UnitAmount: amountCents,
		}}
	}
	return items
}

func description(params BuildParams) string {
	return fmt.Sprintf("Pedido %d - %s", params.Order.ID, params.StoreName)
}

func baseOrder(params BuildParams, amountCents int64) pagbank.OrderRequest {
	req := pagbank.OrderRequest{
		ReferenceID: ReferenceID(params.Order.ID, params.Password),
		Customer:    BuildCustomer(params.Order),
		Items:       chargeItems(params.Order, amountCents),
		Metadata:    BuildMetadata(params),
	}
	if params.NotificationURL != "" {
		req.NotificationURLs = []string{params.NotificationURL}
	}
	if params.Order.NeedsShipping {
		req.Shipping = &pagbank.Shipping{Address: BuildShippingAddress(params.Order)}
	}
	return req
}

// BuildCreditCardOrder builds a credit card charge request.
func BuildCreditCardOrder(params BuildParams, input CreditCardInput) (*pagbank.OrderRequest, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	encrypted := strings.TrimSpace(input.Encrypted)
	tokenID := strings.TrimSpace(input.TokenID)
	if encrypted == "" && tokenID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "an encrypted card or a saved card token is required")
	}
	if encrypted != "" && tokenID != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "encrypted card and saved card token are mutually exclusive")
	}

	amountCents, err := ChargeAmount(params.Order, input.IsSubscription)
	if err != nil {
		return nil, err
	}
	if input.AmountOverrideCents > 0 {
		amountCents = input.AmountOverrideCents
	}

	installments := input.Installments
	if installments < 1 {
		installments = 1
	}

	card := &pagbank.Card{
		Encrypted:    encrypted,
		ID:           tokenID,
		SecurityCode: strings.TrimSpace(input.SecurityCode),
		Store:        input.Store || input.IsSubscription,
	}
	if holder := strings.TrimSpace(input.HolderName); holder != "" {
		card.Holder = &pagbank.CardHolder{Name: holder}
	}

	charge := pagbank.ChargeRequest{
		ReferenceID: ReferenceID(params.Order.ID, params.Password),
		Description: description(params),
		Amount:      pagbank.Amount{Value: amountCents, Currency: currencyBRL},
		PaymentMethod: pagbank.PaymentMethod{
			Type:         "CREDIT_CARD",
			Installments: installments,
			Capture:      true,
			Card:         card,
		},
		Metadata: BuildMetadata(params),
	}
	if input.IsSubscription {
		charge.Recurring = &pagbank.Recurring{Type: "INITIAL"}
	}

	req := baseOrder(params, amountCents)
	req.Charges = []pagbank.ChargeRequest{charge}
	return &req, nil
}

// BuildRenewalOrder builds a SUBSEQUENT recurring charge from a vaulted
// token, no fresh authentication fields.
func BuildRenewalOrder(params BuildParams, tokenID, holderName string) (*pagbank.OrderRequest, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(tokenID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a saved card token is required for renewal")
	}

	amountCents, err := ChargeAmount(params.Order, true)
	if err != nil {
		return nil, err
	}

	card := &pagbank.Card{ID: strings.TrimSpace(tokenID)}
	if holder := strings.TrimSpace(holderName); holder != "" {
		card.Holder = &pagbank.CardHolder{Name: holder}
	}

	charge := pagbank.ChargeRequest{
		ReferenceID: ReferenceID(params.Order.ID, params.Password),
		Description: description(params),
		Amount:      pagbank.Amount{Value: amountCents, Currency: currencyBRL},
		PaymentMethod: pagbank.PaymentMethod{
			Type:         "CREDIT_CARD",
			Installments: 1,
			Capture:      true,
			Card:         card,
		},
		Recurring: &pagbank.Recurring{Type: "SUBSEQUENT"},
		Metadata:  BuildMetadata(params),
	}

	req := baseOrder(params, amountCents)
	req.Charges = []pagbank.ChargeRequest{charge}
	return &req, nil
}

// BuildBoletoOrder builds a boleto charge request due expirationDays from
// now.
func BuildBoletoOrder(params BuildParams, expirationDays int, now time.Time) (*pagbank.OrderRequest, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if expirationDays < 1 {
		expirationDays = 1
	}

	amountCents, err := ChargeAmount(params.Order, false)
	if err != nil {
		return nil, err
	}

	holderName := strings.TrimSpace(params.Order.CustomerFirstName + " " + params.Order.CustomerLastName)
	charge := pagbank.ChargeRequest{
		ReferenceID: ReferenceID(params.Order.ID, params.Password),
		Description: description(params),
		Amount:      pagbank.Amount{Value: amountCents, Currency: currencyBRL},
		PaymentMethod: pagbank.PaymentMethod{
			Type: "BOLETO",
			Boleto: &pagbank.Boleto{
				DueDate: now.UTC().AddDate(0, 0, expirationDays).Format("2006-01-02"),
				InstructionLines: pagbank.InstructionLines{
					Line1: "Pagamento referente ao pedido " + strconv.FormatInt(params.Order.ID, 10),
					Line2: params.StoreName,
				},
				Holder: pagbank.BoletoHolder{
					Name:    holderName,
					TaxID:   TaxID(params.Order),
					Email:   params.Order.CustomerEmail,
					Address: BuildBillingAddress(params.Order),
				},
			},
		},
		Metadata: BuildMetadata(params),
	}

	req := baseOrder(params, amountCents)
	req.Charges = []pagbank.ChargeRequest{charge}
	return &req, nil
}

// BuildPixOrder builds a Pix QR code request expiring expirationMinutes
// from now.
func BuildPixOrder(params BuildParams, expirationMinutes int, now time.Time) (*pagbank.OrderRequest, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if expirationMinutes < 1 {
		expirationMinutes = 1
	}

	amountCents, err := ChargeAmount(params.Order, false)
	if err != nil {
		return nil, err
	}

	req := baseOrder(params, amountCents)
	req.QRCodes = []pagbank.QRCodeRequest{{
		Amount:         pagbank.Amount{Value: amountCents},
		ExpirationDate: now.UTC().Add(time.Duration(expirationMinutes) * time.Minute).Format(time.RFC3339),
	}}
	return &req, nil
}

func fallback(value, alternative string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return alternative
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
