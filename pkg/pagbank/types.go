package pagbank

// Wire shapes for the provider REST API. Amounts are always integer cents.

type Phone struct {
	Country string `json:"country"`
	Area    string `json:"area"`
	Number  string `json:"number"`
	Type    string `json:"type"`
}

type Customer struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	TaxID  string  `json:"tax_id"`
	Phones []Phone `json:"phones,omitempty"`
}

type Item struct {
	ReferenceID string `json:"reference_id,omitempty"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
}

type Address struct {
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement,omitempty"`
	Locality   string `json:"locality"`
	City       string `json:"city"`
	RegionCode string `json:"region_code"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type Shipping struct {
	Address Address `json:"address"`
}

type Interest struct {
	Total        int64 `json:"total"`
	Installments int   `json:"installments,omitempty"`
}

type BuyerFees struct {
	Interest Interest `json:"interest"`
}

type Fees struct {
	Buyer BuyerFees `json:"buyer"`
}

type AmountSummary struct {
	Total    int64 `json:"total"`
	Paid     int64 `json:"paid"`
	Refunded int64 `json:"refunded"`
}

type Amount struct {
	Value    int64          `json:"value"`
	Currency string         `json:"currency,omitempty"`
	Summary  *AmountSummary `json:"summary,omitempty"`
	Fees     *Fees          `json:"fees,omitempty"`
}

type CardHolder struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
}

type Card struct {
	// Encrypted is the card blob produced by the provider's browser SDK.
	// Mutually exclusive with ID, which references a vaulted token.
	Encrypted    string      `json:"encrypted,omitempty"`
	ID           string      `json:"id,omitempty"`
	SecurityCode string      `json:"security_code,omitempty"`
	Holder       *CardHolder `json:"holder,omitempty"`
	Store        bool        `json:"store,omitempty"`

	// Response-only fields.
	Brand       string `json:"brand,omitempty"`
	FirstDigits string `json:"first_digits,omitempty"`
	LastDigits  string `json:"last_digits,omitempty"`
	ExpMonth    int    `json:"exp_month,omitempty"`
	ExpYear     int    `json:"exp_year,omitempty"`
}

type InstructionLines struct {
	Line1 string `json:"line_1"`
	Line2 string `json:"line_2"`
}

type BoletoHolder struct {
	Name    string  `json:"name"`
	TaxID   string  `json:"tax_id"`
	Email   string  `json:"email"`
	Address Address `json:"address"`
}

type Boleto struct {
	DueDate          string           `json:"due_date"`
	InstructionLines InstructionLines `json:"instruction_lines"`
	Holder           BoletoHolder     `json:"holder"`

	// Response-only fields.
	Barcode          string `json:"barcode,omitempty"`
	FormattedBarcode string `json:"formatted_barcode,omitempty"`
}

type Recurring struct {
	Type string `json:"type"`
}

type PaymentMethod struct {
	Type           string  `json:"type"`
	Installments   int     `json:"installments,omitempty"`
	Capture        bool    `json:"capture,omitempty"`
	SoftDescriptor string  `json:"soft_descriptor,omitempty"`
	Card           *Card   `json:"card,omitempty"`
	Boleto         *Boleto `json:"boleto,omitempty"`
}

type PaymentResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
}

type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Media string `json:"media,omitempty"`
	Type  string `json:"type,omitempty"`
}

type ChargeRequest struct {
	ReferenceID   string         `json:"reference_id"`
	Description   string         `json:"description"`
	Amount        Amount         `json:"amount"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	Recurring     *Recurring     `json:"recurring,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

type Charge struct {
	ID              string           `json:"id"`
	ReferenceID     string           `json:"reference_id"`
	Status          string           `json:"status"`
	CreatedAt       string           `json:"created_at,omitempty"`
	PaidAt          string           `json:"paid_at,omitempty"`
	Description     string           `json:"description,omitempty"`
	Amount          Amount           `json:"amount"`
	PaymentResponse *PaymentResponse `json:"payment_response,omitempty"`
	PaymentMethod   PaymentMethod    `json:"payment_method"`
	Links           []Link           `json:"links,omitempty"`
}

type QRCodeRequest struct {
	Amount         Amount `json:"amount"`
	ExpirationDate string `json:"expiration_date"`
}

type QRCode struct {
	ID             string `json:"id,omitempty"`
	Text           string `json:"text,omitempty"`
	Amount         Amount `json:"amount"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Links          []Link `json:"links,omitempty"`
}

type OrderRequest struct {
	ReferenceID      string          `json:"reference_id"`
	Customer         Customer        `json:"customer"`
	Items            []Item          `json:"items"`
	Shipping         *Shipping       `json:"shipping,omitempty"`
	NotificationURLs []string        `json:"notification_urls,omitempty"`
	Charges          []ChargeRequest `json:"charges,omitempty"`
	QRCodes          []QRCodeRequest `json:"qr_codes,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
}

type OrderResponse struct {
	ID          string   `json:"id"`
	ReferenceID string   `json:"reference_id"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Customer    Customer `json:"customer"`
	Items       []Item   `json:"items"`
	Charges     []Charge `json:"charges,omitempty"`
	QRCodes     []QRCode `json:"qr_codes,omitempty"`
	Links       []Link   `json:"links,omitempty"`
}

// ErrorResponse is the provider's error envelope.
type ErrorResponse struct {
	ErrorMessages []ErrorMessage `json:"error_messages"`
}

type ErrorMessage struct {
	Code          string `json:"code,omitempty"`
	Description   string `json:"description,omitempty"`
	ParameterName string `json:"parameter_name,omitempty"`
}

// InstallmentPlan is one entry of the fee calculation response.
type InstallmentPlan struct {
	Installments     int    `json:"installments"`
	InstallmentValue int64  `json:"installment_value"`
	InterestFree     bool   `json:"interest_free"`
	Amount           Amount `json:"amount"`
}

type CreditCardFees struct {
	InstallmentPlans []InstallmentPlan `json:"installment_plans"`
}

type FeesResponse struct {
	PaymentMethods struct {
		CreditCard map[string]CreditCardFees `json:"credit_card"`
	} `json:"payment_methods"`
}

// PublicKeyResponse carries the card-encryption public key tied to a
// connect account.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// oauthTokenResponse is the raw token endpoint payload; expires_in is
// relative seconds and gets normalized into ConnectData.
type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	AccountID    string `json:"account_id"`
	TokenType    string `json:"token_type"`
}
