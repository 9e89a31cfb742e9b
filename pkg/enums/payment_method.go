package enums

import "fmt"

// PaymentMethodType is the provider-side payment method on a charge.
type PaymentMethodType string

const (
	PaymentMethodCreditCard PaymentMethodType = "CREDIT_CARD"
	PaymentMethodBoleto     PaymentMethodType = "BOLETO"
	PaymentMethodPix        PaymentMethodType = "PIX"
)

var validPaymentMethodTypes = []PaymentMethodType{
	PaymentMethodCreditCard,
	PaymentMethodBoleto,
	PaymentMethodPix,
}

// String implements fmt.Stringer.
func (p PaymentMethodType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PaymentMethodType) IsValid() bool {
	for _, candidate := range validPaymentMethodTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentMethodType converts raw input into a PaymentMethodType.
func ParsePaymentMethodType(value string) (PaymentMethodType, error) {
	for _, candidate := range validPaymentMethodTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method type %q", value)
}
