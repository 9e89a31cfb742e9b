package enums

import "fmt"

// GatewayID identifies one of the checkout payment gateways.
type GatewayID string

const (
	GatewayCreditCard GatewayID = "pagbank_credit_card"
	GatewayBoleto     GatewayID = "pagbank_boleto"
	GatewayPix        GatewayID = "pagbank_pix"
)

var validGatewayIDs = []GatewayID{
	GatewayCreditCard,
	GatewayBoleto,
	GatewayPix,
}

// String implements fmt.Stringer.
func (g GatewayID) String() string {
	return string(g)
}

// IsValid reports whether the value is known.
func (g GatewayID) IsValid() bool {
	for _, candidate := range validGatewayIDs {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGatewayID converts raw input into a GatewayID.
func ParseGatewayID(value string) (GatewayID, error) {
	for _, candidate := range validGatewayIDs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway id %q", value)
}
