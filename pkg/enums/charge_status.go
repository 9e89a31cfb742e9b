package enums

import "fmt"

// ChargeStatus mirrors the provider's charge statuses as delivered on
// charge responses and webhook notifications.
type ChargeStatus string

const (
	ChargeStatusAuthorized ChargeStatus = "AUTHORIZED"
	ChargeStatusPaid       ChargeStatus = "PAID"
	ChargeStatusInAnalysis ChargeStatus = "IN_ANALYSIS"
	ChargeStatusDeclined   ChargeStatus = "DECLINED"
	ChargeStatusCanceled   ChargeStatus = "CANCELED"
	ChargeStatusWaiting    ChargeStatus = "WAITING"
)

var validChargeStatuses = []ChargeStatus{
	ChargeStatusAuthorized,
	ChargeStatusPaid,
	ChargeStatusInAnalysis,
	ChargeStatusDeclined,
	ChargeStatusCanceled,
	ChargeStatusWaiting,
}

// String implements fmt.Stringer.
func (c ChargeStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c ChargeStatus) IsValid() bool {
	for _, candidate := range validChargeStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseChargeStatus converts raw input into a ChargeStatus.
func ParseChargeStatus(value string) (ChargeStatus, error) {
	for _, candidate := range validChargeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid charge status %q", value)
}
