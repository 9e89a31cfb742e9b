package enums

// RecurringType marks a card charge as the first or a follow-up charge of a
// subscription, which the provider requires for merchant-initiated
// transactions.
type RecurringType string

const (
	RecurringInitial    RecurringType = "INITIAL"
	RecurringSubsequent RecurringType = "SUBSEQUENT"
)

// String implements fmt.Stringer.
func (r RecurringType) String() string {
	return string(r)
}
