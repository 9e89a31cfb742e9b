package payments

// InstallmentPlan is one interest-free payment option offered at checkout.
type InstallmentPlan struct {
	Installments     int   `json:"installments"`
	InstallmentValue int64 `json:"installment_value"`
	TotalValue       int64 `json:"total_value"`
	InterestFree     bool  `json:"interest_free"`
}

// InstallmentPlansWithoutInterest computes the interest-free plans for a
// total. Per-installment values round up so the last installment never
// overshoots; the offered count shrinks until every installment clears
// minInstallmentCents.
func InstallmentPlansWithoutInterest(totalCents int64, maxInstallments int, minInstallmentCents int64) []InstallmentPlan {
	if totalCents <= 0 || maxInstallments < 1 {
		return nil
	}
	if minInstallmentCents < 0 {
		minInstallmentCents = 0
	}

	plans := make([]InstallmentPlan, 0, maxInstallments)
	for count := 1; count <= maxInstallments; count++ {
		value := (totalCents + int64(count) - 1) / int64(count)
		if count > 1 && minInstallmentCents > 0 && value < minInstallmentCents {
			break
		}
		plans = append(plans, InstallmentPlan{
			Installments:     count,
			InstallmentValue: value,
			TotalValue:       totalCents,
			InterestFree:     true,
		})
	}
	return plans
}
