package tuition

import (
	"time"

	"github.com/univbase/backend-univ/internal/finance"
)

// Schema declares the recognised tuition cost categories. Base tuition is
// the only mandatory line; everything else is an additional service fee.
var Schema = finance.Schema{
	Mandatory: []string{"base_tuition"},
	Optional: []string{
		"lab_fees",
		"library_fees",
		"technology_fees",
		"activity_fees",
		"health_insurance",
		"dormitory_fees",
		"meal_plan_fees",
	},
}

// SplitInstallments divides total into count equal payments in whole minor
// units. The remainder cents land on the first installment so the sum always
// equals the total exactly. Due dates advance month by month from firstDue.
func SplitInstallments(total finance.Money, count int, firstDue time.Time) []Installment {
	if count < 1 {
		count = 1
	}
	base := total / finance.Money(count)
	remainder := total % finance.Money(count)
	out := make([]Installment, 0, count)
	for i := 0; i < count; i++ {
		amount := base
		if i == 0 {
			amount += remainder
		}
		out = append(out, Installment{
			InstallmentCount:  count,
			InstallmentNumber: i + 1,
			Amount:            amount,
			DueDate:           firstDue.AddDate(0, i, 0),
		})
	}
	return out
}
