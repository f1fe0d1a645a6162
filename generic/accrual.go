package generic

import "github.com/shopspring/decimal"

// =============================================================================
// PRO-RATA ARITHMETIC - How partial-year entitlements are scaled
// =============================================================================

// DaysPerAccrualMonth is the fixed month length used for pro-rata entitlement.
// Calendar months are not used: a BS month runs 29 to 32 days.
const DaysPerAccrualMonth = 30

// MonthsPerYear divides the annual entitlement into monthly slices.
var MonthsPerYear = decimal.NewFromInt(12)

// ElapsedAccrualMonths returns floor((to - from) / 30). The division floors
// toward negative infinity so a "to" before "from" never yields zero.
func ElapsedAccrualMonths(from, to TimePoint) int {
	return floorDiv(DaysBetween(from, to), DaysPerAccrualMonth)
}

// ProRata scales an annual amount to the given number of months and floors
// the result to one decimal: ProRata(13 days, 5) = 5.4 days.
func ProRata(annual Amount, months int) Amount {
	return annual.Mul(decimal.NewFromInt(int64(months))).Div(MonthsPerYear).FloorTenth()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
