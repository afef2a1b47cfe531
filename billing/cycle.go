package billing

import "time"

// =============================================================================
// CYCLE RESOLVER - Which statement does a charge belong to?
// =============================================================================

// ResolveCycle returns the statement month a charge dated on date belongs to,
// given the card's statement closing day.
//
// Standard statement-cutoff semantics: a charge on or after the closing day
// rolls into the following month's bill, a charge before it stays on the
// current month's bill. The function is monotonic in the day of month with
// exactly one step, at closingDay.
//
// closingDay is clamped to [1, 31]. Normalizing a charge date whose day
// exceeds the month length is the caller's responsibility.
func ResolveCycle(date time.Time, closingDay int) Month {
	if closingDay < 1 {
		closingDay = 1
	}
	if closingDay > 31 {
		closingDay = 31
	}

	cycle := MonthOf(date)
	if date.Day() >= closingDay {
		cycle = cycle.Next()
	}
	return cycle
}
