// Package recurrence computes the next occurrence date of a cash-flow
// schedule. It is pure date arithmetic: no I/O, no clock.
package recurrence

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/akozlov/cashfolio/internal/domain"
)

// Next returns the occurrence that follows d for the given frequency.
// The second return is false when the frequency does not recur (NONE or an
// unknown value). When a result is returned it is strictly after d.
//
// Month-based frequencies clamp to the last day of the target month when the
// reference day does not exist there: Jan 31 + 1 month is Feb 28, or Feb 29
// in a leap year.
func Next(d civil.Date, f domain.Frequency) (civil.Date, bool) {
	switch f {
	case domain.FrequencyDaily:
		return d.AddDays(1), true
	case domain.FrequencyWeekly:
		return d.AddDays(7), true
	case domain.FrequencyMonthly:
		return addMonthsClamped(d, 1), true
	case domain.FrequencyQuarterly:
		return addMonthsClamped(d, 3), true
	case domain.FrequencyYearly:
		return addMonthsClamped(d, 12), true
	}
	return civil.Date{}, false
}

// addMonthsClamped advances d by n months, keeping the day of month where
// possible and clamping to the month's last day otherwise. time.AddDate is
// unsuitable here because it normalizes overflow (Jan 31 + 1 month becomes
// Mar 2 or Mar 3) instead of clamping.
func addMonthsClamped(d civil.Date, n int) civil.Date {
	totalMonths := int(d.Month) - 1 + n
	year := d.Year + totalMonths/12
	month := totalMonths%12 + 1
	if month <= 0 {
		month += 12
		year--
	}

	day := d.Day
	if last := daysIn(year, month); day > last {
		day = last
	}

	return civil.Date{Year: year, Month: time.Month(month), Day: day}
}

func daysIn(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 29
	}
	return 28
}
