package rule

import (
	"fmt"
	"time"
)

// ErrInvalidInterval is returned by NextDate when intervalValue < 1.
var ErrInvalidInterval = fmt.Errorf("interval value must be at least 1")

// NextDate computes the next occurrence strictly after 'from' for the given
// frequency and interval. Pure calendar arithmetic, no side effects.
//
// MONTHLY and YEARLY clamp to the last day of the target month when the
// anchor day does not exist there (Jan 31 + 1 month = Feb 28/29).
func NextDate(from time.Time, frequency Frequency, intervalValue int) (time.Time, error) {
	if intervalValue < 1 {
		return time.Time{}, ErrInvalidInterval
	}

	switch frequency {
	case FrequencyDaily, FrequencyCustom:
		return from.AddDate(0, 0, intervalValue), nil
	case FrequencyWeekly:
		return from.AddDate(0, 0, intervalValue*7), nil
	case FrequencyMonthly:
		return addMonthsClamped(from, intervalValue), nil
	case FrequencyYearly:
		return addMonthsClamped(from, intervalValue*12), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency: %s", frequency)
	}
}

// addMonthsClamped adds months without time.AddDate's day normalization:
// the day-of-month is clamped to the target month's length instead of
// spilling into the following month.
func addMonthsClamped(from time.Time, months int) time.Time {
	year, month, day := from.Date()

	totalMonths := int(month) - 1 + months
	targetYear := year + totalMonths/12
	targetMonth := time.Month(totalMonths%12 + 1)
	if totalMonths < 0 { // Go's % can be negative; not reachable with interval >= 1
		targetYear--
		targetMonth += 12
	}

	if max := daysIn(targetYear, targetMonth); day > max {
		day = max
	}

	hour, min, sec := from.Clock()
	return time.Date(targetYear, targetMonth, day, hour, min, sec, from.Nanosecond(), from.Location())
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
