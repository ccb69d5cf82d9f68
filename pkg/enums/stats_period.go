package enums

import (
	"fmt"
	"time"
)

// StatsPeriod selects the lookback window for sales statistics.
type StatsPeriod string

const (
	StatsPeriodToday StatsPeriod = "today"
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
	StatsPeriodYear  StatsPeriod = "year"
)

var validStatsPeriods = []StatsPeriod{
	StatsPeriodToday,
	StatsPeriodWeek,
	StatsPeriodMonth,
	StatsPeriodYear,
}

// String implements fmt.Stringer.
func (s StatsPeriod) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatsPeriod.
func (s StatsPeriod) IsValid() bool {
	for _, candidate := range validStatsPeriods {
		if candidate == s {
			return true
		}
	}
	return false
}

// WindowStart returns the inclusive lower bound of the period ending at now.
// Today truncates to local midnight; the others subtract a calendar unit.
func (s StatsPeriod) WindowStart(now time.Time) time.Time {
	switch s {
	case StatsPeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case StatsPeriodWeek:
		return now.AddDate(0, 0, -7)
	case StatsPeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// ParseStatsPeriod converts raw input into a StatsPeriod, defaulting to month.
func ParseStatsPeriod(value string) (StatsPeriod, error) {
	if value == "" {
		return StatsPeriodMonth, nil
	}
	for _, candidate := range validStatsPeriods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stats period %q", value)
}
