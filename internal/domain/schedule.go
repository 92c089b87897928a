package domain

import (
	"strings"
	"time"
)

// Weekday represents a day of the week (0 = Sunday, 1 = Monday, ...).
// The ordering matches time.Weekday so the two convert directly.
type Weekday int

const (
	WeekdaySunday    Weekday = 0
	WeekdayMonday    Weekday = 1
	WeekdayTuesday   Weekday = 2
	WeekdayWednesday Weekday = 3
	WeekdayThursday  Weekday = 4
	WeekdayFriday    Weekday = 5
	WeekdaySaturday  Weekday = 6
)

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var rruleCodes = []string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// AllWeekdays lists the days in display order (Monday first)
var AllWeekdays = []Weekday{
	WeekdayMonday, WeekdayTuesday, WeekdayWednesday, WeekdayThursday,
	WeekdayFriday, WeekdaySaturday, WeekdaySunday,
}

// Valid reports whether d is one of the seven days
func (d Weekday) Valid() bool {
	return d >= WeekdaySunday && d <= WeekdaySaturday
}

// String returns the English canonical name for the weekday
func (d Weekday) String() string {
	if !d.Valid() {
		return ""
	}
	return weekdayNames[d]
}

// RRuleCode returns the RFC 5545 BYDAY code for the weekday
func (d Weekday) RRuleCode() string {
	if !d.Valid() {
		return ""
	}
	return rruleCodes[d]
}

// Time converts to the standard library weekday
func (d Weekday) Time() time.Weekday {
	return time.Weekday(d)
}

// ParseWeekday parses an English weekday name or its three-letter abbreviation.
// Matching is case-insensitive; numeric input is rejected.
func ParseWeekday(s string) (Weekday, bool) {
	mapping := map[string]Weekday{
		"sun": WeekdaySunday, "sunday": WeekdaySunday,
		"mon": WeekdayMonday, "monday": WeekdayMonday,
		"tue": WeekdayTuesday, "tuesday": WeekdayTuesday,
		"wed": WeekdayWednesday, "wednesday": WeekdayWednesday,
		"thu": WeekdayThursday, "thursday": WeekdayThursday,
		"fri": WeekdayFriday, "friday": WeekdayFriday,
		"sat": WeekdaySaturday, "saturday": WeekdaySaturday,
	}

	if d, ok := mapping[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, true
	}
	return 0, false
}

// ClockLayout is the wall-clock format used for class start and end times
const ClockLayout = "15:04"

// ParseClock parses an "HH:mm" 24-hour time and returns hour and minute
func ParseClock(s string) (hour, minute int, ok bool) {
	if len(s) != len(ClockLayout) {
		return 0, 0, false
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}
