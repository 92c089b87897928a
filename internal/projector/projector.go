// Package projector maps a weekly class onto the concrete date of its next
// occurrence and builds the recurring calendar event for it.
//
// Everything here is pure: the reference instant is always passed in, so the
// same inputs always produce the same descriptor.
package projector

import (
	"fmt"
	"strconv"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/tazhate/classsync/internal/domain"
)

// NextOccurrenceDate returns the next start of a class held every week on day
// at startTime ("HH:mm"), seen from ref. The result is in ref's location and is
// never before ref. A class starting exactly at ref counts as not yet passed.
func NextOccurrenceDate(day domain.Weekday, startTime string, ref time.Time) (time.Time, error) {
	if !day.Valid() {
		return time.Time{}, &domain.InvalidScheduleError{Field: "day", Value: strconv.Itoa(int(day))}
	}
	hour, minute, ok := domain.ParseClock(startTime)
	if !ok {
		return time.Time{}, &domain.InvalidScheduleError{Field: "startTime", Value: startTime}
	}

	loc := ref.Location()
	daysUntil := int(day) - int(ref.Weekday())
	targetToday := time.Date(ref.Year(), ref.Month(), ref.Day(), hour, minute, 0, 0, loc)

	switch {
	case daysUntil == 0 && ref.After(targetToday):
		daysUntil = 7 // already started today, next week
	case daysUntil < 0:
		daysUntil += 7
	}

	return time.Date(ref.Year(), ref.Month(), ref.Day()+daysUntil, hour, minute, 0, 0, loc), nil
}

// ValidateRecord checks the schedule fields of a class and returns its weekday.
// The error is a *domain.InvalidScheduleError naming the first bad field.
func ValidateRecord(c *domain.ClassRecord) (domain.Weekday, error) {
	day, ok := c.Weekday()
	if !ok {
		return 0, &domain.InvalidScheduleError{Field: "day", Value: c.Day}
	}
	sh, sm, ok := domain.ParseClock(c.StartTime)
	if !ok {
		return 0, &domain.InvalidScheduleError{Field: "startTime", Value: c.StartTime}
	}
	eh, em, ok := domain.ParseClock(c.EndTime)
	if !ok {
		return 0, &domain.InvalidScheduleError{Field: "endTime", Value: c.EndTime}
	}
	if eh*60+em <= sh*60+sm {
		return 0, &domain.InvalidScheduleError{Field: "endTime", Value: c.EndTime}
	}
	return day, nil
}

// WeeklyRule returns the recurrence rule for a class held on day
func WeeklyRule(day domain.Weekday) string {
	return fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s", day.RRuleCode())
}

// BuildEventDescriptor projects c onto its next occurrence after ref, with
// start and end expressed in loc (UTC when nil).
func BuildEventDescriptor(c *domain.ClassRecord, ref time.Time, loc *time.Location) (domain.RecurringEventDescriptor, error) {
	day, err := ValidateRecord(c)
	if err != nil {
		return domain.RecurringEventDescriptor{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	start, err := NextOccurrenceDate(day, c.StartTime, ref.In(loc))
	if err != nil {
		return domain.RecurringEventDescriptor{}, err
	}
	endHour, endMin, _ := domain.ParseClock(c.EndTime)
	end := time.Date(start.Year(), start.Month(), start.Day(), endHour, endMin, 0, 0, loc)

	var description string
	if c.HasProfessor() {
		description = "Professor: " + c.Professor
	}

	return domain.RecurringEventDescriptor{
		Title:                 c.Name,
		Location:              c.Location,
		Description:           description,
		Start:                 start,
		End:                   end,
		TimeZone:              loc.String(),
		RecurrenceRule:        WeeklyRule(day),
		ReminderOffsetMinutes: c.ReminderOffsetMinutes,
	}, nil
}

// Upcoming expands the descriptor's recurrence rule and returns up to n
// occurrence starts at or after from.
func Upcoming(d domain.RecurringEventDescriptor, from time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	opt, err := rrule.StrToROption(d.RecurrenceRule)
	if err != nil {
		return nil, fmt.Errorf("parse rrule %q: %w", d.RecurrenceRule, err)
	}
	opt.Dtstart = d.Start

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule: %w", err)
	}

	out := make([]time.Time, 0, n)
	next := r.After(from, true)
	for !next.IsZero() && len(out) < n {
		out = append(out, next)
		next = r.After(next, false)
	}
	return out, nil
}
