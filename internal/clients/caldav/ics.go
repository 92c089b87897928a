package caldav

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/tazhate/classsync/internal/domain"
)

const productID = "-//ClassSync//Timetable//EN"

// NewCalendar returns an empty VCALENDAR with the required headers
func NewCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// EventComponent renders a recurring class event. Start and end keep the
// descriptor's zone, so DTSTART carries a TZID and the weekly rule follows
// local wall-clock time across DST changes.
func EventComponent(d domain.RecurringEventDescriptor, uid string, stamp time.Time) *ical.Component {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetText(ical.PropSummary, d.Title)

	if d.Description != "" {
		vevent.Props.SetText(ical.PropDescription, d.Description)
	}
	if d.Location != "" {
		vevent.Props.SetText(ical.PropLocation, d.Location)
	}

	vevent.Props.SetDateTime(ical.PropDateTimeStart, d.Start)
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, d.End)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if d.RecurrenceRule != "" {
		rrule := ical.NewProp(ical.PropRecurrenceRule)
		rrule.Value = d.RecurrenceRule
		vevent.Props.Set(rrule)
	}

	if d.ReminderOffsetMinutes > 0 {
		vevent.Children = append(vevent.Children, alarmComponent(d.Title, d.ReminderOffsetMinutes))
	}

	return vevent.Component
}

func alarmComponent(title string, minutes int) *ical.Component {
	alarm := ical.NewComponent(ical.CompAlarm)
	alarm.Props.SetText(ical.PropAction, "DISPLAY")
	alarm.Props.SetText(ical.PropDescription, title)

	trigger := ical.NewProp(ical.PropTrigger)
	trigger.Value = fmt.Sprintf("-PT%dM", minutes)
	alarm.Props.Set(trigger)

	return alarm
}

// AddTimezone prepends a VTIMEZONE for loc so that DTSTART;TZID values
// resolve. UTC needs none and a zone already present is not added twice.
func AddTimezone(cal *ical.Calendar, loc *time.Location, around time.Time) {
	if loc == nil || loc == time.UTC || loc.String() == "UTC" {
		return
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompTimezone {
			continue
		}
		if p := child.Props.Get(ical.PropTimezoneID); p != nil && p.Value == loc.String() {
			return
		}
	}
	cal.Children = append([]*ical.Component{TimezoneComponent(loc, around)}, cal.Children...)
}

// TimezoneComponent describes loc's observances for the year of around.
// Each transition becomes a yearly rule on the same weekday of the month,
// which matches how DST rules are written in practice.
func TimezoneComponent(loc *time.Location, around time.Time) *ical.Component {
	tz := ical.NewComponent(ical.CompTimezone)
	setRaw(tz.Props, ical.PropTimezoneID, loc.String())

	year := around.In(loc).Year()
	t := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)

	added := 0
	for i := 0; i < 4; i++ {
		_, end := t.ZoneBounds()
		if end.IsZero() || end.Year() > year {
			break
		}
		_, fromOffset := t.Zone()
		tz.Children = append(tz.Children, observance(end, fromOffset, true))
		added++
		t = end
	}

	if added == 0 {
		_, offset := t.Zone()
		tz.Children = append(tz.Children, observance(time.Date(1970, 1, 1, 0, 0, 0, 0, time.FixedZone("", offset)), offset, false))
	}
	return tz
}

func observance(at time.Time, fromOffset int, yearly bool) *ical.Component {
	name, toOffset := at.Zone()
	kind := ical.CompTimezoneStandard
	if at.IsDST() {
		kind = ical.CompTimezoneDaylight
	}
	comp := ical.NewComponent(kind)

	// DTSTART is the local wall clock just before the change
	wall := at.In(time.FixedZone("", fromOffset))
	setRaw(comp.Props, ical.PropDateTimeStart, wall.Format("20060102T150405"))
	setRaw(comp.Props, ical.PropTimezoneOffsetFrom, formatOffset(fromOffset))
	setRaw(comp.Props, ical.PropTimezoneOffsetTo, formatOffset(toOffset))
	if name != "" && name[0] != '+' && name[0] != '-' {
		setRaw(comp.Props, ical.PropTimezoneName, name)
	}
	if yearly {
		setRaw(comp.Props, ical.PropRecurrenceRule, yearlyRule(wall))
	}
	return comp
}

func yearlyRule(wall time.Time) string {
	day := wall.Day()
	ordinal := (day-1)/7 + 1
	lastDay := time.Date(wall.Year(), wall.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day+7 > lastDay {
		ordinal = -1
	}
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s", int(wall.Month()), ordinal, weekdayCodes[wall.Weekday()])
}

var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

func formatOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}

// setRaw stores a value without a VALUE parameter, which go-ical adds for
// properties it has no default type for.
func setRaw(props ical.Props, name, value string) {
	p := ical.NewProp(name)
	p.Value = value
	props.Set(p)
}

// SerializeCalendar encodes the calendar to iCalendar text
func SerializeCalendar(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
