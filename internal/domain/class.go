package domain

import "time"

// ProfessorNotAvailable is stored when the professor is unknown
const ProfessorNotAvailable = "N/A"

// DefaultReminderOffset is applied to freshly extracted classes
const DefaultReminderOffset = 15

// ReminderOptions are the offsets (minutes before start) offered to the user
var ReminderOptions = []int{5, 10, 15, 30, 60}

// ClassRecord is one weekly class owned by a user
type ClassRecord struct {
	ID                    string     `json:"id"`
	UserID                string     `json:"-"`
	Name                  string     `json:"name"`
	Day                   string     `json:"day"`        // "Monday" ... "Sunday"
	StartTime             string     `json:"start_time"` // "HH:mm"
	EndTime               string     `json:"end_time"`   // "HH:mm"
	Location              string     `json:"location"`
	Professor             string     `json:"professor"`
	ReminderOffsetMinutes int        `json:"reminder_offset_minutes"`
	LastRemindedAt        *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
}

// Weekday returns the parsed day, false if Day is not recognized
func (c *ClassRecord) Weekday() (Weekday, bool) {
	return ParseWeekday(c.Day)
}

// TimeRange returns formatted time range
func (c *ClassRecord) TimeRange() string {
	return c.StartTime + "-" + c.EndTime
}

// HasProfessor reports whether a real professor name is set
func (c *ClassRecord) HasProfessor() bool {
	return c.Professor != "" && c.Professor != ProfessorNotAvailable
}

// ApplyDefaults fills the professor sentinel and the default reminder
func (c *ClassRecord) ApplyDefaults() {
	if c.Professor == "" {
		c.Professor = ProfessorNotAvailable
	}
	if c.ReminderOffsetMinutes <= 0 {
		c.ReminderOffsetMinutes = DefaultReminderOffset
	}
}

// RecurringEventDescriptor is the projection of a class onto its next
// occurrence, ready to be submitted to a calendar.
type RecurringEventDescriptor struct {
	Title                 string    `json:"title"`
	Location              string    `json:"location,omitempty"`
	Description           string    `json:"description,omitempty"`
	Start                 time.Time `json:"start"`
	End                   time.Time `json:"end"`
	TimeZone              string    `json:"time_zone"`
	RecurrenceRule        string    `json:"recurrence_rule"` // e.g. "FREQ=WEEKLY;BYDAY=MO"
	ReminderOffsetMinutes int       `json:"reminder_offset_minutes"`
}
