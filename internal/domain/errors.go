package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrAuthExpired           = errors.New("calendar authorization missing or expired")
	ErrExtraction            = errors.New("timetable extraction failed")
	ErrCalendarNotConfigured = errors.New("calendar not configured")
	ErrAlreadySubmitted      = errors.New("event already submitted for this occurrence")
)

// InvalidScheduleError reports a class field that cannot be projected
type InvalidScheduleError struct {
	Field string
	Value string
}

func (e *InvalidScheduleError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// IsInvalidSchedule reports whether err carries an InvalidScheduleError
func IsInvalidSchedule(err error) bool {
	var ise *InvalidScheduleError
	return errors.As(err, &ise)
}
