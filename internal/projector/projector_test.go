package projector

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/classsync/internal/domain"
)

// 2024-01-07 is a Sunday, so sunday.AddDate(0, 0, int(w)) lands on weekday w.
var sunday = time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func sameDate(t *testing.T, want, got time.Time) {
	t.Helper()
	wy, wm, wd := want.Date()
	gy, gm, gd := got.Date()
	assert.Equal(t, []int{wy, int(wm), wd}, []int{gy, int(gm), gd}, "want %s, got %s", want.Format("2006-01-02"), got.Format("2006-01-02"))
}

func TestNextOccurrenceDate_Scenarios(t *testing.T) {
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	saturday := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		day       domain.Weekday
		startTime string
		ref       time.Time
		want      time.Time
	}{
		{
			name:      "later this week",
			day:       domain.WeekdayWednesday,
			startTime: "09:00",
			ref:       at(monday, 8, 0),
			want:      time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name:      "today already started",
			day:       domain.WeekdayMonday,
			startTime: "10:00",
			ref:       at(monday, 11, 0),
			want:      time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekday already passed wraps",
			day:       domain.WeekdayFriday,
			startTime: "14:00",
			ref:       at(saturday, 9, 0),
			want:      time.Date(2024, 1, 12, 14, 0, 0, 0, time.UTC),
		},
		{
			name:      "today not yet started",
			day:       domain.WeekdayMonday,
			startTime: "10:00",
			ref:       at(monday, 9, 59),
			want:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "exact start instant stays today",
			day:       domain.WeekdayMonday,
			startTime: "10:00",
			ref:       at(monday, 10, 0),
			want:      time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "one second past start moves a week",
			day:       domain.WeekdayMonday,
			startTime: "10:00",
			ref:       at(monday, 10, 0).Add(time.Second),
			want:      time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
		},
		{
			name:      "crosses month boundary",
			day:       domain.WeekdayThursday,
			startTime: "12:30",
			ref:       time.Date(2024, 1, 31, 13, 0, 0, 0, time.UTC),
			want:      time.Date(2024, 2, 1, 12, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrenceDate(tt.day, tt.startTime, tt.ref)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextOccurrenceDate_SameWeekday(t *testing.T) {
	for w := domain.WeekdaySunday; w <= domain.WeekdaySaturday; w++ {
		day := sunday.AddDate(0, 0, int(w))
		require.Equal(t, w.Time(), day.Weekday())

		before, err := NextOccurrenceDate(w, "13:15", at(day, 8, 0))
		require.NoError(t, err)
		sameDate(t, day, before)

		after, err := NextOccurrenceDate(w, "13:15", at(day, 13, 16))
		require.NoError(t, err)
		sameDate(t, day.AddDate(0, 0, 7), after)
	}
}

func TestNextOccurrenceDate_AllPairs(t *testing.T) {
	for refDay := domain.WeekdaySunday; refDay <= domain.WeekdaySaturday; refDay++ {
		ref := at(sunday.AddDate(0, 0, int(refDay)), 12, 0)
		for target := domain.WeekdaySunday; target <= domain.WeekdaySaturday; target++ {
			for _, start := range []string{"00:00", "11:59", "12:00", "12:01", "23:59"} {
				got, err := NextOccurrenceDate(target, start, ref)
				require.NoError(t, err)

				assert.Equal(t, target.Time(), got.Weekday(), "target %s from %s at %s", target, refDay, start)
				assert.False(t, got.Before(ref), "projected into the past: %s < %s", got, ref)
				assert.True(t, got.Before(ref.AddDate(0, 0, 7)), "more than a week ahead: %s", got)
				assert.Equal(t, start, got.Format(domain.ClockLayout))

				if target < refDay {
					assert.True(t, got.After(ref))
				}
			}
		}
	}
}

func TestNextOccurrenceDate_Invalid(t *testing.T) {
	_, err := NextOccurrenceDate(domain.Weekday(9), "10:00", sunday)
	var ise *domain.InvalidScheduleError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "day", ise.Field)

	for _, bad := range []string{"", "9:00", "24:00", "10:60", "10.00", "ten"} {
		_, err := NextOccurrenceDate(domain.WeekdayMonday, bad, sunday)
		require.ErrorAs(t, err, &ise, "start %q", bad)
		assert.Equal(t, "startTime", ise.Field)
	}
}

func validRecord() *domain.ClassRecord {
	return &domain.ClassRecord{
		Name:                  "Data Structures",
		Day:                   "Thursday",
		StartTime:             "11:00",
		EndTime:               "12:30",
		Location:              "CS-101",
		Professor:             "Dr. Ada Lovelace",
		ReminderOffsetMinutes: 30,
	}
}

func TestBuildEventDescriptor(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Monday 2024-01-01 15:00 UTC is 10:00 in New York.
	ref := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

	d, err := BuildEventDescriptor(validRecord(), ref, loc)
	require.NoError(t, err)

	assert.Equal(t, "Data Structures", d.Title)
	assert.Equal(t, "CS-101", d.Location)
	assert.Equal(t, "Professor: Dr. Ada Lovelace", d.Description)
	assert.Equal(t, "America/New_York", d.TimeZone)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=TH", d.RecurrenceRule)
	assert.Equal(t, 30, d.ReminderOffsetMinutes)

	assert.Equal(t, time.Date(2024, 1, 4, 11, 0, 0, 0, loc), d.Start)
	assert.Equal(t, time.Date(2024, 1, 4, 12, 30, 0, 0, loc), d.End)
	assert.False(t, d.Start.Before(ref))
}

func TestBuildEventDescriptor_ReferenceConvertedToZone(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	// Wednesday 23:30 UTC is already Thursday 08:30 in Tokyo, so a Thursday
	// 11:00 class is still ahead today there.
	ref := time.Date(2024, 1, 3, 23, 30, 0, 0, time.UTC)

	d, err := BuildEventDescriptor(validRecord(), ref, loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 4, 11, 0, 0, 0, loc), d.Start)
}

func TestBuildEventDescriptor_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// DST starts in Berlin on 2024-03-31; the next Monday class keeps its wall clock.
	ref := time.Date(2024, 3, 27, 12, 0, 0, 0, loc)
	rec := validRecord()
	rec.Day = "Monday"
	rec.StartTime = "09:00"
	rec.EndTime = "10:30"

	d, err := BuildEventDescriptor(rec, ref, loc)
	require.NoError(t, err)
	assert.Equal(t, "09:00", d.Start.Format(domain.ClockLayout))
	assert.Equal(t, "10:30", d.End.Format(domain.ClockLayout))
	sameDate(t, time.Date(2024, 4, 1, 0, 0, 0, 0, loc), d.Start)
}

func TestBuildEventDescriptor_NoProfessor(t *testing.T) {
	rec := validRecord()
	rec.Professor = domain.ProfessorNotAvailable

	d, err := BuildEventDescriptor(rec, sunday, nil)
	require.NoError(t, err)
	assert.Empty(t, d.Description)
	assert.Equal(t, "UTC", d.TimeZone)
}

func TestBuildEventDescriptor_Deterministic(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	ref := time.Date(2024, 5, 14, 7, 45, 12, 0, loc)

	first, err := BuildEventDescriptor(validRecord(), ref, loc)
	require.NoError(t, err)
	second, err := BuildEventDescriptor(validRecord(), ref, loc)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBuildEventDescriptor_InvalidFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ClassRecord)
		field  string
	}{
		{"unknown day", func(c *domain.ClassRecord) { c.Day = "Funday" }, "day"},
		{"numeric day", func(c *domain.ClassRecord) { c.Day = "3" }, "day"},
		{"bad start", func(c *domain.ClassRecord) { c.StartTime = "11am" }, "startTime"},
		{"bad end", func(c *domain.ClassRecord) { c.EndTime = "25:00" }, "endTime"},
		{"end before start", func(c *domain.ClassRecord) { c.EndTime = "10:00" }, "endTime"},
		{"end equals start", func(c *domain.ClassRecord) { c.EndTime = c.StartTime }, "endTime"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)

			d, err := BuildEventDescriptor(rec, sunday, time.UTC)
			var ise *domain.InvalidScheduleError
			require.ErrorAs(t, err, &ise)
			assert.Equal(t, tt.field, ise.Field)
			assert.Equal(t, domain.RecurringEventDescriptor{}, d)
		})
	}
}

func TestUpcoming(t *testing.T) {
	d, err := BuildEventDescriptor(validRecord(), sunday, time.UTC)
	require.NoError(t, err)

	got, err := Upcoming(d, sunday, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.True(t, got[0].Equal(d.Start))
	for i, occ := range got {
		assert.Equal(t, time.Thursday, occ.Weekday())
		assert.True(t, occ.Equal(d.Start.AddDate(0, 0, 7*i)), "occurrence %d: %s", i, occ)
	}

	none, err := Upcoming(d, sunday, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUpcoming_BadRule(t *testing.T) {
	_, err := Upcoming(domain.RecurringEventDescriptor{RecurrenceRule: "FREQ=SOMETIMES", Start: sunday}, sunday, 2)
	assert.Error(t, err)
}
