package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/domain"
)

// DefaultCalendarID is the signed-in user's main calendar
const DefaultCalendarID = "primary"

// Client inserts class events into Google Calendar on behalf of the caller,
// using the OAuth access token carried by the identity.
type Client struct {
	calendarID string
	timeout    time.Duration
	opts       []option.ClientOption
}

// NewClient creates a Google Calendar client. Extra options are appended
// after the per-call token source.
func NewClient(calendarID string, timeout time.Duration, opts ...option.ClientOption) *Client {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		calendarID: calendarID,
		timeout:    timeout,
		opts:       opts,
	}
}

// CreateEvent inserts the recurring event and returns the Google event ID
func (c *Client) CreateEvent(ctx context.Context, id auth.Identity, d domain.RecurringEventDescriptor) (string, error) {
	if id.CalendarToken == "" {
		return "", domain.ErrAuthExpired
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: id.CalendarToken, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = c.timeout

	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, c.opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create calendar service: %w", err)
	}

	created, err := svc.Events.Insert(c.calendarID, EventFromDescriptor(d)).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden) {
			return "", fmt.Errorf("%w: %s", domain.ErrAuthExpired, gerr.Message)
		}
		return "", fmt.Errorf("insert event: %w", err)
	}

	return created.Id, nil
}

// EventFromDescriptor maps a descriptor onto the Calendar API event shape:
// one weekly RRULE and a single popup reminder replacing the calendar default.
func EventFromDescriptor(d domain.RecurringEventDescriptor) *calendar.Event {
	ev := &calendar.Event{
		Summary:     d.Title,
		Location:    d.Location,
		Description: d.Description,
		Start: &calendar.EventDateTime{
			DateTime: d.Start.Format(time.RFC3339),
			TimeZone: d.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: d.End.Format(time.RFC3339),
			TimeZone: d.TimeZone,
		},
		Recurrence: []string{"RRULE:" + d.RecurrenceRule},
		Reminders: &calendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if d.ReminderOffsetMinutes > 0 {
		ev.Reminders.Overrides = []*calendar.EventReminder{
			{Method: "popup", Minutes: int64(d.ReminderOffsetMinutes)},
		}
	}

	return ev
}
