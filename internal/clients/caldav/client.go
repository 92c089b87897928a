package caldav

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/domain"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client pushes class events to a CalDAV calendar (iCloud, Nextcloud, ...).
// Credentials are service-wide; the caller identity is not used for auth.
type Client struct {
	baseURL      string
	username     string
	password     string
	calendarPath string // Optional: discovered on first use when empty
	timeout      time.Duration

	mu     sync.Mutex
	client *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		timeout:  30 * time.Second,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// SetCalendarPath sets the calendar collection to write to
func (c *Client) SetCalendarPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calendarPath = path
}

// SetTimeout overrides the per-request timeout
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: c.timeout,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars(ctx context.Context) ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			Path:        cal.Path,
			DisplayName: cal.Name,
			Components:  cal.SupportedComponentSet,
		})
	}

	return result, nil
}

// resolveCalendarPath returns the configured calendar or the first
// discovered one that accepts events
func (c *Client) resolveCalendarPath(ctx context.Context) (string, error) {
	c.mu.Lock()
	path := c.calendarPath
	c.mu.Unlock()
	if path != "" {
		return path, nil
	}

	cals, err := c.DiscoverCalendars(ctx)
	if err != nil {
		return "", err
	}
	for _, cal := range cals {
		if cal.SupportsEvents() {
			c.SetCalendarPath(cal.Path)
			return cal.Path, nil
		}
	}
	return "", fmt.Errorf("%w: no CalDAV calendar accepts events", domain.ErrCalendarNotConfigured)
}

// CreateEvent stores the recurring class event and returns its UID
func (c *Client) CreateEvent(ctx context.Context, _ auth.Identity, d domain.RecurringEventDescriptor) (string, error) {
	if !c.IsConfigured() {
		return "", domain.ErrCalendarNotConfigured
	}

	client, err := c.connect()
	if err != nil {
		return "", err
	}

	calendarPath, err := c.resolveCalendarPath(ctx)
	if err != nil {
		return "", err
	}

	uid := uuid.New().String() + "@classsync"
	cal := NewCalendar()
	cal.Children = append(cal.Children, EventComponent(d, uid, time.Now().UTC()))
	AddTimezone(cal, d.Start.Location(), d.Start)

	eventPath := calendarPath
	if !strings.HasSuffix(eventPath, "/") {
		eventPath += "/"
	}
	eventPath += uid + ".ics"

	if _, err := client.PutCalendarObject(ctx, eventPath, cal); err != nil {
		if isAuthError(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrAuthExpired, err)
		}
		return "", fmt.Errorf("create event: %w", err)
	}

	return uid, nil
}

// go-webdav reports "<code> <text>: <body>", possibly behind a wrap prefix
var authStatusRe = regexp.MustCompile(`(^|: )(401|403) `)

func isAuthError(err error) bool {
	return authStatusRe.MatchString(err.Error())
}
