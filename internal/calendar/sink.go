// Package calendar selects the external calendar that class events are
// pushed to.
package calendar

import (
	"context"
	"fmt"

	"github.com/tazhate/classsync/config"
	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/clients/caldav"
	"github.com/tazhate/classsync/internal/clients/gcal"
	"github.com/tazhate/classsync/internal/domain"
)

const (
	ProviderGoogle = "google"
	ProviderCalDAV = "caldav"
)

// Sink creates one recurring event and returns the provider's event ID.
// Implementations must be safe for concurrent use.
type Sink interface {
	CreateEvent(ctx context.Context, id auth.Identity, d domain.RecurringEventDescriptor) (string, error)
}

// NewSink builds the sink for the configured provider
func NewSink(cfg *config.CalendarConfig) (Sink, error) {
	switch cfg.Provider {
	case ProviderGoogle:
		return gcal.NewClient(cfg.GoogleID, cfg.RequestTimeout), nil
	case ProviderCalDAV:
		if !cfg.CalDAVConfigured() {
			return nil, fmt.Errorf("%w: caldav username and password are required", domain.ErrCalendarNotConfigured)
		}
		c := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
		c.SetCalendarPath(cfg.CalDAVPath)
		c.SetTimeout(cfg.RequestTimeout)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", cfg.Provider)
	}
}
