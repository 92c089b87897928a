package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/cache"
	"github.com/tazhate/classsync/internal/calendar"
	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/projector"
	"github.com/tazhate/classsync/internal/storage"
)

// SubmissionGuard stops the same class occurrence from being pushed twice
type SubmissionGuard interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CalendarOptions tunes how a batch is submitted
type CalendarOptions struct {
	Provider       string
	MaxConcurrency int
	GuardTTL       time.Duration
}

// CalendarService pushes saved classes to the user's external calendar
type CalendarService struct {
	storage  *storage.Storage
	sink     calendar.Sink
	guard    SubmissionGuard // optional
	opts     CalendarOptions
	timezone *time.Location
	logger   *zap.Logger
}

// NewCalendarService creates a new calendar service. guard may be nil.
func NewCalendarService(s *storage.Storage, sink calendar.Sink, guard SubmissionGuard, opts CalendarOptions, tz *time.Location, logger *zap.Logger) *CalendarService {
	if tz == nil {
		tz = time.UTC
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.GuardTTL <= 0 {
		opts.GuardTTL = 7 * 24 * time.Hour
	}
	return &CalendarService{
		storage:  s,
		sink:     sink,
		guard:    guard,
		opts:     opts,
		timezone: tz,
		logger:   logger,
	}
}

// IsConfigured returns true if a calendar sink is available
func (s *CalendarService) IsConfigured() bool {
	return s.sink != nil
}

// SyncResult is the outcome for one class
type SyncResult struct {
	ClassID   string     `json:"class_id"`
	ClassName string     `json:"class_name"`
	Start     *time.Time `json:"start,omitempty"`
	EventID   string     `json:"event_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// OK reports whether the event was created
func (r SyncResult) OK() bool {
	return r.Error == ""
}

// SyncReport summarizes a batch. AuthFailed asks the client to sign in to
// the calendar provider again.
type SyncReport struct {
	Results    []SyncResult `json:"results"`
	Succeeded  int          `json:"succeeded"`
	Failed     int          `json:"failed"`
	AuthFailed bool         `json:"auth_failed"`
}

// SyncClasses projects the user's classes from now and creates one weekly
// recurring event per class. classIDs limits the batch; empty means all.
// Each class is submitted independently: failures land in its own result
// and never abort the others. Nothing is retried.
func (s *CalendarService) SyncClasses(ctx context.Context, id auth.Identity, classIDs []string, now time.Time) (*SyncReport, error) {
	if !s.IsConfigured() {
		return nil, domain.ErrCalendarNotConfigured
	}

	classes, missing, err := s.loadClasses(ctx, id.UserID, classIDs)
	if err != nil {
		return nil, err
	}

	results := make([]SyncResult, len(classes), len(classes)+len(missing))
	authFailed := make([]bool, len(classes))

	var wg sync.WaitGroup
	sem := make(chan struct{}, s.opts.MaxConcurrency)

	for i, c := range classes {
		results[i] = SyncResult{ClassID: c.ID, ClassName: c.Name}

		d, err := projector.BuildEventDescriptor(c, now, s.timezone)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		start := d.Start
		results[i].Start = &start

		wg.Add(1)
		go func(i int, c *domain.ClassRecord, d domain.RecurringEventDescriptor) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i].Error = ctx.Err().Error()
				return
			}
			defer func() { <-sem }()

			eventID, err := s.submit(ctx, id, c, d)
			if err != nil {
				results[i].Error = err.Error()
				authFailed[i] = errors.Is(err, domain.ErrAuthExpired)
				return
			}
			results[i].EventID = eventID
		}(i, c, d)
	}
	wg.Wait()

	for _, classID := range missing {
		results = append(results, SyncResult{ClassID: classID, Error: domain.ErrNotFound.Error()})
	}

	report := &SyncReport{Results: results}
	for i, r := range results {
		if r.OK() {
			report.Succeeded++
		} else {
			report.Failed++
		}
		if i < len(authFailed) && authFailed[i] {
			report.AuthFailed = true
		}
	}

	s.logger.Info("calendar sync finished",
		zap.String("user_id", id.UserID),
		zap.String("provider", s.opts.Provider),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Bool("auth_failed", report.AuthFailed),
	)
	return report, nil
}

// submit pushes one descriptor, holding the guard claim while it runs
func (s *CalendarService) submit(ctx context.Context, id auth.Identity, c *domain.ClassRecord, d domain.RecurringEventDescriptor) (string, error) {
	var key string
	if s.guard != nil {
		key = cache.SubmissionKey(id.UserID, c.ID, d.Start)
		ok, err := s.guard.Claim(ctx, key, s.opts.GuardTTL)
		if err != nil {
			// Submit unguarded while Redis is down
			s.logger.Warn("submission guard unavailable", zap.Error(err))
			key = ""
		} else if !ok {
			return "", domain.ErrAlreadySubmitted
		}
	}

	eventID, err := s.sink.CreateEvent(ctx, id, d)
	if err != nil {
		if key != "" {
			if rerr := s.guard.Release(context.WithoutCancel(ctx), key); rerr != nil {
				s.logger.Warn("release submission claim", zap.String("key", key), zap.Error(rerr))
			}
		}
		s.logger.Warn("create calendar event failed",
			zap.String("class_id", c.ID),
			zap.Error(err),
		)
		return "", err
	}

	if err := s.storage.RecordCalendarSync(ctx, id.UserID, c.ID, s.opts.Provider, eventID); err != nil {
		s.logger.Error("record calendar sync", zap.String("class_id", c.ID), zap.Error(err))
	}
	return eventID, nil
}

// loadClasses returns the requested classes in request order plus the IDs
// that do not exist for this user
func (s *CalendarService) loadClasses(ctx context.Context, userID string, classIDs []string) ([]*domain.ClassRecord, []string, error) {
	if len(classIDs) == 0 {
		classes, err := s.storage.ListClasses(ctx, userID)
		if err != nil {
			return nil, nil, fmt.Errorf("list classes: %w", err)
		}
		return classes, nil, nil
	}

	var (
		classes []*domain.ClassRecord
		missing []string
		seen    = make(map[string]bool, len(classIDs))
	)
	for _, classID := range classIDs {
		if seen[classID] {
			continue
		}
		seen[classID] = true

		c, err := s.storage.GetClass(ctx, userID, classID)
		if err != nil {
			return nil, nil, fmt.Errorf("get class %s: %w", classID, err)
		}
		if c == nil {
			missing = append(missing, classID)
			continue
		}
		classes = append(classes, c)
	}
	return classes, missing, nil
}
