package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/clients/extractor"
	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/projector"
	"github.com/tazhate/classsync/internal/storage"
)

// ClassService handles the timetable: extraction, review and the saved schedule
type ClassService struct {
	storage   *storage.Storage
	extractor extractor.Extractor
	timezone  *time.Location
	logger    *zap.Logger
}

// NewClassService creates a new class service
func NewClassService(s *storage.Storage, ex extractor.Extractor, tz *time.Location, logger *zap.Logger) *ClassService {
	if tz == nil {
		tz = time.UTC
	}
	return &ClassService{
		storage:   s,
		extractor: ex,
		timezone:  tz,
		logger:    logger,
	}
}

// Extract reads a timetable image and returns the classes for review.
// Nothing is stored.
func (s *ClassService) Extract(ctx context.Context, image []byte, mimeType string) ([]*domain.ClassRecord, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("%w: no extractor configured", domain.ErrExtraction)
	}

	raw, err := s.extractor.Extract(ctx, image, mimeType)
	if err != nil {
		s.logger.Warn("timetable extraction failed", zap.Error(err))
		return nil, err
	}

	classes := extractor.Normalize(raw, s.logger)
	s.logger.Info("timetable extracted",
		zap.Int("raw", len(raw)),
		zap.Int("usable", len(classes)),
	)
	return classes, nil
}

// RejectedClass is a reviewed class that could not be saved
type RejectedClass struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

// SaveResult lists what SaveSchedule stored and what it refused
type SaveResult struct {
	Saved    []*domain.ClassRecord `json:"saved"`
	Rejected []RejectedClass       `json:"rejected"`
}

// SaveSchedule validates the reviewed classes and stores the valid ones in
// one batch. Invalid entries are reported back instead of failing the call.
func (s *ClassService) SaveSchedule(ctx context.Context, userID string, records []*domain.ClassRecord) (*SaveResult, error) {
	result := &SaveResult{
		Saved:    []*domain.ClassRecord{},
		Rejected: []RejectedClass{},
	}

	for i, rec := range records {
		if rec == nil {
			continue
		}
		c := *rec
		c.ApplyDefaults()

		if err := validateForSave(&c); err != nil {
			rejected := RejectedClass{Index: i, Name: c.Name, Error: err.Error()}
			var ise *domain.InvalidScheduleError
			if errors.As(err, &ise) {
				rejected.Field = ise.Field
			}
			result.Rejected = append(result.Rejected, rejected)
			continue
		}

		c.ID = uuid.New().String()
		c.UserID = userID
		c.LastRemindedAt = nil
		result.Saved = append(result.Saved, &c)
	}

	if len(result.Saved) == 0 {
		return result, nil
	}

	if err := s.storage.CreateClasses(ctx, result.Saved); err != nil {
		return nil, fmt.Errorf("save classes: %w", err)
	}

	s.logger.Info("schedule saved",
		zap.String("user_id", userID),
		zap.Int("saved", len(result.Saved)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

func validateForSave(c *domain.ClassRecord) error {
	if c.Name == "" {
		return &domain.InvalidScheduleError{Field: "name", Value: c.Name}
	}
	day, err := projector.ValidateRecord(c)
	if err != nil {
		return err
	}
	c.Day = day.String()
	if !slices.Contains(domain.ReminderOptions, c.ReminderOffsetMinutes) {
		return &domain.InvalidScheduleError{Field: "reminder", Value: fmt.Sprint(c.ReminderOffsetMinutes)}
	}
	return nil
}

// List returns the user's week ordered by day then start time
func (s *ClassService) List(ctx context.Context, userID string) ([]*domain.ClassRecord, error) {
	return s.storage.ListClasses(ctx, userID)
}

// Get returns one class or domain.ErrNotFound
func (s *ClassService) Get(ctx context.Context, userID, id string) (*domain.ClassRecord, error) {
	c, err := s.storage.GetClass(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

// Delete removes one class
func (s *ClassService) Delete(ctx context.Context, userID, id string) error {
	return s.storage.DeleteClass(ctx, userID, id)
}

// Reset deletes the whole schedule so a new timetable can be uploaded
func (s *ClassService) Reset(ctx context.Context, userID string) (int64, error) {
	n, err := s.storage.DeleteAllClasses(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("schedule reset", zap.String("user_id", userID), zap.Int64("deleted", n))
	return n, nil
}

// Today returns the classes held on now's weekday in the service time zone
func (s *ClassService) Today(ctx context.Context, userID string, now time.Time) ([]*domain.ClassRecord, error) {
	day := domain.Weekday(now.In(s.timezone).Weekday())
	return s.storage.ListClassesByDay(ctx, userID, day)
}

// TodayForChat lists today's classes for the user who linked chatID.
// linked is false when no user has that chat.
func (s *ClassService) TodayForChat(ctx context.Context, chatID int64, now time.Time) (classes []*domain.ClassRecord, linked bool, err error) {
	u, err := s.storage.GetUserByTelegramChat(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if u == nil {
		return nil, false, nil
	}
	classes, err = s.Today(ctx, u.ID, now)
	return classes, true, err
}

// NextOccurrence previews how a class would be pushed to a calendar
type NextOccurrence struct {
	Class       *domain.ClassRecord             `json:"class"`
	Event       domain.RecurringEventDescriptor `json:"event"`
	Occurrences []time.Time                     `json:"occurrences"`
}

// Next projects a saved class from now and lists its next n starts
func (s *ClassService) Next(ctx context.Context, userID, id string, now time.Time, n int) (*NextOccurrence, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	d, err := projector.BuildEventDescriptor(c, now, s.timezone)
	if err != nil {
		return nil, err
	}

	occ, err := projector.Upcoming(d, d.Start, n)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		occ = []time.Time{}
	}

	return &NextOccurrence{Class: c, Event: d, Occurrences: occ}, nil
}
