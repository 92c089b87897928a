package handler

import (
	"context"
	"time"

	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/service"
)

// ClassService is what the class endpoints need from the service layer
type ClassService interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]*domain.ClassRecord, error)
	SaveSchedule(ctx context.Context, userID string, records []*domain.ClassRecord) (*service.SaveResult, error)
	List(ctx context.Context, userID string) ([]*domain.ClassRecord, error)
	Delete(ctx context.Context, userID, id string) error
	Reset(ctx context.Context, userID string) (int64, error)
	Today(ctx context.Context, userID string, now time.Time) ([]*domain.ClassRecord, error)
	Next(ctx context.Context, userID, id string, now time.Time, n int) (*service.NextOccurrence, error)
}

type CalendarService interface {
	SyncClasses(ctx context.Context, id auth.Identity, classIDs []string, now time.Time) (*service.SyncReport, error)
}

type ExportService interface {
	ICS(ctx context.Context, userID string, now time.Time) ([]byte, error)
	XLSX(ctx context.Context, userID string) ([]byte, error)
}

type UserService interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	LinkTelegram(ctx context.Context, userID string, chatID int64) error
}

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the dependencies of all handlers
type Services struct {
	Class    ClassService
	Calendar CalendarService
	Export   ExportService
	User     UserService
	DB       Pinger
}

// Handler is the aggregate of every module's handler
type Handler struct {
	Health   *HealthHandler
	Class    *ClassHandler
	Calendar *CalendarHandler
	Export   *ExportHandler
	User     *UserHandler
}

// NewHandler wires the handlers. now is the clock used for projections.
func NewHandler(svc Services, maxUploadBytes int64, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{
		Health:   NewHealthHandler(svc.DB),
		Class:    NewClassHandler(svc.Class, maxUploadBytes, now),
		Calendar: NewCalendarHandler(svc.Calendar, now),
		Export:   NewExportHandler(svc.Export, now),
		User:     NewUserHandler(svc.User),
	}
}
