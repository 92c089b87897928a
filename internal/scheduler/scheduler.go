package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/projector"
	"github.com/tazhate/classsync/internal/storage"
)

// reminderWindow tolerates a late cron tick; LastRemindedAt prevents doubles
const reminderWindow = 2 * time.Minute

type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

type Scheduler struct {
	cron       *cron.Cron
	storage    *storage.Storage
	timezone   *time.Location
	digestTime string
	sender     MessageSender
	logger     *zap.Logger
}

func New(s *storage.Storage, tz *time.Location, digestTime string, logger *zap.Logger) *Scheduler {
	if tz == nil {
		tz = time.UTC
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(tz)),
		storage:    s,
		timezone:   tz,
		digestTime: digestTime,
		logger:     logger,
	}
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

func (s *Scheduler) Start(ctx context.Context) error {
	if s.digestTime != "" {
		hour, minute, ok := domain.ParseClock(s.digestTime)
		if !ok {
			return fmt.Errorf("invalid digest time %q", s.digestTime)
		}
		spec := fmt.Sprintf("%d %d * * *", minute, hour)
		if _, err := s.cron.AddFunc(spec, func() { s.SendDailyDigest(ctx, time.Now()) }); err != nil {
			return fmt.Errorf("add daily digest: %w", err)
		}
	}

	if _, err := s.cron.AddFunc("* * * * *", func() { s.SendDueReminders(ctx, time.Now()) }); err != nil {
		return fmt.Errorf("add reminder check: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started",
		zap.String("timezone", s.timezone.String()),
		zap.String("digest", s.digestTime),
	)

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// SendDueReminders notifies every linked chat whose class reminder moment
// (next start minus the offset) fell within the last reminderWindow.
// It returns how many reminders were sent.
func (s *Scheduler) SendDueReminders(ctx context.Context, now time.Time) int {
	if s.sender == nil {
		return 0
	}

	targets, err := s.storage.ListReminderTargets(ctx)
	if err != nil {
		s.logger.Error("list reminder targets", zap.Error(err))
		return 0
	}

	now = now.In(s.timezone)
	sent := 0
	for _, t := range targets {
		c := t.Class
		day, ok := c.Weekday()
		if !ok {
			continue
		}

		// Look from the latest moment a reminder could still be pending,
		// so a class starting right now is still "next".
		start, err := projector.NextOccurrenceDate(day, c.StartTime, now.Add(-reminderWindow))
		if err != nil {
			s.logger.Warn("skipping reminder", zap.String("class_id", c.ID), zap.Error(err))
			continue
		}

		remindAt := start.Add(-time.Duration(c.ReminderOffsetMinutes) * time.Minute)
		if remindAt.After(now) || now.Sub(remindAt) >= reminderWindow {
			continue
		}
		if c.LastRemindedAt != nil && !c.LastRemindedAt.Before(remindAt) {
			continue
		}

		if err := s.sender.SendMessage(t.ChatID, FormatReminder(c, start)); err != nil {
			s.logger.Error("send class reminder",
				zap.String("class_id", c.ID),
				zap.Int64("chat_id", t.ChatID),
				zap.Error(err),
			)
			continue
		}
		sent++

		if err := s.storage.MarkReminded(ctx, c.ID, now); err != nil {
			s.logger.Error("mark class reminded", zap.String("class_id", c.ID), zap.Error(err))
		}
	}
	return sent
}

// SendDailyDigest sends every linked chat the list of today's classes.
// Chats with no classes today get nothing.
func (s *Scheduler) SendDailyDigest(ctx context.Context, now time.Time) int {
	if s.sender == nil {
		return 0
	}

	targets, err := s.storage.ListReminderTargets(ctx)
	if err != nil {
		s.logger.Error("list digest targets", zap.Error(err))
		return 0
	}

	today := domain.Weekday(now.In(s.timezone).Weekday())
	byChat := make(map[int64][]*domain.ClassRecord)
	var order []int64
	for _, t := range targets {
		if day, ok := t.Class.Weekday(); !ok || day != today {
			continue
		}
		if _, seen := byChat[t.ChatID]; !seen {
			order = append(order, t.ChatID)
		}
		byChat[t.ChatID] = append(byChat[t.ChatID], t.Class)
	}

	sent := 0
	for _, chatID := range order {
		if err := s.sender.SendMessage(chatID, FormatDigest(byChat[chatID])); err != nil {
			s.logger.Error("send daily digest", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

// FormatReminder renders the Telegram reminder for one class
func FormatReminder(c *domain.ClassRecord, start time.Time) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔔 <b>%s</b> starts at %s\n", html.EscapeString(c.Name), start.Format(domain.ClockLayout)))
	if c.Location != "" {
		sb.WriteString(fmt.Sprintf("📍 %s\n", html.EscapeString(c.Location)))
	}
	if c.HasProfessor() {
		sb.WriteString(fmt.Sprintf("👤 %s\n", html.EscapeString(c.Professor)))
	}
	return sb.String()
}

// FormatDigest renders the morning list of today's classes
func FormatDigest(classes []*domain.ClassRecord) string {
	var sb strings.Builder
	sb.WriteString("☀️ <b>Today's classes</b>\n\n")
	for _, c := range classes {
		sb.WriteString(fmt.Sprintf("<code>%s</code> %s", c.TimeRange(), html.EscapeString(c.Name)))
		if c.Location != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", html.EscapeString(c.Location)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
