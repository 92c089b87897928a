package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/classsync/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			telegram_chat_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS classes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			day TEXT NOT NULL,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			location TEXT DEFAULT '',
			professor TEXT DEFAULT 'N/A',
			reminder_offset INTEGER DEFAULT 15,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_classes_user_id ON classes(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_classes_day ON classes(user_id, day_of_week)`,
		// Reminder tracking for the Telegram notifier
		`ALTER TABLE classes ADD COLUMN last_reminded_at DATETIME`,
		// External calendar events created per class
		`CREATE TABLE IF NOT EXISTS calendar_syncs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			class_id TEXT NOT NULL,
			provider TEXT NOT NULL,
			event_id TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (class_id) REFERENCES classes(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_syncs_class ON calendar_syncs(class_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Users ===

// UpsertUser creates the user on first sight and refreshes the email afterwards
func (s *Storage) UpsertUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET email = excluded.email`,
		u.ID, u.Email,
	)
	return err
}

func (s *Storage) GetUser(ctx context.Context, id string) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, telegram_chat_id, created_at FROM users WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.Email, &u.TelegramChatID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByTelegramChat returns the earliest user linked to chatID, nil if none
func (s *Storage) GetUserByTelegramChat(ctx context.Context, chatID int64) (*domain.User, error) {
	u := &domain.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, telegram_chat_id, created_at FROM users
		 WHERE telegram_chat_id = ? ORDER BY created_at, id LIMIT 1`,
		chatID,
	).Scan(&u.ID, &u.Email, &u.TelegramChatID, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// SetTelegramChat links a Telegram chat for reminders; 0 unlinks it
func (s *Storage) SetTelegramChat(ctx context.Context, userID string, chatID int64) error {
	var v any
	if chatID != 0 {
		v = chatID
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET telegram_chat_id = ? WHERE id = ?`, v, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// === Classes ===

const classColumns = `id, user_id, name, day, start_time, end_time, location, professor, reminder_offset, last_reminded_at, created_at`

func scanClass(row interface{ Scan(...any) error }) (*domain.ClassRecord, error) {
	c := &domain.ClassRecord{}
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Day, &c.StartTime, &c.EndTime, &c.Location, &c.Professor, &c.ReminderOffsetMinutes, &c.LastRemindedAt, &c.CreatedAt)
	return c, err
}

func scanClasses(rows *sql.Rows) ([]*domain.ClassRecord, error) {
	defer rows.Close()

	var classes []*domain.ClassRecord
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// CreateClasses stores all classes in one transaction. Day must already be
// the canonical weekday name.
func (s *Storage) CreateClasses(ctx context.Context, classes []*domain.ClassRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO classes (id, user_id, name, day, day_of_week, start_time, end_time, location, professor, reminder_offset, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range classes {
		day, ok := c.Weekday()
		if !ok {
			return &domain.InvalidScheduleError{Field: "day", Value: c.Day}
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.UserID, c.Name, c.Day, int(day), c.StartTime, c.EndTime, c.Location, c.Professor, c.ReminderOffsetMinutes, now,
		); err != nil {
			return fmt.Errorf("insert class %s: %w", c.ID, err)
		}
		c.CreatedAt = now
	}

	return tx.Commit()
}

func (s *Storage) GetClass(ctx context.Context, userID, id string) (*domain.ClassRecord, error) {
	c, err := scanClass(s.db.QueryRowContext(ctx,
		`SELECT `+classColumns+` FROM classes WHERE id = ? AND user_id = ?`,
		id, userID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListClasses returns the user's classes ordered by weekday then start time
func (s *Storage) ListClasses(ctx context.Context, userID string) ([]*domain.ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+classColumns+` FROM classes WHERE user_id = ? ORDER BY day_of_week, start_time`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return scanClasses(rows)
}

// ListClassesByDay returns the user's classes on one weekday ordered by start time
func (s *Storage) ListClassesByDay(ctx context.Context, userID string, day domain.Weekday) ([]*domain.ClassRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+classColumns+` FROM classes WHERE user_id = ? AND day_of_week = ? ORDER BY start_time`,
		userID, int(day),
	)
	if err != nil {
		return nil, err
	}
	return scanClasses(rows)
}

// DeleteClass removes one class owned by the user
func (s *Storage) DeleteClass(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM classes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// DeleteAllClasses removes every class of the user and returns how many were deleted
func (s *Storage) DeleteAllClasses(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM classes WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ReminderTarget is a class whose owner linked a Telegram chat
type ReminderTarget struct {
	Class  *domain.ClassRecord
	ChatID int64
}

// ListReminderTargets returns classes with a reminder whose owner has a chat linked
func (s *Storage) ListReminderTargets(ctx context.Context) ([]ReminderTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.day, c.start_time, c.end_time, c.location, c.professor, c.reminder_offset, c.last_reminded_at, c.created_at, u.telegram_chat_id
		 FROM classes c JOIN users u ON u.id = c.user_id
		 WHERE u.telegram_chat_id IS NOT NULL AND c.reminder_offset > 0
		 ORDER BY c.day_of_week, c.start_time`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderTarget
	for rows.Next() {
		c := &domain.ClassRecord{}
		var chatID int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Day, &c.StartTime, &c.EndTime, &c.Location, &c.Professor, &c.ReminderOffsetMinutes, &c.LastRemindedAt, &c.CreatedAt, &chatID); err != nil {
			return nil, err
		}
		targets = append(targets, ReminderTarget{Class: c, ChatID: chatID})
	}
	return targets, rows.Err()
}

// MarkReminded records when the reminder for a class was sent
func (s *Storage) MarkReminded(ctx context.Context, classID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE classes SET last_reminded_at = ? WHERE id = ?`, at.UTC(), classID)
	return err
}

// === Calendar syncs ===

// RecordCalendarSync remembers the external event created for a class
func (s *Storage) RecordCalendarSync(ctx context.Context, userID, classID, provider, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_syncs (user_id, class_id, provider, event_id) VALUES (?, ?, ?, ?)`,
		userID, classID, provider, eventID,
	)
	return err
}

// CountCalendarSyncs returns how many external events were created for a class
func (s *Storage) CountCalendarSyncs(ctx context.Context, classID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calendar_syncs WHERE class_id = ?`, classID).Scan(&n)
	return n, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
