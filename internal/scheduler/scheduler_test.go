package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/storage"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(chatID int64, text string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{chatID, text})
	return nil
}

func setup(t *testing.T) (*Scheduler, *fakeSender, *storage.Storage) {
	t.Helper()
	ctx := context.Background()

	s, err := storage.New(filepath.Join(t.TempDir(), "classsync.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.UpsertUser(ctx, &domain.User{ID: "alice"}))
	require.NoError(t, s.UpsertUser(ctx, &domain.User{ID: "bob"}))
	require.NoError(t, s.SetTelegramChat(ctx, "alice", 100))

	require.NoError(t, s.CreateClasses(ctx, []*domain.ClassRecord{
		{ID: "c1", UserID: "alice", Name: "Quantum Physics", Day: "Monday", StartTime: "10:00", EndTime: "11:30", Location: "Hall C", Professor: "Dr. Evelyn Reed", ReminderOffsetMinutes: 15},
		{ID: "c2", UserID: "alice", Name: "Ethics & Law", Day: "Monday", StartTime: "08:00", EndTime: "09:00", Professor: domain.ProfessorNotAvailable, ReminderOffsetMinutes: 5},
		{ID: "c3", UserID: "alice", Name: "Organic Chemistry", Day: "Tuesday", StartTime: "13:00", EndTime: "14:30", Professor: domain.ProfessorNotAvailable, ReminderOffsetMinutes: 15},
		{ID: "c4", UserID: "bob", Name: "Unlinked", Day: "Monday", StartTime: "10:00", EndTime: "11:00", Professor: domain.ProfessorNotAvailable, ReminderOffsetMinutes: 15},
	}))

	sched := New(s, time.UTC, "07:00", zap.NewNop())
	sender := &fakeSender{}
	sched.SetSender(sender)
	return sched, sender, s
}

// 2024-01-01 is a Monday.
func monday(hour, minute, sec int) time.Time {
	return time.Date(2024, 1, 1, hour, minute, sec, 0, time.UTC)
}

func TestSendDueReminders(t *testing.T) {
	ctx := context.Background()
	sched, sender, _ := setup(t)

	assert.Equal(t, 0, sched.SendDueReminders(ctx, monday(9, 44, 0)), "too early")

	assert.Equal(t, 1, sched.SendDueReminders(ctx, monday(9, 45, 3)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(100), sender.sent[0].chatID)
	assert.Contains(t, sender.sent[0].text, "<b>Quantum Physics</b> starts at 10:00")
	assert.Contains(t, sender.sent[0].text, "Hall C")
	assert.Contains(t, sender.sent[0].text, "Dr. Evelyn Reed")

	assert.Equal(t, 0, sched.SendDueReminders(ctx, monday(9, 46, 0)), "already reminded")
	assert.Equal(t, 0, sched.SendDueReminders(ctx, monday(9, 50, 0)), "window passed")
}

func TestSendDueReminders_LateTick(t *testing.T) {
	ctx := context.Background()
	sched, sender, _ := setup(t)

	// 07:55 is the reminder moment for the 08:00 class; a tick 90s late still sends.
	assert.Equal(t, 1, sched.SendDueReminders(ctx, monday(7, 56, 30)))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].text, "Ethics &amp; Law")
	assert.NotContains(t, sender.sent[0].text, "👤")
}

func TestSendDueReminders_NextWeekAgain(t *testing.T) {
	ctx := context.Background()
	sched, sender, _ := setup(t)

	require.Equal(t, 1, sched.SendDueReminders(ctx, monday(9, 45, 0)))
	require.Equal(t, 1, sched.SendDueReminders(ctx, monday(9, 45, 0).AddDate(0, 0, 7)))
	assert.Len(t, sender.sent, 2)
}

func TestSendDueReminders_SendFailureRetriesNextTick(t *testing.T) {
	ctx := context.Background()
	sched, sender, _ := setup(t)

	sender.err = errors.New("telegram down")
	assert.Equal(t, 0, sched.SendDueReminders(ctx, monday(9, 45, 0)))

	sender.err = nil
	assert.Equal(t, 1, sched.SendDueReminders(ctx, monday(9, 46, 0)))
}

func TestSendDueReminders_NoSender(t *testing.T) {
	sched, _, _ := setup(t)
	sched.SetSender(nil)
	assert.Equal(t, 0, sched.SendDueReminders(context.Background(), monday(9, 45, 0)))
}

func TestSendDailyDigest(t *testing.T) {
	ctx := context.Background()
	sched, sender, _ := setup(t)

	assert.Equal(t, 1, sched.SendDailyDigest(ctx, monday(7, 0, 0)))
	require.Len(t, sender.sent, 1)
	text := sender.sent[0].text
	assert.Contains(t, text, "Today's classes")
	assert.Contains(t, text, "Quantum Physics")
	assert.NotContains(t, text, "Organic Chemistry")
	assert.Less(t, strings.Index(text, "Ethics"), strings.Index(text, "Quantum"), "ordered by start time")

	sender.sent = nil
	sunday := time.Date(2024, 1, 7, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, sched.SendDailyDigest(ctx, sunday))
	assert.Empty(t, sender.sent)
}
