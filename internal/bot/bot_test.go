package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/domain"
)

func command(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID, Type: "private"},
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: len(strings.Fields(text)[0])},
		},
	}
}

func TestReplyFor(t *testing.T) {
	text, ok := ReplyFor(command(4242, "/start"))
	require.True(t, ok)
	assert.Contains(t, text, "<code>4242</code>")

	_, ok = ReplyFor(command(4242, "/help"))
	assert.True(t, ok)

	_, ok = ReplyFor(command(4242, "/unknown"))
	assert.False(t, ok)

	_, ok = ReplyFor(&tgbotapi.Message{Text: "hello", Chat: &tgbotapi.Chat{ID: 1}})
	assert.False(t, ok)

	_, ok = ReplyFor(nil)
	assert.False(t, ok)
}

func TestSendMessage(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"ClassSync","username":"classsync_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/setMyCommands"):
			w.Write([]byte(`{"ok":true,"result":true}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			form = map[string]string{
				"chat_id":    r.PostForm.Get("chat_id"),
				"text":       r.PostForm.Get("text"),
				"parse_mode": r.PostForm.Get("parse_mode"),
			}
			w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	b, err := NewWithEndpoint("TOKEN", srv.URL+"/bot%s/%s", srv.Client(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, b.SendMessage(42, "🔔 <b>Quantum Physics</b> starts at 10:00"))
	assert.Equal(t, "42", form["chat_id"])
	assert.Equal(t, "HTML", form["parse_mode"])
	assert.Contains(t, form["text"], "Quantum Physics")
}

type fakeToday struct {
	classes []*domain.ClassRecord
	linked  bool
	err     error
}

func (f fakeToday) TodayForChat(context.Context, int64, time.Time) ([]*domain.ClassRecord, bool, error) {
	return f.classes, f.linked, f.err
}

func TestTodayReply(t *testing.T) {
	b := &Bot{logger: zap.NewNop()}
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC)

	assert.Contains(t, b.todayReply(ctx, 42, now), "not available")

	tests := []struct {
		name string
		src  fakeToday
		want string
	}{
		{"not linked", fakeToday{}, "<code>42</code>"},
		{"no classes", fakeToday{linked: true}, "No classes today"},
		{"error", fakeToday{err: errors.New("db closed")}, "Could not load"},
		{"classes", fakeToday{linked: true, classes: []*domain.ClassRecord{
			{Name: "Quantum Physics", StartTime: "10:00", EndTime: "11:30"},
		}}, "<code>10:00-11:30</code> Quantum Physics"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.SetTodaySource(tt.src)
			assert.Contains(t, b.todayReply(ctx, 42, now), tt.want)
		})
	}
}
