package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/scheduler"
)

// TodaySource looks up today's classes for the user who linked a chat
type TodaySource interface {
	TodayForChat(ctx context.Context, chatID int64, now time.Time) ([]*domain.ClassRecord, bool, error)
}

// Bot delivers class reminders over Telegram and answers /start with the
// chat ID the user links in ClassSync.
type Bot struct {
	api    *tgbotapi.BotAPI
	today  TodaySource
	logger *zap.Logger
}

func New(token string, logger *zap.Logger) (*Bot, error) {
	return NewWithEndpoint(token, tgbotapi.APIEndpoint, http.DefaultClient, logger)
}

// NewWithEndpoint talks to a custom Bot API server
func NewWithEndpoint(token, endpoint string, client *http.Client, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))

	b := &Bot{api: api, logger: logger}
	b.setCommands()
	return b, nil
}

// SetTodaySource enables /today
func (b *Bot) SetTodaySource(src TodaySource) {
	b.today = src
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "today", Description: "📅 Today's classes"},
		{Command: "id", Description: "🔗 Chat ID for linking"},
		{Command: "help", Description: "❓ Help"},
	}

	if _, err := b.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		b.logger.Warn("set bot commands", zap.Error(err))
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

// Run polls for updates until ctx is done
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	var text string
	var ok bool
	if msg.IsCommand() && strings.ToLower(msg.Command()) == "today" {
		text, ok = b.todayReply(ctx, msg.Chat.ID, time.Now()), true
	} else {
		text, ok = ReplyFor(msg)
	}
	if !ok {
		return
	}

	if err := b.SendMessage(msg.Chat.ID, text); err != nil {
		b.logger.Warn("reply to telegram command", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) todayReply(ctx context.Context, chatID int64, now time.Time) string {
	if b.today == nil {
		return "Today's schedule is not available right now."
	}

	classes, linked, err := b.today.TodayForChat(ctx, chatID, now)
	switch {
	case err != nil:
		b.logger.Error("load today's classes", zap.Int64("chat_id", chatID), zap.Error(err))
		return "❌ Could not load your schedule, try again later."
	case !linked:
		return fmt.Sprintf("This chat is not linked yet. Paste <code>%d</code> into ClassSync settings.", chatID)
	case len(classes) == 0:
		return "🎉 No classes today."
	default:
		return scheduler.FormatDigest(classes)
	}
}

// ReplyFor returns the answer to a command message, false for anything else
func ReplyFor(msg *tgbotapi.Message) (string, bool) {
	if msg == nil || msg.Chat == nil || !msg.IsCommand() {
		return "", false
	}

	switch strings.ToLower(msg.Command()) {
	case "start", "id":
		return fmt.Sprintf("👋 Your chat ID is <code>%d</code>.\n\nPaste it into ClassSync settings to get a message before each class.", msg.Chat.ID), true
	case "help":
		return "I send a reminder before each class and a list of today's classes every morning.\n\n/today shows today's classes.\n/id shows your chat ID.", true
	default:
		return "", false
	}
}
