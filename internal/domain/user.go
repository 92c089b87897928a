package domain

import "time"

// User is an account known through the identity provider
type User struct {
	ID             string // identity provider subject
	Email          string
	TelegramChatID *int64
	CreatedAt      time.Time
}

// HasTelegram returns true if the user linked a chat for reminders
func (u *User) HasTelegram() bool {
	return u.TelegramChatID != nil && *u.TelegramChatID != 0
}
