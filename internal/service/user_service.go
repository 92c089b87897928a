package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tazhate/classsync/internal/auth"
	"github.com/tazhate/classsync/internal/domain"
	"github.com/tazhate/classsync/internal/storage"
)

// UserService keeps the local user row in step with the identity provider
type UserService struct {
	storage *storage.Storage
	logger  *zap.Logger
}

func NewUserService(s *storage.Storage, logger *zap.Logger) *UserService {
	return &UserService{storage: s, logger: logger}
}

// Ensure creates the user on first sight
func (s *UserService) Ensure(ctx context.Context, id auth.Identity) error {
	if err := s.storage.UpsertUser(ctx, &domain.User{ID: id.UserID, Email: id.Email}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Get returns the user or domain.ErrNotFound
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// LinkTelegram stores the chat that receives class reminders; 0 unlinks
func (s *UserService) LinkTelegram(ctx context.Context, userID string, chatID int64) error {
	if err := s.storage.SetTelegramChat(ctx, userID, chatID); err != nil {
		return err
	}
	s.logger.Info("telegram chat linked", zap.String("user_id", userID), zap.Bool("linked", chatID != 0))
	return nil
}
