package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/repository"
)

const (
	msgChatNotFound   = "Chat not found"
	msgStorageFailed  = "Could not reach the chat store, please try again"
	msgChatIDRequired = "chatId is required"
)

// ChatService handles chat lifecycle: creation, listing and deletion.
type ChatService struct {
	repo   repository.ChatRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewChatService(repo repository.ChatRepository, logger *zap.Logger) *ChatService {
	return &ChatService{repo: repo, logger: logger, now: time.Now}
}

// CreateChat creates an empty chat named "New Chat" for owner.
func (s *ChatService) CreateChat(ctx context.Context, owner *model.User) (*model.Chat, error) {
	now := s.now().UTC()
	chat := &model.Chat{
		ID:        uuid.NewString(),
		UserID:    owner.ID,
		UserName:  owner.Name,
		Name:      model.DefaultChatName,
		Messages:  []model.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateChat(ctx, chat); err != nil {
		return nil, storageError(err)
	}
	s.logger.Info("chat created", zap.String("chat_id", chat.ID), zap.String("user_id", owner.ID))
	return chat, nil
}

// ListChats returns the owner's chats, most recently updated first.
func (s *ChatService) ListChats(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	chats, err := s.repo.ListChats(ctx, ownerID)
	if err != nil {
		return nil, storageError(err)
	}
	return chats, nil
}

// DeleteChat removes the chat if the owner has it. Deleting a missing chat succeeds.
func (s *ChatService) DeleteChat(ctx context.Context, ownerID, chatID string) error {
	if chatID == "" {
		return app_errors.New(app_errors.ErrValidation, msgChatIDRequired)
	}
	if err := s.repo.DeleteChat(ctx, ownerID, chatID); err != nil {
		return storageError(err)
	}
	s.logger.Info("chat deleted", zap.String("chat_id", chatID), zap.String("user_id", ownerID))
	return nil
}

// storageError translates repository failures into application errors.
func storageError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return app_errors.Wrap(app_errors.ErrNotFound, msgChatNotFound, err)
	}
	return app_errors.Wrap(app_errors.ErrStorageUnavailable, msgStorageFailed, err)
}
