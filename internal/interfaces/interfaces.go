package interfaces

import (
	"context"

	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/service"
)

// The API layer depends on these contracts rather than on the concrete services.

// ChatService manages the lifecycle of an owner's chats.
type ChatService interface {
	CreateChat(ctx context.Context, owner *model.User) (*model.Chat, error)
	ListChats(ctx context.Context, ownerID string) ([]*model.Chat, error)
	DeleteChat(ctx context.Context, ownerID, chatID string) error
}

// MessageService runs prompt submissions.
type MessageService interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*model.Message, error)
}

// UserService manages accounts and tokens.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

var (
	_ ChatService    = (*service.ChatService)(nil)
	_ MessageService = (*service.MessageService)(nil)
	_ UserService    = (*service.UserService)(nil)
)
