package repository

import (
	"context"

	"quickgpt/backend/internal/model"
)

// ChatRepository is the durable, owner-scoped chat store. Every method filters by
// ownerID; a chat owned by someone else behaves exactly like a missing one.
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *model.Chat) error
	ListChats(ctx context.Context, ownerID string) ([]*model.Chat, error)
	GetChat(ctx context.Context, ownerID, chatID string) (*model.Chat, error)
	// DeleteChat is idempotent: deleting a missing chat is not an error.
	DeleteChat(ctx context.Context, ownerID, chatID string) error
	// AppendMessages appends msgs as one atomic unit and bumps the chat's updatedAt.
	// It returns the chat as it is after the append.
	AppendMessages(ctx context.Context, ownerID, chatID string, msgs ...model.Message) (*model.Chat, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// Store bundles both repositories for the selected driver.
type Store interface {
	ChatRepository
	UserRepository
	Close(ctx context.Context) error
}
