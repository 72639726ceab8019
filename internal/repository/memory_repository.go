package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"quickgpt/backend/internal/model"
)

// memoryRepository keeps everything in process. A single mutex covers chats and
// users, which makes every append trivially atomic.
type memoryRepository struct {
	mu      sync.RWMutex
	chats   map[string]*model.Chat
	users   map[string]*model.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryRepository returns an empty in-memory Store.
func NewMemoryRepository() Store {
	return &memoryRepository{
		chats:   make(map[string]*model.Chat),
		users:   make(map[string]*model.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *memoryRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[chat.ID]; ok {
		return ErrConflict
	}
	r.chats[chat.ID] = copyChat(chat)
	return nil
}

func (r *memoryRepository) ListChats(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	chats := make([]*model.Chat, 0)
	for _, c := range r.chats {
		if c.UserID == ownerID {
			chats = append(chats, copyChat(c))
		}
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (r *memoryRepository) GetChat(ctx context.Context, ownerID, chatID string) (*model.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chats[chatID]
	if !ok || c.UserID != ownerID {
		return nil, ErrNotFound
	}
	return copyChat(c), nil
}

func (r *memoryRepository) DeleteChat(ctx context.Context, ownerID, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.chats[chatID]; ok && c.UserID == ownerID {
		delete(r.chats, chatID)
	}
	return nil
}

func (r *memoryRepository) AppendMessages(ctx context.Context, ownerID, chatID string, msgs ...model.Message) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chats[chatID]
	if !ok || c.UserID != ownerID {
		return nil, ErrNotFound
	}
	c.Messages = append(c.Messages, model.ClampTimestamps(c.LastTimestamp(), msgs)...)
	if now := r.now(); now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
	return copyChat(c), nil
}

func (r *memoryRepository) CreateUser(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := model.NormalizeEmail(user.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrConflict
	}
	u := *user
	u.Email = email
	r.users[u.ID] = &u
	r.byEmail[email] = u.ID
	return nil
}

func (r *memoryRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[model.NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := *r.users[id]
	return &u, nil
}

func (r *memoryRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepository) Close(ctx context.Context) error { return nil }

func copyChat(c *model.Chat) *model.Chat {
	cp := *c
	cp.Messages = make([]model.Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}
