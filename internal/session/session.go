// Package session holds the client-side state of one signed-in user: the token,
// the loaded chats and which chat is selected. Selection never leaves the client.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"quickgpt/backend/internal/model"
)

var (
	// ErrNoActiveChat is returned by Send when no chat is selected.
	ErrNoActiveChat = errors.New("session: no chat selected")
	// ErrUnknownChat is returned by Select for a chat that is not loaded.
	ErrUnknownChat = errors.New("session: chat not loaded")
)

// API is the part of the HTTP client a session drives. *client.Client implements it.
type API interface {
	SetToken(token string)
	Register(ctx context.Context, name, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	User(ctx context.Context) (*model.User, error)
	CreateChat(ctx context.Context) error
	ListChats(ctx context.Context) ([]*model.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	Submit(ctx context.Context, mode model.Mode, chatID, prompt, idempotencyKey string) (*model.Message, error)
}

// Session is safe for concurrent use.
type Session struct {
	api API
	now func() time.Time

	mu       sync.Mutex
	token    string
	user     *model.User
	chats    []*model.Chat
	activeID string
}

func New(api API) *Session {
	return &Session{api: api, now: time.Now}
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.setToken(token)
	return nil
}

func (s *Session) Register(ctx context.Context, name, email, password string) error {
	token, err := s.api.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	s.setToken(token)
	return nil
}

// LoadUser fetches the signed-in account.
func (s *Session) LoadUser(ctx context.Context) (*model.User, error) {
	u, err := s.api.User(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return u, nil
}

// Bootstrap loads the chat list, creating one chat if there are none. It lists at
// most twice and creates at most once, then selects the most recently updated chat.
func (s *Session) Bootstrap(ctx context.Context) error {
	chats, err := s.api.ListChats(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		if err := s.api.CreateChat(ctx); err != nil {
			return err
		}
		if chats, err = s.api.ListChats(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	s.activeID = ""
	if len(chats) > 0 {
		s.activeID = chats[0].ID
	}
	return nil
}

// Select makes chatID the active chat.
func (s *Session) Select(chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.find(chatID) == nil {
		return ErrUnknownChat
	}
	s.activeID = chatID
	return nil
}

// Active returns a copy of the selected chat, or nil.
func (s *Session) Active() *model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.find(s.activeID); c != nil {
		return copyChat(c)
	}
	return nil
}

// Chats returns copies of the loaded chats in server order.
func (s *Session) Chats() []*model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = copyChat(c)
	}
	return out
}

// User returns the account loaded by LoadUser, or nil.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// NewChat creates a chat, reloads the list and selects the newest chat.
func (s *Session) NewChat(ctx context.Context) error {
	if err := s.api.CreateChat(ctx); err != nil {
		return err
	}
	chats, err := s.api.ListChats(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	s.activeID = ""
	if len(chats) > 0 {
		s.activeID = chats[0].ID
	}
	return nil
}

// DeleteChat deletes chatID and reloads the list without creating a replacement.
// Deleting the active chat clears the selection.
func (s *Session) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.api.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	chats, err := s.api.ListChats(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = chats
	if s.activeID == chatID || s.find(s.activeID) == nil {
		s.activeID = ""
	}
	return nil
}

// Send submits prompt to the active chat. On success the prompt and the reply are
// appended to the local copy, mirroring what the server stored.
func (s *Session) Send(ctx context.Context, mode model.Mode, prompt string) (*model.Message, error) {
	s.mu.Lock()
	chatID := s.activeID
	s.mu.Unlock()
	if chatID == "" {
		return nil, ErrNoActiveChat
	}

	sentAt := s.now().UTC()
	reply, err := s.api.Submit(ctx, mode, chatID, prompt, uuid.NewString())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.find(chatID); c != nil {
		c.Messages = append(c.Messages,
			model.Message{Role: model.RoleUser, Content: prompt, Timestamp: sentAt, IsImage: mode == model.ModeImage},
			*reply,
		)
	}
	return reply, nil
}

// Filter returns the loaded chats whose first message contains query, or whose
// name does when the chat has no messages. Matching ignores case. An empty query
// matches every chat.
func (s *Session) Filter(query string) []*model.Chat {
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		text := c.Name
		if len(c.Messages) > 0 {
			text = c.Messages[0].Content
		}
		if q == "" || strings.Contains(strings.ToLower(text), q) {
			out = append(out, copyChat(c))
		}
	}
	return out
}

// Logout forgets the token, the user, the chats and the selection.
func (s *Session) Logout() {
	s.setToken("")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.chats = nil
	s.activeID = ""
}

// Token returns the current bearer token.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) setToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.api.SetToken(token)
}

func (s *Session) find(chatID string) *model.Chat {
	if chatID == "" {
		return nil
	}
	for _, c := range s.chats {
		if c.ID == chatID {
			return c
		}
	}
	return nil
}

func copyChat(c *model.Chat) *model.Chat {
	cp := *c
	cp.Messages = append([]model.Message(nil), c.Messages...)
	return &cp
}
