package model

import (
	"strings"
	"time"
)

// DefaultChatName is the name given to every freshly created chat.
const DefaultChatName = "New Chat"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode selects which upstream capability a submission uses.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

// Valid reports whether m is a supported submission mode.
func (m Mode) Valid() bool {
	return m == ModeText || m == ModeImage
}

// User is an account that owns chats.
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Chat is a named, ordered conversation owned by exactly one user.
type Chat struct {
	ID        string    `json:"_id" bson:"_id"`
	UserID    string    `json:"userId" bson:"userId"`
	UserName  string    `json:"userName" bson:"userName"`
	Name      string    `json:"name" bson:"name"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// LastTimestamp returns the timestamp of the newest message, or the zero time.
func (c *Chat) LastTimestamp() time.Time {
	if len(c.Messages) == 0 {
		return time.Time{}
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}

// Message is one turn in a chat. Messages are immutable once appended.
type Message struct {
	Role      Role      `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	IsImage   bool      `json:"isImage" bson:"isImage"`
}

// ClampTimestamps raises each message's timestamp to at least floor, and to at least
// the previous message in msgs, so that the resulting sequence never goes backwards.
// Stores call it while holding their append lock.
func ClampTimestamps(floor time.Time, msgs []Message) []Message {
	out := make([]Message, len(msgs))
	prev := floor
	for i, m := range msgs {
		if m.Timestamp.Before(prev) {
			m.Timestamp = prev
		}
		prev = m.Timestamp
		out[i] = m
	}
	return out
}
