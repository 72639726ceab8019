package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"quickgpt/backend/internal/model"
)

type sqliteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository returns a Store backed by db. The schema must already be migrated.
func NewSQLiteRepository(db *sql.DB) Store {
	return &sqliteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *sqliteRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	query := "INSERT INTO chats (id, user_id, user_name, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, chat.ID, chat.UserID, chat.UserName, chat.Name, chat.CreatedAt.UTC(), chat.UpdatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *sqliteRepository) ListChats(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	query := "SELECT id, user_id, user_name, name, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC"
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := make([]*model.Chat, 0)
	byID := make(map[string]*model.Chat)
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.UserName, &chat.Name, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chat.Messages = []model.Message{}
		chats = append(chats, &chat)
		byID[chat.ID] = &chat
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return chats, nil
	}

	msgQuery := `
		SELECT m.chat_id, m.role, m.content, m.is_image, m.timestamp
		FROM messages m JOIN chats c ON c.id = m.chat_id
		WHERE c.user_id = ?
		ORDER BY m.chat_id, m.seq ASC
	`
	msgRows, err := r.db.QueryContext(ctx, msgQuery, ownerID)
	if err != nil {
		return nil, err
	}
	defer msgRows.Close()
	for msgRows.Next() {
		var chatID string
		var msg model.Message
		if err := msgRows.Scan(&chatID, &msg.Role, &msg.Content, &msg.IsImage, &msg.Timestamp); err != nil {
			return nil, err
		}
		if c, ok := byID[chatID]; ok {
			c.Messages = append(c.Messages, msg)
		}
	}
	return chats, msgRows.Err()
}

func (r *sqliteRepository) GetChat(ctx context.Context, ownerID, chatID string) (*model.Chat, error) {
	chat, err := getChat(ctx, r.db, ownerID, chatID)
	if err != nil {
		return nil, err
	}
	chat.Messages, err = getMessages(ctx, r.db, chatID)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

func (r *sqliteRepository) DeleteChat(ctx context.Context, ownerID, chatID string) error {
	// Messages go with the chat through ON DELETE CASCADE.
	_, err := r.db.ExecContext(ctx, "DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, ownerID)
	return err
}

// AppendMessages inserts every message and bumps updated_at inside one immediate
// transaction, so two appends to the same chat are strictly ordered and a chat
// deleted in the meantime is reported as not found rather than recreated.
func (r *sqliteRepository) AppendMessages(ctx context.Context, ownerID, chatID string, msgs ...model.Message) (*model.Chat, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", err)
	}
	// Ensure transaction is rolled back on error
	defer func() { _ = tx.Rollback() }()

	chat, err := getChat(ctx, tx, ownerID, chatID)
	if err != nil {
		return nil, err
	}

	var lastSeq int64
	var lastTS time.Time
	row := tx.QueryRowContext(ctx, "SELECT seq, timestamp FROM messages WHERE chat_id = ? ORDER BY seq DESC LIMIT 1", chatID)
	if err := row.Scan(&lastSeq, &lastTS); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not read chat tail: %w", err)
	}

	insert := "INSERT INTO messages (chat_id, seq, role, content, is_image, timestamp) VALUES (?, ?, ?, ?, ?, ?)"
	for i, msg := range model.ClampTimestamps(lastTS, msgs) {
		if _, err := tx.ExecContext(ctx, insert, chatID, lastSeq+int64(i)+1, msg.Role, msg.Content, msg.IsImage, msg.Timestamp.UTC()); err != nil {
			return nil, fmt.Errorf("could not insert message: %w", err)
		}
	}

	updatedAt := r.now()
	if updatedAt.Before(chat.UpdatedAt) {
		updatedAt = chat.UpdatedAt
	}
	if _, err := tx.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ?", updatedAt, chatID); err != nil {
		return nil, fmt.Errorf("could not update chat timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("could not commit append: %w", err)
	}
	return r.GetChat(ctx, ownerID, chatID)
}

func (r *sqliteRepository) CreateUser(ctx context.Context, user *model.User) error {
	query := "INSERT INTO users (id, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Name, model.NormalizeEmail(user.Email), user.PasswordHash, user.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func (r *sqliteRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, "email = ?", model.NormalizeEmail(email))
}

func (r *sqliteRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

func (r *sqliteRepository) getUser(ctx context.Context, where string, arg string) (*model.User, error) {
	query := "SELECT id, name, email, password_hash, created_at FROM users WHERE " + where
	var u model.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *sqliteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func getChat(ctx context.Context, q queryer, ownerID, chatID string) (*model.Chat, error) {
	query := "SELECT id, user_id, user_name, name, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?"
	var chat model.Chat
	err := q.QueryRowContext(ctx, query, chatID, ownerID).
		Scan(&chat.ID, &chat.UserID, &chat.UserName, &chat.Name, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func getMessages(ctx context.Context, q queryer, chatID string) ([]model.Message, error) {
	query := "SELECT role, content, is_image, timestamp FROM messages WHERE chat_id = ? ORDER BY seq ASC"
	rows, err := q.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var msg model.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.IsImage, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
