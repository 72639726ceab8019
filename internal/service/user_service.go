package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quickgpt/backend/internal/auth"
	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/repository"
)

const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgTokenFailed        = "Not authorized, token failed"
	msgUserNotFound       = "Not authorized, user not found"
	msgAccountStore       = "Could not reach the account store, please try again"
)

// UserService handles registration, login and token authentication.
type UserService struct {
	repo   repository.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(repo repository.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, hasher: hasher, tokens: tokens, logger: logger, now: time.Now}
}

// Register creates an account and returns a token for it.
func (s *UserService) Register(ctx context.Context, name, email, password string) (string, error) {
	email = model.NormalizeEmail(email)
	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return "", app_errors.New(app_errors.ErrConflict, msgUserExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", app_errors.Wrap(app_errors.ErrStorageUnavailable, msgAccountStore, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", app_errors.Wrap(app_errors.ErrInternal, "Could not create account", err)
	}
	user := &model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, repository.ErrConflict) {
			return "", app_errors.New(app_errors.ErrConflict, msgUserExists)
		}
		return "", app_errors.Wrap(app_errors.ErrStorageUnavailable, msgAccountStore, err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user.ID)
}

// Login checks credentials and returns a fresh token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", app_errors.New(app_errors.ErrUnauthorized, msgInvalidCredentials)
	}
	if err != nil {
		return "", app_errors.Wrap(app_errors.ErrStorageUnavailable, msgAccountStore, err)
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		return "", app_errors.New(app_errors.ErrUnauthorized, msgInvalidCredentials)
	}
	return s.issue(user.ID)
}

// Authenticate resolves a bearer token to its user.
func (s *UserService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, app_errors.Wrap(app_errors.ErrUnauthorized, msgTokenFailed, err)
	}
	user, err := s.Get(ctx, userID)
	if errors.Is(err, app_errors.ErrNotFound) {
		return nil, app_errors.New(app_errors.ErrUnauthorized, msgUserNotFound)
	}
	return user, err
}

// Get returns the account with id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, app_errors.Wrap(app_errors.ErrNotFound, "User not found", err)
	}
	if err != nil {
		return nil, app_errors.Wrap(app_errors.ErrStorageUnavailable, msgAccountStore, err)
	}
	return user, nil
}

func (s *UserService) issue(userID string) (string, error) {
	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", app_errors.Wrap(app_errors.ErrInternal, "Could not issue token", err)
	}
	return token, nil
}
