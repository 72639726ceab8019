package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/idempotency"
	"quickgpt/backend/internal/llm"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/repository"
	"quickgpt/backend/internal/storage"
)

const (
	msgPromptRequired  = "chatId and prompt are required"
	msgUnsupportedMode = "unsupported mode"
	msgUpstreamFailed  = "The model could not generate a reply, please try again"
	msgUpstreamTimeout = "The model took too long to respond, please try again"
	msgInProgress      = "Submission already in progress"
)

// SubmitRequest is one prompt submitted to a chat.
type SubmitRequest struct {
	OwnerID        string
	ChatID         string
	Mode           model.Mode
	Prompt         string
	IdempotencyKey string
}

// MessageConfig bounds the two blocking phases of a submission.
type MessageConfig struct {
	UpstreamTimeout time.Duration
	StorageTimeout  time.Duration
}

// MessageService runs the submit protocol: validate, resolve the chat, call the
// upstream, then append the prompt and the reply to the chat in one write.
type MessageService struct {
	repo     repository.ChatRepository
	provider llm.Provider
	images   storage.ImageMirror
	idem     idempotency.Store
	cfg      MessageConfig
	logger   *zap.Logger
	now      func() time.Time
}

// MessageOption configures optional collaborators.
type MessageOption func(*MessageService)

// WithImageMirror re-hosts generated images before they are stored.
func WithImageMirror(m storage.ImageMirror) MessageOption {
	return func(s *MessageService) { s.images = m }
}

// WithIdempotency enables replay of submissions that carry a client key.
func WithIdempotency(store idempotency.Store) MessageOption {
	return func(s *MessageService) { s.idem = store }
}

func NewMessageService(repo repository.ChatRepository, provider llm.Provider, cfg MessageConfig, logger *zap.Logger, opts ...MessageOption) *MessageService {
	s := &MessageService{
		repo:     repo,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit sends req.Prompt upstream and returns the assistant reply. On success
// the chat has grown by exactly the user message and the reply; on any failure
// it is unchanged.
func (s *MessageService) Submit(ctx context.Context, req SubmitRequest) (reply *model.Message, err error) {
	if req.ChatID == "" || strings.TrimSpace(req.Prompt) == "" {
		return nil, app_errors.New(app_errors.ErrValidation, msgPromptRequired)
	}
	if !req.Mode.Valid() {
		return nil, app_errors.New(app_errors.ErrValidation, msgUnsupportedMode)
	}
	log := s.logger.With(zap.String("chat_id", req.ChatID), zap.String("user_id", req.OwnerID), zap.String("mode", string(req.Mode)))

	// A replay must not answer for a chat the caller can no longer see.
	if _, err := s.repo.GetChat(ctx, req.OwnerID, req.ChatID); err != nil {
		return nil, storageError(err)
	}

	if key, ok := s.idempotencyKey(req); ok {
		prior, rErr := s.idem.Reserve(ctx, key)
		switch {
		case errors.Is(rErr, idempotency.ErrInProgress):
			return nil, app_errors.New(app_errors.ErrConflict, msgInProgress)
		case rErr != nil:
			// Without the store the submission still runs, just without replay protection.
			log.Warn("idempotency store unavailable", zap.Error(rErr))
		case prior != nil:
			log.Info("replaying stored reply")
			return prior, nil
		default:
			defer func() { s.settle(key, reply, err, log) }()
		}
	}

	userMsg := model.Message{
		Role:      model.RoleUser,
		Content:   req.Prompt,
		Timestamp: s.now().UTC(),
		IsImage:   req.Mode == model.ModeImage,
	}

	replyMsg, err := s.generate(ctx, req, log)
	if err != nil {
		return nil, err
	}

	// A finished exchange is persisted even if the client has gone away.
	persistCtx := context.WithoutCancel(ctx)
	if s.cfg.StorageTimeout > 0 {
		var cancel context.CancelFunc
		persistCtx, cancel = context.WithTimeout(persistCtx, s.cfg.StorageTimeout)
		defer cancel()
	}
	if _, err := s.repo.AppendMessages(persistCtx, req.OwnerID, req.ChatID, userMsg, replyMsg); err != nil {
		log.Error("failed to persist exchange", zap.Error(err))
		return nil, storageError(err)
	}

	log.Info("reply stored", zap.Bool("is_image", replyMsg.IsImage))
	return &replyMsg, nil
}

func (s *MessageService) generate(ctx context.Context, req SubmitRequest, log *zap.Logger) (model.Message, error) {
	upstreamCtx := ctx
	if s.cfg.UpstreamTimeout > 0 {
		var cancel context.CancelFunc
		upstreamCtx, cancel = context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
		defer cancel()
	}

	started := time.Now()
	reply, err := llm.Generate(upstreamCtx, s.provider, req.Mode, req.Prompt)
	if err != nil {
		log.Warn("upstream call failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		if errors.Is(err, context.DeadlineExceeded) {
			return model.Message{}, app_errors.Wrap(app_errors.ErrUpstream, msgUpstreamTimeout, err)
		}
		return model.Message{}, app_errors.Wrap(app_errors.ErrUpstream, msgUpstreamFailed, err)
	}
	log.Debug("upstream replied", zap.Duration("elapsed", time.Since(started)))

	msg := model.Message{Role: model.RoleAssistant}
	switch r := reply.(type) {
	case llm.TextReply:
		msg.Content = r.Content
	case llm.ImageReply:
		msg.Content = s.mirror(ctx, r.URL, log)
		msg.IsImage = true
	}
	msg.Timestamp = s.now().UTC()
	return msg, nil
}

// mirror returns the re-hosted URL, or the upstream URL when re-hosting is off or fails.
func (s *MessageService) mirror(ctx context.Context, url string, log *zap.Logger) string {
	if s.images == nil {
		return url
	}
	mirrored, err := s.images.Mirror(ctx, url)
	if err != nil {
		log.Warn("image re-hosting failed, keeping upstream URL", zap.Error(err))
		return url
	}
	return mirrored
}

func (s *MessageService) idempotencyKey(req SubmitRequest) (string, bool) {
	if s.idem == nil || req.IdempotencyKey == "" {
		return "", false
	}
	return idempotency.Key(req.OwnerID, req.ChatID, req.Mode, req.IdempotencyKey), true
}

// settle records the outcome of a reserved submission.
func (s *MessageService) settle(key string, reply *model.Message, err error, log *zap.Logger) {
	ctx := context.Background()
	if s.cfg.StorageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StorageTimeout)
		defer cancel()
	}
	if err != nil || reply == nil {
		if rErr := s.idem.Release(ctx, key); rErr != nil {
			log.Warn("failed to release idempotency key", zap.Error(rErr))
		}
		return
	}
	if cErr := s.idem.Complete(ctx, key, reply); cErr != nil {
		log.Warn("failed to record idempotent reply", zap.Error(cErr))
	}
}
