package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/idempotency"
	"quickgpt/backend/internal/llm"
	mock_llm "quickgpt/backend/internal/llm/mocks"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/repository"
	mock_repo "quickgpt/backend/internal/repository/mocks"
	"quickgpt/backend/internal/service"
)

type messageMocks struct {
	repo *mock_repo.MockStore
	llm  *mock_llm.MockProvider
}

func setupMessageService(t *testing.T, opts ...service.MessageOption) (*service.MessageService, messageMocks) {
	mocks := messageMocks{
		repo: mock_repo.NewMockStore(t),
		llm:  mock_llm.NewMockProvider(t),
	}
	cfg := service.MessageConfig{UpstreamTimeout: time.Second, StorageTimeout: time.Second}
	return service.NewMessageService(mocks.repo, mocks.llm, cfg, zap.NewNop(), opts...), mocks
}

type stubMirror struct {
	url string
	err error
}

func (m stubMirror) Mirror(ctx context.Context, src string) (string, error) { return m.url, m.err }

func TestMessageService_Submit_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupMessageService(t)

	cases := []struct {
		name    string
		req     service.SubmitRequest
		message string
	}{
		{"missing chat", service.SubmitRequest{OwnerID: "u1", Mode: model.ModeText, Prompt: "hi"}, "chatId and prompt are required"},
		{"missing prompt", service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText}, "chatId and prompt are required"},
		{"blank prompt", service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "  \n\t"}, "chatId and prompt are required"},
		{"unknown mode", service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: "video", Prompt: "hi"}, "unsupported mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, tc.req)

			assert.ErrorIs(t, err, app_errors.ErrValidation)
			msg, ok := app_errors.PublicMessage(err)
			assert.True(t, ok)
			assert.Equal(t, tc.message, msg)
		})
	}
}

func TestMessageService_Submit(t *testing.T) {
	ctx := context.Background()
	chat := &model.Chat{ID: "c1", UserID: "u1", Messages: []model.Message{}}

	t.Run("Text success appends prompt and reply in one write", func(t *testing.T) {
		// Arrange
		svc, m := setupMessageService(t)
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateText", mock.Anything, "hello").Return(llm.TextReply{Content: "Hi!"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1",
			mock.MatchedBy(func(msg model.Message) bool {
				return msg.Role == model.RoleUser && msg.Content == "hello" && !msg.IsImage
			}),
			mock.MatchedBy(func(msg model.Message) bool {
				return msg.Role == model.RoleAssistant && msg.Content == "Hi!" && !msg.IsImage
			}),
		).Return(chat, nil).Once()

		// Act
		reply, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hello"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, model.RoleAssistant, reply.Role)
		assert.Equal(t, "Hi!", reply.Content)
		assert.False(t, reply.IsImage)
		assert.False(t, reply.Timestamp.IsZero())
	})

	t.Run("Image success flags both messages", func(t *testing.T) {
		svc, m := setupMessageService(t)
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateImage", mock.Anything, "a cat").Return(llm.ImageReply{URL: "https://img/cat.png"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1",
			mock.MatchedBy(func(msg model.Message) bool { return msg.IsImage && msg.Content == "a cat" }),
			mock.MatchedBy(func(msg model.Message) bool { return msg.IsImage && msg.Content == "https://img/cat.png" }),
		).Return(chat, nil).Once()

		reply, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeImage, Prompt: "a cat"})

		require.NoError(t, err)
		assert.True(t, reply.IsImage)
		assert.Equal(t, "https://img/cat.png", reply.Content)
	})

	t.Run("Image is re-hosted when a mirror is configured", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithImageMirror(stubMirror{url: "https://cdn/cat.png"}))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateImage", mock.Anything, "a cat").Return(llm.ImageReply{URL: "https://img/cat.png"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything,
			mock.MatchedBy(func(msg model.Message) bool { return msg.Content == "https://cdn/cat.png" }),
		).Return(chat, nil).Once()

		reply, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeImage, Prompt: "a cat"})

		require.NoError(t, err)
		assert.Equal(t, "https://cdn/cat.png", reply.Content)
	})

	t.Run("Mirror failure keeps the upstream URL", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithImageMirror(stubMirror{err: errors.New("s3 down")}))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateImage", mock.Anything, "a cat").Return(llm.ImageReply{URL: "https://img/cat.png"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(chat, nil).Once()

		reply, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeImage, Prompt: "a cat"})

		require.NoError(t, err)
		assert.Equal(t, "https://img/cat.png", reply.Content)
	})

	t.Run("Foreign or missing chat never reaches the upstream", func(t *testing.T) {
		svc, m := setupMessageService(t)
		m.repo.On("GetChat", ctx, "intruder", "c1").Return(nil, repository.ErrNotFound).Once()

		_, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "intruder", ChatID: "c1", Mode: model.ModeText, Prompt: "hi"})

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
		msg, _ := app_errors.PublicMessage(err)
		assert.Equal(t, "Chat not found", msg)
		m.llm.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
	})

	t.Run("Upstream failure persists nothing", func(t *testing.T) {
		svc, m := setupMessageService(t)
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{}, errors.New("500 from upstream")).Once()

		_, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hi"})

		assert.ErrorIs(t, err, app_errors.ErrUpstream)
		m.repo.AssertNotCalled(t, "AppendMessages")
	})

	t.Run("Upstream timeout is reported as such", func(t *testing.T) {
		repo := mock_repo.NewMockStore(t)
		provider := mock_llm.NewMockProvider(t)
		svc := service.NewMessageService(repo, provider, service.MessageConfig{UpstreamTimeout: 20 * time.Millisecond}, zap.NewNop())
		repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		provider.On("GenerateText", mock.Anything, "hi").Return(func(ctx context.Context, _ string) (llm.TextReply, error) {
			<-ctx.Done()
			return llm.TextReply{}, ctx.Err()
		}).Once()

		_, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hi"})

		assert.ErrorIs(t, err, app_errors.ErrUpstream)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		msg, _ := app_errors.PublicMessage(err)
		assert.Equal(t, "The model took too long to respond, please try again", msg)
	})

	t.Run("Storage failure after a reply", func(t *testing.T) {
		svc, m := setupMessageService(t)
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(nil, errors.New("disk full")).Once()

		_, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hi"})

		assert.ErrorIs(t, err, app_errors.ErrStorageUnavailable)
	})

	t.Run("Chat deleted during the upstream call", func(t *testing.T) {
		svc, m := setupMessageService(t)
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(nil, repository.ErrNotFound).Once()

		_, err := svc.Submit(ctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hi"})

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})

	t.Run("Persistence survives client cancellation after the reply", func(t *testing.T) {
		svc, m := setupMessageService(t)
		cctx, cancel := context.WithCancel(ctx)
		m.repo.On("GetChat", cctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(func(context.Context, string) (llm.TextReply, error) {
			cancel() // the client disconnects just as the reply arrives
			return llm.TextReply{Content: "yo"}, nil
		}).Once()
		m.repo.On("AppendMessages", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), "u1", "c1", mock.Anything, mock.Anything).
			Return(chat, nil).Once()

		_, err := svc.Submit(cctx, service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hi"})

		assert.NoError(t, err)
	})
}

func TestMessageService_Submit_Idempotency(t *testing.T) {
	ctx := context.Background()
	chat := &model.Chat{ID: "c1", UserID: "u1", Messages: []model.Message{}}
	req := service.SubmitRequest{OwnerID: "u1", ChatID: "c1", Mode: model.ModeText, Prompt: "hi", IdempotencyKey: "k1"}

	t.Run("Same key twice appends once and replays the reply", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithIdempotency(idempotency.NewMemoryStore(time.Hour, time.Minute)))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Twice()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(chat, nil).Once()

		first, err := svc.Submit(ctx, req)
		require.NoError(t, err)
		second, err := svc.Submit(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, first.Content, second.Content)
		assert.True(t, first.Timestamp.Equal(second.Timestamp))
	})

	t.Run("Failed attempt frees the key for a retry", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithIdempotency(idempotency.NewMemoryStore(time.Hour, time.Minute)))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Twice()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{}, errors.New("boom")).Once()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(chat, nil).Once()

		_, err := svc.Submit(ctx, req)
		require.ErrorIs(t, err, app_errors.ErrUpstream)

		reply, err := svc.Submit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, "yo", reply.Content)
	})

	t.Run("Retry while the first attempt runs is a conflict", func(t *testing.T) {
		store := idempotency.NewMemoryStore(time.Hour, time.Minute)
		svc, m := setupMessageService(t, service.WithIdempotency(store))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		_, err := store.Reserve(ctx, idempotency.Key("u1", "c1", model.ModeText, "k1"))
		require.NoError(t, err)

		_, err = svc.Submit(ctx, req)

		assert.ErrorIs(t, err, app_errors.ErrConflict)
	})

	t.Run("Stored reply is not replayed once the chat is gone", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithIdempotency(idempotency.NewMemoryStore(time.Hour, time.Minute)))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Once()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(chat, nil).Once()
		_, err := svc.Submit(ctx, req)
		require.NoError(t, err)

		m.repo.On("GetChat", ctx, "u1", "c1").Return(nil, repository.ErrNotFound).Once()
		_, err = svc.Submit(ctx, req)

		assert.ErrorIs(t, err, app_errors.ErrNotFound)
	})

	t.Run("Same key in another mode is a new submission", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithIdempotency(idempotency.NewMemoryStore(time.Hour, time.Minute)))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Twice()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Once()
		m.llm.On("GenerateImage", mock.Anything, "hi").Return(llm.ImageReply{URL: "https://img/hi.png"}, nil).Once()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(chat, nil).Twice()

		_, err := svc.Submit(ctx, req)
		require.NoError(t, err)
		image := req
		image.Mode = model.ModeImage
		reply, err := svc.Submit(ctx, image)

		require.NoError(t, err)
		assert.True(t, reply.IsImage)
		assert.Equal(t, "https://img/hi.png", reply.Content)
	})

	t.Run("No key means no deduplication", func(t *testing.T) {
		svc, m := setupMessageService(t, service.WithIdempotency(idempotency.NewMemoryStore(time.Hour, time.Minute)))
		m.repo.On("GetChat", ctx, "u1", "c1").Return(chat, nil).Twice()
		m.llm.On("GenerateText", mock.Anything, "hi").Return(llm.TextReply{Content: "yo"}, nil).Twice()
		m.repo.On("AppendMessages", mock.Anything, "u1", "c1", mock.Anything, mock.Anything).Return(chat, nil).Twice()

		noKey := req
		noKey.IdempotencyKey = ""
		_, err := svc.Submit(ctx, noKey)
		require.NoError(t, err)
		_, err = svc.Submit(ctx, noKey)
		require.NoError(t, err)
	})
}
