package session_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"quickgpt/backend/internal/api"
	"quickgpt/backend/internal/auth"
	"quickgpt/backend/internal/client"
	"quickgpt/backend/internal/idempotency"
	"quickgpt/backend/internal/llm"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/repository"
	"quickgpt/backend/internal/service"
	"quickgpt/backend/internal/session"
)

// newServer runs the real router over the memory store and the echo provider.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := zap.NewNop()
	store := repository.NewMemoryRepository()
	users := service.NewUserService(store, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewTokenManager("e2e-secret", time.Hour), log)
	chats := service.NewChatService(store, log)
	messages := service.NewMessageService(store, llm.EchoProvider{}, service.MessageConfig{
		UpstreamTimeout: 5 * time.Second,
		StorageTimeout:  time.Second,
	}, log, service.WithIdempotency(idempotency.NewMemoryStore(time.Minute, 0)))

	router := api.NewRouter(api.Handlers{
		Users:    api.NewUserHandler(users, log, false),
		Chats:    api.NewChatHandler(chats, log, false),
		Messages: api.NewMessageHandler(messages, log, false),
		Auth:     api.NewAuthMiddleware(users, log, false),
	}, api.RouterConfig{}, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestEndToEnd_RegisterSubmitDelete(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	s := session.New(client.New(srv.URL, srv.Client()))

	require.NoError(t, s.Register(ctx, "Ann", "ann@example.com", "hunter22"))
	user, err := s.LoadUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)

	// An empty account gets exactly one chat.
	require.NoError(t, s.Bootstrap(ctx))
	require.Len(t, s.Chats(), 1)
	active := s.Active()
	require.NotNil(t, active)
	assert.Equal(t, model.DefaultChatName, active.Name)

	reply, err := s.Send(ctx, model.ModeText, "hello")
	require.NoError(t, err)
	assert.Equal(t, "You said: hello", reply.Content)

	img, err := s.Send(ctx, model.ModeImage, "a cat")
	require.NoError(t, err)
	assert.True(t, img.IsImage)

	// The server holds the same four messages, in order.
	require.NoError(t, s.Bootstrap(ctx))
	msgs := s.Active().Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, []model.Role{model.RoleUser, model.RoleAssistant, model.RoleUser, model.RoleAssistant},
		[]model.Role{msgs[0].Role, msgs[1].Role, msgs[2].Role, msgs[3].Role})
	assert.Equal(t, "hello", msgs[0].Content)
	assert.True(t, msgs[2].IsImage)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp))
	}

	// Deleting twice is fine and does not recreate a chat.
	require.NoError(t, s.DeleteChat(ctx, active.ID))
	require.NoError(t, s.DeleteChat(ctx, active.ID))
	assert.Empty(t, s.Chats())
	assert.Nil(t, s.Active())

	s.Logout()
	_, err = s.LoadUser(ctx)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestEndToEnd_OwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	ann := session.New(client.New(srv.URL, srv.Client()))
	require.NoError(t, ann.Register(ctx, "Ann", "ann@example.com", "pw"))
	require.NoError(t, ann.Bootstrap(ctx))
	annChat := ann.Active().ID

	bob := client.New(srv.URL, srv.Client())
	token, err := bob.Register(ctx, "Bob", "bob@example.com", "pw")
	require.NoError(t, err)
	bob.SetToken(token)

	chats, err := bob.ListChats(ctx)
	require.NoError(t, err)
	assert.Empty(t, chats)

	_, err = bob.Submit(ctx, model.ModeText, annChat, "hi", "")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Chat not found", apiErr.Message)

	// Bob's delete of Ann's chat is a no-op.
	require.NoError(t, bob.DeleteChat(ctx, annChat))
	require.NoError(t, ann.Bootstrap(ctx))
	assert.Equal(t, annChat, ann.Active().ID)
	assert.Empty(t, ann.Active().Messages)
}

func TestEndToEnd_DuplicateRegistrationAndBadLogin(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	c := client.New(srv.URL, srv.Client())

	_, err := c.Register(ctx, "Ann", "ann@example.com", "pw")
	require.NoError(t, err)

	_, err = c.Register(ctx, "Ann", "ANN@example.com", "pw")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "User already exists", apiErr.Message)

	_, err = c.Login(ctx, "ann@example.com", "wrong")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Equal(t, 200, apiErr.StatusCode)

	token, err := c.Login(ctx, "Ann@Example.com", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestEndToEnd_IdempotentRetryAppendsOnce(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	s := session.New(client.New(srv.URL, srv.Client()))
	require.NoError(t, s.Register(ctx, "Ann", "ann@example.com", "pw"))
	require.NoError(t, s.Bootstrap(ctx))
	chatID := s.Active().ID

	c := client.New(srv.URL, srv.Client())
	c.SetToken(s.Token())
	first, err := c.Submit(ctx, model.ModeText, chatID, "once", "key-1")
	require.NoError(t, err)
	second, err := c.Submit(ctx, model.ModeText, chatID, "once", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.True(t, first.Timestamp.Equal(second.Timestamp))

	require.NoError(t, s.Bootstrap(ctx))
	assert.Len(t, s.Active().Messages, 2)
}

func TestEndToEnd_ConcurrentSubmitsKeepPairsTogether(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)
	s := session.New(client.New(srv.URL, srv.Client()))
	require.NoError(t, s.Register(ctx, "Ann", "ann@example.com", "pw"))
	require.NoError(t, s.Bootstrap(ctx))
	chatID := s.Active().ID

	c := client.New(srv.URL, srv.Client())
	c.SetToken(s.Token())

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			prompt := string(rune('a' + i))
			_, err := c.Submit(ctx, model.ModeText, chatID, prompt, "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.NoError(t, s.Bootstrap(ctx))
	msgs := s.Active().Messages
	require.Len(t, msgs, 2*writers)
	for i := 0; i < len(msgs); i += 2 {
		assert.Equal(t, model.RoleUser, msgs[i].Role)
		assert.Equal(t, "You said: "+msgs[i].Content, msgs[i+1].Content)
	}
}
