// Package client is a typed HTTP client for the QuickGPT API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"quickgpt/backend/internal/model"
)

// ErrUnauthorized is returned when the server rejects the bearer token.
var ErrUnauthorized = errors.New("client: not authorized")

// APIError is a `{success:false}` envelope returned by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type envelope struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Token   string         `json:"token"`
	Chats   []*model.Chat  `json:"chats"`
	Reply   *model.Message `json:"reply"`
	User    *model.User    `json:"user"`
}

// Client talks to one server. It is safe for concurrent use once the token is set.
type Client struct {
	http  *resty.Client
	token string
}

// New returns a client for baseURL, e.g. http://localhost:5000.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	rc := resty.NewWithClient(httpClient).SetBaseURL(strings.TrimRight(baseURL, "/"))
	return &Client{http: rc}
}

// SetToken sets the bearer token sent on every request. An empty token clears it.
func (c *Client) SetToken(token string) { c.token = token }

// Token returns the current bearer token.
func (c *Client) Token() string { return c.token }

func (c *Client) Register(ctx context.Context, name, email, password string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/user/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, nil)
	if err != nil {
		return "", err
	}
	return env.Token, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/user/login", map[string]string{
		"email": email, "password": password,
	}, nil)
	if err != nil {
		return "", err
	}
	return env.Token, nil
}

// User returns the account the token belongs to.
func (c *Client) User(ctx context.Context) (*model.User, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/user/data", nil, nil)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) CreateChat(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/api/chat/create", nil, nil)
	return err
}

// ListChats returns the caller's chats, most recently updated first.
func (c *Client) ListChats(ctx context.Context) ([]*model.Chat, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/chat/get", nil, nil)
	if err != nil {
		return nil, err
	}
	if env.Chats == nil {
		return []*model.Chat{}, nil
	}
	return env.Chats, nil
}

func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/chat/delete", map[string]string{"chatId": chatID}, nil)
	return err
}

// Submit sends prompt to chatID and returns the assistant reply. A non-empty
// idempotencyKey makes retries of the same submission safe.
func (c *Client) Submit(ctx context.Context, mode model.Mode, chatID, prompt, idempotencyKey string) (*model.Message, error) {
	path := "/api/chat/text"
	if mode == model.ModeImage {
		path = "/api/chat/image"
	}
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	env, err := c.do(ctx, http.MethodPost, path, map[string]string{"chatId": chatID, "prompt": prompt}, headers)
	if err != nil {
		return nil, err
	}
	if env.Reply == nil {
		return nil, errors.New("client: response carried no reply")
	}
	return env.Reply, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, headers map[string]string) (*envelope, error) {
	req := c.http.R().SetContext(ctx).SetHeaders(headers)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if c.token != "" {
		req.SetAuthToken(c.token)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("request %s %s failed: %w", method, path, err)
	}

	// Envelopes arrive on every status, so decode the raw body ourselves.
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: fmt.Sprintf("unreadable response: %v", err)}
	}
	if !env.Success || resp.StatusCode() >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: env.Message}
	}
	return &env, nil
}
