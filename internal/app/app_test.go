package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quickgpt/backend/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppPort:            0,
		StoreDriver:        "sqlite",
		DatabasePath:       filepath.Join(t.TempDir(), "quickgpt.db"),
		JWTSecret:          "test-secret",
		JWTTTL:             time.Hour,
		BcryptCost:         4,
		LLMTextProvider:    "mock",
		LLMImageProvider:   "mock",
		UpstreamTimeout:    5 * time.Second,
		StorageTimeout:     time.Second,
		BreakerMaxFailures: 3,
		BreakerOpenTimeout: time.Second,
		IdempotencyBackend: "memory",
		IdempotencyTTL:     time.Minute,
	}
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, app)
	defer func() { require.NoError(t, app.Shutdown(context.Background())) }()

	assert.NotNil(t, app.Store)
	assert.NotNil(t, app.Server)

	rr := httptest.NewRecorder()
	app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Server is live!", rr.Body.String())
}

func TestNewApp_MemoryStoreWithOllama(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreDriver = "memory"
	cfg.LLMTextProvider = "ollama"
	cfg.OllamaURL = "http://127.0.0.1:1"

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, app.Shutdown(context.Background()))
}

func TestNewApp_RejectsUnknownSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"store driver", func(c *config.Config) { c.StoreDriver = "cassandra" }},
		{"text provider", func(c *config.Config) { c.LLMTextProvider = "unknown" }},
		{"image provider", func(c *config.Config) { c.LLMImageProvider = "unknown" }},
		{"idempotency backend", func(c *config.Config) { c.IdempotencyBackend = "etcd" }},
		{"gemini without key", func(c *config.Config) { c.LLMTextProvider = "gemini" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)

			app, err := NewApp(context.Background(), cfg, zap.NewNop())
			assert.Error(t, err)
			assert.Nil(t, app)
		})
	}
}

func TestReservationTTL(t *testing.T) {
	cfg := &config.Config{UpstreamTimeout: 60 * time.Second, StorageTimeout: 5 * time.Second, IdempotencyTTL: 24 * time.Hour}
	assert.Equal(t, 70*time.Second, reservationTTL(cfg))

	cfg.StorageTimeout = 0
	assert.Zero(t, reservationTTL(cfg), "unbounded timeouts fall back to the full TTL")
}
