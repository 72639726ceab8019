package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "quickgpt/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	AllowedOrigins []string
	// RequestTimeout bounds the non-submit routes. Submissions are bounded by the
	// upstream and storage timeouts of the message service instead.
	RequestTimeout time.Duration
}

// Handlers groups everything NewRouter mounts.
type Handlers struct {
	Users    *UserHandler
	Chats    *ChatHandler
	Messages *MessageHandler
	Auth     *AuthMiddleware
}

// NewRouter creates the chi router with all application routes.
func NewRouter(h Handlers, cfg RouterConfig, logger *zap.Logger) *chi.Mux {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Server is live!"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/user", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Post("/register", h.Users.Register)
		r.Post("/login", h.Users.Login)
		r.With(h.Auth.Protect).Get("/data", h.Users.GetUser)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(h.Auth.Protect)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Get("/create", h.Chats.CreateChat)
			r.Get("/get", h.Chats.GetChats)
			r.Post("/delete", h.Chats.DeleteChat)
		})

		// Submissions wait on the upstream model, which has its own deadline.
		r.Group(func(r chi.Router) {
			r.Post("/text", h.Messages.TextMessage)
			r.Post("/image", h.Messages.ImageMessage)
		})
	})

	return r
}
