package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/interfaces"
	"quickgpt/backend/internal/model"
)

type userContextKey struct{}

// UserFromContext returns the user attached by AuthMiddleware.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*model.User)
	return u, ok
}

// WithUser attaches u to ctx the way AuthMiddleware does.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// AuthMiddleware resolves the Authorization header to a user.
type AuthMiddleware struct {
	users interfaces.UserService
	*responder
}

func NewAuthMiddleware(users interfaces.UserService, logger *zap.Logger, strict bool) *AuthMiddleware {
	return &AuthMiddleware{users: users, responder: newResponder(logger, strict)}
}

// Protect rejects requests without a valid token with 401. The "Bearer " prefix is optional.
func (m *AuthMiddleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get("Authorization"))
		token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
		if token == "" {
			m.respondUnauthorized(w, app_errors.New(app_errors.ErrUnauthorized, "No token provided"))
			return
		}

		user, err := m.users.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, app_errors.ErrUnauthorized) {
				m.respondUnauthorized(w, err)
				return
			}
			m.respondWithError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_addr", r.RemoteAddr),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
