package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/model"
)

// Every response is wrapped in an envelope with a `success` flag. Failures carry a
// client-safe `message`.

// MessageResponse is the envelope for operations that only report an outcome,
// and for every failure.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Chat created"`
}

// ChatsResponse lists the caller's chats.
type ChatsResponse struct {
	Success bool          `json:"success" example:"true"`
	Chats   []*model.Chat `json:"chats"`
}

// ReplyResponse carries the assistant message produced by a submission.
type ReplyResponse struct {
	Success bool           `json:"success" example:"true"`
	Reply   *model.Message `json:"reply"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Success bool   `json:"success" example:"true"`
	Token   string `json:"token"`
}

// UserResponse returns the authenticated user.
type UserResponse struct {
	Success bool        `json:"success" example:"true"`
	User    *model.User `json:"user"`
}

// responder writes envelopes. With strict set, failures use a matching HTTP status
// instead of 200.
type responder struct {
	logger *zap.Logger
	strict bool
}

func newResponder(logger *zap.Logger, strict bool) *responder {
	return &responder{logger: logger, strict: strict}
}

// respondWithError is the only place errors become responses. The detailed error
// is logged; the client gets the attached public message or a generic one.
func (rs *responder) respondWithError(w http.ResponseWriter, err error) {
	statusCode, message := classify(err)
	if msg, ok := app_errors.PublicMessage(err); ok {
		message = msg
	}

	if statusCode >= http.StatusInternalServerError {
		rs.logger.Error("Responding with error", zap.Int("status_code", statusCode), zap.String("client_message", message), zap.Error(err))
	} else {
		rs.logger.Warn("Responding with error", zap.Int("status_code", statusCode), zap.String("client_message", message), zap.Error(err))
	}

	if !rs.strict {
		statusCode = http.StatusOK
	}
	rs.respondWithJSON(w, statusCode, MessageResponse{Success: false, Message: message})
}

// respondUnauthorized always uses 401, in both modes.
func (rs *responder) respondUnauthorized(w http.ResponseWriter, err error) {
	message := "Not authorized"
	if msg, ok := app_errors.PublicMessage(err); ok {
		message = msg
	}
	rs.logger.Debug("Rejecting unauthenticated request", zap.String("client_message", message), zap.Error(err))
	rs.respondWithJSON(w, http.StatusUnauthorized, MessageResponse{Success: false, Message: message})
}

// respondWithJSON marshals payload and writes it with code.
func (rs *responder) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		rs.logger.Error("Failed to marshal JSON response", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		rs.logger.Warn("Failed to write JSON response", zap.Error(err))
	}
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, app_errors.ErrValidation):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, app_errors.ErrNotFound):
		return http.StatusNotFound, "The requested resource was not found"
	case errors.Is(err, app_errors.ErrUnauthorized):
		return http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, app_errors.ErrConflict):
		return http.StatusConflict, "A conflict occurred with the current state of the resource"
	case errors.Is(err, app_errors.ErrUpstream):
		return http.StatusBadGateway, "The model could not generate a reply"
	case errors.Is(err, app_errors.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "An unexpected internal server error occurred"
	}
}

// decodeJSON reads the request body into dst and validates it.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return app_errors.Wrap(app_errors.ErrValidation, "Invalid request payload", err)
	}
	return validateRequest(dst)
}
