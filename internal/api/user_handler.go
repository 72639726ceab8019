package api

import (
	"net/http"

	"go.uber.org/zap"

	"quickgpt/backend/internal/interfaces"
)

// RegisterRequest is the body of POST /api/user/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required" example:"Ann"`
	Email    string `json:"email" validate:"required,email" example:"ann@example.com"`
	Password string `json:"password" validate:"required" example:"hunter22"`
}

// LoginRequest is the body of POST /api/user/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required" example:"ann@example.com"`
	Password string `json:"password" validate:"required" example:"hunter22"`
}

// UserHandler serves the account endpoints.
type UserHandler struct {
	users interfaces.UserService
	*responder
}

func NewUserHandler(users interfaces.UserService, logger *zap.Logger, strict bool) *UserHandler {
	return &UserHandler{users: users, responder: newResponder(logger, strict)}
}

// Register godoc
// @Summary      Register a user
// @Description  Creates an account and returns a bearer token for it.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request  body      RegisterRequest  true  "New account"
// @Success      200      {object}  TokenResponse
// @Failure      200      {object}  MessageResponse
// @Router       /user/register [post]
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	token, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for a bearer token.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        request  body      LoginRequest  true  "Credentials"
// @Success      200      {object}  TokenResponse
// @Failure      200      {object}  MessageResponse
// @Router       /user/login [post]
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	token, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, TokenResponse{Success: true, Token: token})
}

// GetUser godoc
// @Summary      Current user
// @Description  Returns the user the bearer token belongs to.
// @Tags         User
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  MessageResponse
// @Router       /user/data [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	h.respondWithJSON(w, http.StatusOK, UserResponse{Success: true, User: user})
}
