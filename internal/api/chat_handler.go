package api

import (
	"net/http"

	"go.uber.org/zap"

	"quickgpt/backend/internal/interfaces"
	"quickgpt/backend/internal/model"
)

// DeleteChatRequest is the body of POST /api/chat/delete.
type DeleteChatRequest struct {
	ChatID string `json:"chatId" validate:"required" example:"5b1d9a52-6f7e-4c1a-9d0e-2f4b8a9c1e33"`
}

// ChatHandler serves chat lifecycle endpoints.
type ChatHandler struct {
	chats interfaces.ChatService
	*responder
}

func NewChatHandler(chats interfaces.ChatService, logger *zap.Logger, strict bool) *ChatHandler {
	return &ChatHandler{chats: chats, responder: newResponder(logger, strict)}
}

// CreateChat godoc
// @Summary      Create a chat
// @Description  Creates an empty chat named "New Chat" for the caller.
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  MessageResponse
// @Failure      401  {object}  MessageResponse
// @Router       /chat/create [get]
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	if _, err := h.chats.CreateChat(r.Context(), user); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Chat created"})
}

// GetChats godoc
// @Summary      List chats
// @Description  Lists the caller's chats, most recently updated first.
// @Tags         Chat
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ChatsResponse
// @Failure      401  {object}  MessageResponse
// @Router       /chat/get [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	chats, err := h.chats.ListChats(r.Context(), user.ID)
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	if chats == nil {
		chats = []*model.Chat{}
	}
	h.respondWithJSON(w, http.StatusOK, ChatsResponse{Success: true, Chats: chats})
}

// DeleteChat godoc
// @Summary      Delete a chat
// @Description  Deletes one of the caller's chats. Deleting a missing chat succeeds.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      DeleteChatRequest  true  "Chat to delete"
// @Success      200      {object}  MessageResponse
// @Failure      401      {object}  MessageResponse
// @Router       /chat/delete [post]
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())
	var req DeleteChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithError(w, err)
		return
	}
	if err := h.chats.DeleteChat(r.Context(), user.ID, req.ChatID); err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Chat deleted"})
}
