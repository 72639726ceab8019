package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	app_errors "quickgpt/backend/internal/errors"
	"quickgpt/backend/internal/interfaces"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/service"
)

// IdempotencyKeyHeader lets clients retry a submission without a second append.
const IdempotencyKeyHeader = "Idempotency-Key"

// SubmitMessageRequest is the body of POST /api/chat/text and /api/chat/image.
type SubmitMessageRequest struct {
	ChatID         string `json:"chatId" example:"5b1d9a52-6f7e-4c1a-9d0e-2f4b8a9c1e33"`
	Prompt         string `json:"prompt" example:"Tell me a joke"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// MessageHandler serves prompt submissions.
type MessageHandler struct {
	messages interfaces.MessageService
	*responder
}

func NewMessageHandler(messages interfaces.MessageService, logger *zap.Logger, strict bool) *MessageHandler {
	return &MessageHandler{messages: messages, responder: newResponder(logger, strict)}
}

// TextMessage godoc
// @Summary      Send a text prompt
// @Description  Sends the prompt upstream, stores the prompt and the reply in the chat and returns the reply.
// @Tags         Message
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request          body      SubmitMessageRequest  true   "Prompt"
// @Param        Idempotency-Key  header    string                false  "Client token identifying one submission"
// @Success      200              {object}  ReplyResponse
// @Failure      401              {object}  MessageResponse
// @Router       /chat/text [post]
func (h *MessageHandler) TextMessage(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, model.ModeText)
}

// ImageMessage godoc
// @Summary      Generate an image
// @Description  Generates an image for the prompt, stores both in the chat and returns the reply whose content is the image URL.
// @Tags         Message
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request          body      SubmitMessageRequest  true   "Prompt"
// @Param        Idempotency-Key  header    string                false  "Client token identifying one submission"
// @Success      200              {object}  ReplyResponse
// @Failure      401              {object}  MessageResponse
// @Router       /chat/image [post]
func (h *MessageHandler) ImageMessage(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, model.ModeImage)
}

func (h *MessageHandler) submit(w http.ResponseWriter, r *http.Request, mode model.Mode) {
	user, _ := UserFromContext(r.Context())
	var req SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, app_errors.Wrap(app_errors.ErrValidation, "Invalid request payload", err))
		return
	}
	key := r.Header.Get(IdempotencyKeyHeader)
	if key == "" {
		key = req.IdempotencyKey
	}

	reply, err := h.messages.Submit(r.Context(), service.SubmitRequest{
		OwnerID:        user.ID,
		ChatID:         req.ChatID,
		Mode:           mode,
		Prompt:         req.Prompt,
		IdempotencyKey: key,
	})
	if err != nil {
		h.respondWithError(w, err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, ReplyResponse{Success: true, Reply: reply})
}
