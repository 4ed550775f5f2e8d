package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safetalk/mediation-platform/internal/middleware"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/service"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// MessageHandler handles posting messages on an issue.
type MessageHandler struct {
	messages *service.MessageService
	logger   *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(messages *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: log}
}

// Send handles POST /api/v1/issues/{issueID}/messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	issueID := chi.URLParam(r, "issueID")
	if err := middleware.ValidateID(issueID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.messages.Send(r.Context(), userID, issueID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
