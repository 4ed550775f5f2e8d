package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safetalk/mediation-platform/internal/middleware"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/service"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// NotificationHandler handles notification reads, push token registration and
// the internal dispatch endpoint.
type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *logger.Logger
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notifications *service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: log}
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	notificationID := chi.URLParam(r, "notificationID")
	if err := middleware.ValidateID(notificationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// RegisterPushToken handles POST /api/v1/push-tokens.
func (h *NotificationHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.RegisterPushTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.notifications.RegisterPushToken(r.Context(), userID, req.Token); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"registered": true})
}

// Send handles POST /internal/v1/notifications: the service-to-service
// dispatch endpoint, gated by the notifications:send scope.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req model.SendNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "user_id and type are required")
		return
	}

	resp, err := h.notifications.Send(r.Context(), req.UserID, req.Type, req.Payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
