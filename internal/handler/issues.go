package handler

import (
	"net/http"

	"github.com/safetalk/mediation-platform/internal/middleware"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/service"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// IssueHandler handles issue creation and the client data snapshot.
type IssueHandler struct {
	issues *service.IssueService
	logger *logger.Logger
}

// NewIssueHandler creates a new issue handler.
func NewIssueHandler(issues *service.IssueService, log *logger.Logger) *IssueHandler {
	return &IssueHandler{issues: issues, logger: log}
}

// Create handles POST /api/v1/issues.
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.CreateIssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	issue, err := h.issues.Create(r.Context(), userID, req.Title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

// Me handles GET /api/v1/me: the aggregate snapshot the client renders from.
func (h *IssueHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	data, err := h.issues.GetUserData(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}
