package handler

import (
	"net/http"

	"github.com/safetalk/mediation-platform/internal/middleware"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/service"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// PartnerHandler handles account registration and partner pairing.
type PartnerHandler struct {
	pairing *service.PairingService
	logger  *logger.Logger
}

// NewPartnerHandler creates a new partner handler.
func NewPartnerHandler(pairing *service.PairingService, log *logger.Logger) *PartnerHandler {
	return &PartnerHandler{pairing: pairing, logger: log}
}

// Register handles POST /api/v1/users.
func (h *PartnerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.pairing.CreateUser(r.Context(), req.Name, req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Connect handles POST /api/v1/partners/connect.
func (h *PartnerHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.ConnectPartnerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidatePartnerCode(req.PartnerCode); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.pairing.Connect(r.Context(), userID, req.PartnerCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
