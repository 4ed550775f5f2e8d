package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safetalk/mediation-platform/internal/middleware"
	"github.com/safetalk/mediation-platform/internal/model"
	"github.com/safetalk/mediation-platform/internal/service"
	"github.com/safetalk/mediation-platform/pkg/logger"
)

// VoteHandler handles proposal votes.
type VoteHandler struct {
	votes  *service.VoteService
	logger *logger.Logger
}

// NewVoteHandler creates a new vote handler.
func NewVoteHandler(votes *service.VoteService, log *logger.Logger) *VoteHandler {
	return &VoteHandler{votes: votes, logger: log}
}

// Submit handles POST /api/v1/proposals/{proposalID}/votes.
func (h *VoteHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	proposalID := chi.URLParam(r, "proposalID")
	if err := middleware.ValidateID(proposalID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SubmitVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.votes.Submit(r.Context(), userID, proposalID, req.Accept)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
