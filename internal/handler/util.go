// Package handler implements the HTTP API surface.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/safetalk/mediation-platform/internal/service"
)

type errorResponse struct {
	Error        string `json:"error"`
	IsRedFlagged bool   `json:"is_red_flagged,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps a classified workflow error onto the HTTP surface.
// The red-flag case carries a marker field so the client routes the user to
// safety resources rather than showing a generic error.
func writeServiceError(w http.ResponseWriter, err error) {
	message := service.UserMessage(err)
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		writeError(w, http.StatusUnauthorized, message)
	case service.KindForbidden:
		writeError(w, http.StatusForbidden, message)
	case service.KindNotFound:
		writeError(w, http.StatusNotFound, message)
	case service.KindValidation:
		writeError(w, http.StatusBadRequest, message)
	case service.KindConflict:
		writeError(w, http.StatusConflict, message)
	case service.KindRedFlag:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: message, IsRedFlagged: true})
	case service.KindTransient:
		writeError(w, http.StatusServiceUnavailable, message)
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
