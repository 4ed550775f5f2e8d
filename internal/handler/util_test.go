package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetalk/mediation-platform/internal/service"
)

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		kind   service.Kind
		status int
	}{
		{service.KindUnauthorized, http.StatusUnauthorized},
		{service.KindForbidden, http.StatusForbidden},
		{service.KindNotFound, http.StatusNotFound},
		{service.KindValidation, http.StatusBadRequest},
		{service.KindConflict, http.StatusConflict},
		{service.KindRedFlag, http.StatusBadRequest},
		{service.KindTransient, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeServiceError(rec, service.E(tt.kind, "boom"))
		assert.Equal(t, tt.status, rec.Code)
	}
}

func TestWriteServiceErrorRedFlagMarker(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, service.E(service.KindRedFlag, "halted for safety"))

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.IsRedFlagged)
	assert.Equal(t, "halted for safety", body.Error)
}

func TestWriteServiceErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}
