package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlomp/mairie-backend/pkg/auth"
)

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["message"]
}

func TestWriteErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorMessage(rec, http.StatusTeapot, "short and stout")

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "short and stout", decodeMessage(t, rec))
}

func TestWriteServiceError_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", auth.ErrForbidden, http.StatusForbidden},
		{"email taken", auth.ErrEmailTaken, http.StatusConflict},
		{"not found", auth.ErrAccountNotFound, http.StatusNotFound},
		{"last admin", auth.ErrLastAdmin, http.StatusBadRequest},
		{"invalid reset token", auth.ErrInvalidResetToken, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.err.Error(), decodeMessage(t, rec))
		})
	}
}

func TestWriteServiceError_SuppressesInternalDetail(t *testing.T) {
	SetDevelopmentMode(false)
	rec := httptest.NewRecorder()
	WriteServiceError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decodeMessage(t, rec))
}

func TestWriteServiceError_DevelopmentShowsDetail(t *testing.T) {
	SetDevelopmentMode(true)
	defer SetDevelopmentMode(false)

	rec := httptest.NewRecorder()
	WriteServiceError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "pq: connection refused", decodeMessage(t, rec))
}

func TestWriteSuccessAndCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]int{"n": 1}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, WriteCreated(rec, map[string]int{"n": 2}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}
