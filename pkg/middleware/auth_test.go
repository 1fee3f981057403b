package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlomp/mairie-backend/pkg/auth"
)

type stubLoader struct {
	accounts map[int64]*auth.Account
}

func (l *stubLoader) GetAccountByID(ctx context.Context, id int64) (*auth.Account, error) {
	if account, ok := l.accounts[id]; ok {
		return account, nil
	}
	return nil, auth.ErrAccountNotFound
}

func newTestGate(t *testing.T, accounts ...*auth.Account) (*AuthGate, *auth.TokenService) {
	t.Helper()
	loader := &stubLoader{accounts: map[int64]*auth.Account{}}
	for _, a := range accounts {
		loader.accounts[a.ID] = a
	}
	tokens := auth.NewTokenService("test-secret")
	return NewAuthGate(tokens, loader), tokens
}

func okHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NotNil(t, GetAccount(r))
		w.WriteHeader(http.StatusOK)
	}
}

func TestAuthGate_ValidToken(t *testing.T) {
	account := &auth.Account{ID: 1, Username: "mayor", Role: auth.RoleAdmin}
	gate, tokens := newTestGate(t, account)

	token, err := tokens.IssueSession(account)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	gate.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := GetAccount(r)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.ID)
		assert.Equal(t, auth.RoleAdmin, got.Role)
		w.WriteHeader(http.StatusOK)
	}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthGate_Failures(t *testing.T) {
	account := &auth.Account{ID: 1, Username: "mayor", Role: auth.RoleAdmin}
	gate, tokens := newTestGate(t, account)

	validToken, err := tokens.IssueSession(account)
	require.NoError(t, err)
	orphanToken, err := tokens.IssueSession(&auth.Account{ID: 99, Role: auth.RoleEditor})
	require.NoError(t, err)
	foreignToken, err := auth.NewTokenService("other-secret").IssueSession(account)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "authentication required"},
		{"not bearer", "Basic dXNlcjpwYXNz", "invalid authorization header format"},
		{"malformed token", "Bearer not-a-token", "invalid or expired token"},
		{"wrong signature", "Bearer " + foreignToken, "invalid or expired token"},
		{"account gone", "Bearer " + orphanToken, "invalid or expired token"},
		{"bare scheme", "Bearer", "invalid authorization header format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			gate.HandlerFunc(okHandler(t)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body["message"])
		})
	}

	// Control: the valid token still passes
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	rec := httptest.NewRecorder()
	gate.HandlerFunc(okHandler(t)).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	admin := &auth.Account{ID: 1, Role: auth.RoleAdmin}
	editor := &auth.Account{ID: 2, Role: auth.RoleEditor}
	gate, tokens := newTestGate(t, admin, editor)

	handler := gate.Handler(RequireRole(auth.RoleAdmin)(okHandler(t)))

	tests := []struct {
		name     string
		account  *auth.Account
		expected int
	}{
		{"admin allowed", admin, http.StatusOK},
		{"editor forbidden", editor, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := tokens.IssueSession(tt.account)
			require.NoError(t, err)

			req := httptest.NewRequest("DELETE", "/admin-only", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestRequireRole_WithoutGate(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(okHandler(t))

	req := httptest.NewRequest("GET", "/admin-only", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
