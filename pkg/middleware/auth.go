// Package middleware provides the HTTP authentication gate and role policy.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mlomp/mairie-backend/pkg/auth"
	"github.com/mlomp/mairie-backend/pkg/contextkeys"
	"github.com/mlomp/mairie-backend/pkg/httputil"
)

// AccountLoader resolves token subjects to live accounts
type AccountLoader interface {
	GetAccountByID(ctx context.Context, id int64) (*auth.Account, error)
}

// AuthGate authenticates requests from their bearer token. It is a pure
// filter: it verifies the token, loads the account, and attaches it to the
// request context, failing closed with 401 on any miss.
type AuthGate struct {
	tokens   *auth.TokenService
	accounts AccountLoader
}

// NewAuthGate creates an authentication gate
func NewAuthGate(tokens *auth.TokenService, accounts AccountLoader) *AuthGate {
	return &AuthGate{tokens: tokens, accounts: accounts}
}

// Handler wraps an HTTP handler with mandatory authentication
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, claims, ok := g.authenticate(w, r)
		if !ok {
			return
		}

		ctx := contextkeys.WithAccount(r.Context(), account)
		ctx = contextkeys.WithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandlerFunc is Handler for plain handler functions
func (g *AuthGate) HandlerFunc(next http.HandlerFunc) http.Handler {
	return g.Handler(next)
}

func (g *AuthGate) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Account, *auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		httputil.WriteUnauthorized(w, "invalid authorization header format")
		return nil, nil, false
	}

	claims, err := g.tokens.VerifySession(parts[1])
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return nil, nil, false
	}

	accountID, err := claims.AccountID()
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return nil, nil, false
	}

	account, err := g.accounts.GetAccountByID(r.Context(), accountID)
	if err != nil {
		httputil.WriteUnauthorized(w, "invalid or expired token")
		return nil, nil, false
	}

	return account, claims, true
}

// GetAccount extracts the authenticated account from the request context
func GetAccount(r *http.Request) *auth.Account {
	account, ok := r.Context().Value(contextkeys.AccountKey).(*auth.Account)
	if !ok {
		return nil
	}
	return account
}

// RequireRole creates middleware that allows only the given roles. It must
// run inside an AuthGate-wrapped chain.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			account := GetAccount(r)
			if account == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			for _, role := range roles {
				if account.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			httputil.WriteForbidden(w, "insufficient permissions")
		})
	}
}
