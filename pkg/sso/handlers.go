package sso

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/accounts"
	"github.com/mlomp/mairie-backend/pkg/auth"
	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/observability"
)

const (
	stateCookieName = "oauth_state"
	stateTTL        = 10 * time.Minute
)

// Provisioner resolves a verified external identity to a local account
// and a session token.
type Provisioner interface {
	ProvisionFederated(ctx context.Context, identity accounts.FederatedIdentity) (*auth.Account, string, error)
}

// Handlers exposes the federated login flow over HTTP
type Handlers struct {
	provider *Provider
	accounts Provisioner
	logger   *observability.Logger
}

// NewHandlers creates the federated login HTTP handlers
func NewHandlers(provider *Provider, provisioner Provisioner, logger *observability.Logger) *Handlers {
	return &Handlers{provider: provider, accounts: provisioner, logger: logger}
}

// RegisterRoutes registers the /auth/google routes on the given router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/google/login", h.login).Methods("GET")
	router.HandleFunc("/auth/google/callback", h.callback).Methods("GET")
}

// login starts the authorization flow. The state parameter is pinned to the
// browser with a short-lived cookie so the callback can reject forged codes.
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// callback completes the flow: state check, code exchange, provisioning,
// session issuance
func (h *Handlers) callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		httputil.WriteBadRequest(w, "invalid oauth state")
		return
	}

	// Single use
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		httputil.WriteBadRequest(w, "missing authorization code")
		return
	}

	identity, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).Error("oauth code exchange failed")
		httputil.WriteUnauthorized(w, "federated login failed")
		return
	}

	account, token, err := h.accounts.ProvisionFederated(r.Context(), accounts.FederatedIdentity{
		GoogleID: identity.Subject,
		Email:    identity.Email,
		Name:     identity.Name,
		PhotoURL: identity.Picture,
	})
	if err != nil {
		h.logger.WithError(err).Error("federated account provisioning failed")
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message":         "login successful",
		"user":            account,
		"token":           token,
		"needsCompletion": account.NeedsCompletion,
	})
}
