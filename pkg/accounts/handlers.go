package accounts

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/auth"
	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

// Handlers exposes the account lifecycle over HTTP
type Handlers struct {
	service *Service
	gate    *middleware.AuthGate
}

// NewHandlers creates the account HTTP handlers
func NewHandlers(service *Service, gate *middleware.AuthGate) *Handlers {
	return &Handlers{service: service, gate: gate}
}

// RegisterRoutes registers the /auth routes on the given router
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods("POST")
	router.HandleFunc("/auth/login", h.login).Methods("POST")
	router.HandleFunc("/auth/forgot-password", h.forgotPassword).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.resetPassword).Methods("POST")

	router.Handle("/auth/profile", h.authed(h.getProfile)).Methods("GET")
	router.Handle("/auth/profile", h.authed(h.updateProfile)).Methods("PUT")
	router.Handle("/auth/change-password", h.authed(h.changePassword)).Methods("PUT")
	router.Handle("/auth/complete-profile", h.authed(h.completeProfile)).Methods("PUT")

	router.Handle("/auth/users", h.admin(h.listUsers)).Methods("GET")
	router.Handle("/auth/users/{id}", h.admin(h.deleteUser)).Methods("DELETE")
	router.Handle("/auth/users/role", h.admin(h.updateUserRole)).Methods("PUT")
}

func (h *Handlers) authed(fn http.HandlerFunc) http.Handler {
	return h.gate.HandlerFunc(fn)
}

func (h *Handlers) admin(fn http.HandlerFunc) http.Handler {
	return h.gate.Handler(middleware.RequireRole(auth.RoleAdmin)(fn))
}

// register handles POST /auth/register
func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	account, token, err := h.service.Register(r.Context(), req)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{
		"message": "registration successful",
		"user":    account,
		"token":   token,
	})
}

// login handles POST /auth/login
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Password, "password") {
		return
	}

	account, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "login successful",
		"user":    account,
		"token":   token,
	})
}

// forgotPassword handles POST /auth/forgot-password. The reset token is
// delivered out-of-band only; the response body never contains it.
func (h *Handlers) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"message": "a reset link has been sent",
	})
}

// resetPassword handles POST /auth/reset-password
func (h *Handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Token, "token") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.NewPassword, "newPassword") {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"message": "password reset successful",
	})
}

// getProfile handles GET /auth/profile
func (h *Handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r)
	httputil.WriteSuccess(w, map[string]interface{}{"user": account})
}

// updateProfile handles PUT /auth/profile
func (h *Handlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r)

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), account.ID, req.Username, req.Email)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "profile updated",
		"user":    updated,
	})
}

// changePassword handles PUT /auth/change-password
func (h *Handlers) changePassword(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r)

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.CurrentPassword, "currentPassword") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.NewPassword, "newPassword") {
		return
	}

	if err := h.service.ChangePassword(r.Context(), account.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "password changed"})
}

// completeProfile handles PUT /auth/complete-profile
func (h *Handlers) completeProfile(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r)

	var req CompleteProfileRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	updated, err := h.service.CompleteProfile(r.Context(), account.ID, req)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "profile updated",
		"user":    updated,
	})
}

// listUsers handles GET /auth/users
func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}
	httputil.WriteSuccess(w, map[string]interface{}{"users": accounts})
}

// deleteUser handles DELETE /auth/users/{id}
func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"message": "user deleted"})
}

// updateUserRole handles PUT /auth/users/role
func (h *Handlers) updateUserRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID int64     `json:"userId"`
		Role   auth.Role `json:"role"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID == 0 {
		httputil.WriteValidationError(w, "userId is required")
		return
	}
	if !httputil.RequireNonEmpty(w, string(req.Role), "role") {
		return
	}

	updated, err := h.service.UpdateRole(r.Context(), req.UserID, req.Role)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"message": "role updated",
		"user":    updated,
	})
}
