package content

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

// Contact message statuses
const (
	ContactStatusPending  = "PENDING"
	ContactStatusRead     = "READ"
	ContactStatusReplied  = "REPLIED"
	ContactStatusArchived = "ARCHIVED"
)

func validContactStatus(status string) bool {
	switch status {
	case ContactStatusPending, ContactStatusRead, ContactStatusReplied, ContactStatusArchived:
		return true
	}
	return false
}

// ContactMessage is a message submitted through the public contact form
type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContactHandlers handles contact form HTTP requests
type ContactHandlers struct {
	db   *sql.DB
	gate *middleware.AuthGate
}

// NewContactHandlers creates a new ContactHandlers
func NewContactHandlers(db *sql.DB, gate *middleware.AuthGate) *ContactHandlers {
	return &ContactHandlers{db: db, gate: gate}
}

// RegisterRoutes registers contact routes. Submission is public; reading and
// managing the inbox requires a bearer token.
func (h *ContactHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/contact/messages", h.Submit).Methods("POST")

	router.Handle("/contact/messages", h.gate.HandlerFunc(h.List)).Methods("GET")
	router.Handle("/contact/messages/{id:[0-9]+}/status", h.gate.HandlerFunc(h.UpdateStatus)).Methods("PATCH")
	router.Handle("/contact/messages/{id:[0-9]+}", h.gate.HandlerFunc(h.Delete)).Methods("DELETE")
}

const contactSelect = `
	SELECT id, name, email, subject, message, status, created_at, updated_at
	FROM contact_messages
`

func scanContactMessage(row rowScanner) (*ContactMessage, error) {
	var m ContactMessage
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Status,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Submit records a contact form submission
func (h *ContactHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Name, "name") {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Email, "email") {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Message, "message") {
		return
	}
	if !strings.Contains(in.Email, "@") {
		httputil.WriteValidationError(w, "email is not valid")
		return
	}

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO contact_messages (name, email, subject, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, in.Name, in.Email, in.Subject, in.Message, ContactStatusPending).Scan(&id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	m, err := scanContactMessage(h.db.QueryRowContext(r.Context(), contactSelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, m)
}

// List returns the contact inbox, newest first, optionally filtered by the
// status query parameter
func (h *ContactHandlers) List(w http.ResponseWriter, r *http.Request) {
	query := contactSelect + `ORDER BY created_at DESC`
	args := []interface{}{}

	if status := r.URL.Query().Get("status"); status != "" {
		if !validContactStatus(status) {
			httputil.WriteValidationError(w, "unknown message status")
			return
		}
		query = contactSelect + `WHERE status = $1 ORDER BY created_at DESC`
		args = append(args, status)
	}

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*ContactMessage{}
	for rows.Next() {
		m, err := scanContactMessage(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// UpdateStatus moves a message through the inbox workflow
func (h *ContactHandlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in struct {
		Status string `json:"status"`
	}
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if !validContactStatus(in.Status) {
		httputil.WriteValidationError(w, "unknown message status")
		return
	}

	res, err := h.db.ExecContext(r.Context(),
		`UPDATE contact_messages SET status = $1, updated_at = NOW() WHERE id = $2`,
		in.Status, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "message not found")
		return
	}

	m, err := scanContactMessage(h.db.QueryRowContext(r.Context(), contactSelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, m)
}

// Delete removes a message from the inbox
func (h *ContactHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "message not found")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "message deleted"})
}
