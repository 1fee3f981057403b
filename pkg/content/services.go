package content

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

// Municipal service categories
const (
	ServiceCategoryEducation       = "EDUCATION"
	ServiceCategorySante           = "SANTE"
	ServiceCategoryInfrastructures = "INFRASTRUCTURES"
)

// DefaultServiceIcon is used when a service is created without an icon
const DefaultServiceIcon = "default-icon"

func validServiceCategory(category string) bool {
	switch category {
	case ServiceCategoryEducation, ServiceCategorySante, ServiceCategoryInfrastructures:
		return true
	}
	return false
}

// Service is a municipal service listed on the site
type Service struct {
	ID          int64     `json:"id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Icon        string    `json:"icon"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ServiceHandlers handles municipal service HTTP requests
type ServiceHandlers struct {
	db   *sql.DB
	gate *middleware.AuthGate
}

// NewServiceHandlers creates a new ServiceHandlers
func NewServiceHandlers(db *sql.DB, gate *middleware.AuthGate) *ServiceHandlers {
	return &ServiceHandlers{db: db, gate: gate}
}

// RegisterRoutes registers service routes. Reads are public, writes require
// a bearer token.
func (h *ServiceHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/services", h.List).Methods("GET")
	router.HandleFunc("/services/category/{category}", h.ListByCategory).Methods("GET")
	router.HandleFunc("/services/{id:[0-9]+}", h.Get).Methods("GET")

	router.Handle("/services", h.gate.HandlerFunc(h.Create)).Methods("POST")
	router.Handle("/services/{id:[0-9]+}", h.gate.HandlerFunc(h.Update)).Methods("PUT")
	router.Handle("/services/{id:[0-9]+}", h.gate.HandlerFunc(h.Delete)).Methods("DELETE")
}

const serviceSelect = `
	SELECT id, category, title, icon, description, created_at, updated_at
	FROM services
`

func scanService(row rowScanner) (*Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.Category, &s.Title, &s.Icon, &s.Description,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (h *ServiceHandlers) queryServices(w http.ResponseWriter, r *http.Request, query string, args ...interface{}) {
	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// List returns all services
func (h *ServiceHandlers) List(w http.ResponseWriter, r *http.Request) {
	h.queryServices(w, r, serviceSelect+`ORDER BY title ASC`)
}

// ListByCategory returns the services of one category
func (h *ServiceHandlers) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := httputil.ParsePathStringOrError(w, r, "category")
	if !ok {
		return
	}
	if !validServiceCategory(category) {
		httputil.WriteValidationError(w, "unknown service category")
		return
	}
	h.queryServices(w, r, serviceSelect+`WHERE category = $1 ORDER BY title ASC`, category)
}

// Get returns one service
func (h *ServiceHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	s, err := scanService(h.db.QueryRowContext(r.Context(), serviceSelect+`WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "service not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, s)
}

type serviceInput struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

// Create creates a municipal service
func (h *ServiceHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var in serviceInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Title, "title") {
		return
	}
	if !validServiceCategory(in.Category) {
		httputil.WriteValidationError(w, "unknown service category")
		return
	}
	if in.Icon == "" {
		in.Icon = DefaultServiceIcon
	}

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO services (category, title, icon, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`, in.Category, in.Title, in.Icon, in.Description).Scan(&id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	s, err := scanService(h.db.QueryRowContext(r.Context(), serviceSelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, s)
}

// Update applies the provided fields to a service
func (h *ServiceHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in serviceInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if in.Category != "" && !validServiceCategory(in.Category) {
		httputil.WriteValidationError(w, "unknown service category")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE services SET
			category = COALESCE(NULLIF($1, ''), category),
			title = COALESCE(NULLIF($2, ''), title),
			icon = COALESCE(NULLIF($3, ''), icon),
			description = COALESCE(NULLIF($4, ''), description),
			updated_at = NOW()
		WHERE id = $5
	`, in.Category, in.Title, in.Icon, in.Description, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "service not found")
		return
	}

	s, err := scanService(h.db.QueryRowContext(r.Context(), serviceSelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, s)
}

// Delete removes a service
func (h *ServiceHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "service not found")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "service deleted"})
}
