package content

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

// Procedure is an administrative procedure guide
type Procedure struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Icon           string    `json:"icon"`
	RequiredDocs   []string  `json:"requiredDocs"`
	ProcessingTime string    `json:"processingTime"`
	Category       string    `json:"category"`
	OnlineURL      string    `json:"onlineUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProcedureHandlers handles administrative procedure HTTP requests
type ProcedureHandlers struct {
	db   *sql.DB
	gate *middleware.AuthGate
}

// NewProcedureHandlers creates a new ProcedureHandlers
func NewProcedureHandlers(db *sql.DB, gate *middleware.AuthGate) *ProcedureHandlers {
	return &ProcedureHandlers{db: db, gate: gate}
}

// RegisterRoutes registers procedure routes. The capitalized path segment is
// part of the published API and is kept as-is. Reads are public, writes
// require a bearer token.
func (h *ProcedureHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/Procedures", h.List).Methods("GET")
	router.HandleFunc("/Procedures/category/{category}", h.ListByCategory).Methods("GET")
	router.HandleFunc("/Procedures/{id:[0-9]+}", h.Get).Methods("GET")

	router.Handle("/Procedures", h.gate.HandlerFunc(h.Create)).Methods("POST")
	router.Handle("/Procedures/{id:[0-9]+}", h.gate.HandlerFunc(h.Update)).Methods("PUT")
	router.Handle("/Procedures/{id:[0-9]+}", h.gate.HandlerFunc(h.Delete)).Methods("DELETE")
}

const procedureSelect = `
	SELECT id, title, description, icon, required_docs, processing_time,
	       category, online_url, created_at, updated_at
	FROM procedures
`

func scanProcedure(row rowScanner) (*Procedure, error) {
	var (
		p         Procedure
		onlineURL sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Icon,
		pq.Array(&p.RequiredDocs), &p.ProcessingTime, &p.Category, &onlineURL,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.OnlineURL = onlineURL.String
	if p.RequiredDocs == nil {
		p.RequiredDocs = []string{}
	}
	return &p, nil
}

func (h *ProcedureHandlers) queryProcedures(w http.ResponseWriter, r *http.Request, query string, args ...interface{}) {
	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*Procedure{}
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// List returns all procedures in alphabetical order
func (h *ProcedureHandlers) List(w http.ResponseWriter, r *http.Request) {
	h.queryProcedures(w, r, procedureSelect+`ORDER BY title ASC`)
}

// ListByCategory returns the procedures of one category in alphabetical order
func (h *ProcedureHandlers) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := httputil.ParsePathStringOrError(w, r, "category")
	if !ok {
		return
	}
	h.queryProcedures(w, r, procedureSelect+`WHERE category = $1 ORDER BY title ASC`, category)
}

// Get returns one procedure
func (h *ProcedureHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	p, err := scanProcedure(h.db.QueryRowContext(r.Context(), procedureSelect+`WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "procedure not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

type procedureInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Icon           string   `json:"icon"`
	RequiredDocs   []string `json:"requiredDocs"`
	ProcessingTime string   `json:"processingTime"`
	Category       string   `json:"category"`
	OnlineURL      string   `json:"onlineUrl"`
}

// Create creates a procedure
func (h *ProcedureHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var in procedureInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Title, "title") {
		return
	}
	if in.Icon == "" {
		in.Icon = DefaultServiceIcon
	}
	if in.RequiredDocs == nil {
		in.RequiredDocs = []string{}
	}

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO procedures (title, description, icon, required_docs,
			processing_time, category, online_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NOW(), NOW())
		RETURNING id
	`, in.Title, in.Description, in.Icon, pq.Array(in.RequiredDocs),
		in.ProcessingTime, in.Category, in.OnlineURL).Scan(&id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	p, err := scanProcedure(h.db.QueryRowContext(r.Context(), procedureSelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, p)
}

// Update applies the provided fields to a procedure. Required docs are
// replaced wholesale when present.
func (h *ProcedureHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in procedureInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	var docs interface{}
	if in.RequiredDocs != nil {
		docs = pq.Array(in.RequiredDocs)
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE procedures SET
			title = COALESCE(NULLIF($1, ''), title),
			description = COALESCE(NULLIF($2, ''), description),
			icon = COALESCE(NULLIF($3, ''), icon),
			required_docs = COALESCE($4, required_docs),
			processing_time = COALESCE(NULLIF($5, ''), processing_time),
			category = COALESCE(NULLIF($6, ''), category),
			online_url = COALESCE(NULLIF($7, ''), online_url),
			updated_at = NOW()
		WHERE id = $8
	`, in.Title, in.Description, in.Icon, docs, in.ProcessingTime, in.Category,
		in.OnlineURL, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "procedure not found")
		return
	}

	p, err := scanProcedure(h.db.QueryRowContext(r.Context(), procedureSelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

// Delete removes a procedure
func (h *ProcedureHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM procedures WHERE id = $1`, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "procedure not found")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "procedure deleted"})
}
