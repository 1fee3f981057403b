package content

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

// Project statuses
const (
	ProjectStatusPlanned    = "PLANNED"
	ProjectStatusInProgress = "IN_PROGRESS"
	ProjectStatusCompleted  = "COMPLETED"
	ProjectStatusSuspended  = "SUSPENDED"
)

func validProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusCompleted, ProjectStatusSuspended:
		return true
	}
	return false
}

// dateLayout is the wire format of project and investment dates
const dateLayout = "2006-01-02"

// Project is a municipal project
type Project struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Budget      *float64   `json:"budget,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Manager     *AuthorRef `json:"manager,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ProjectHandlers handles project HTTP requests
type ProjectHandlers struct {
	db       *sql.DB
	gate     *middleware.AuthGate
	uploader media.Uploader
}

// NewProjectHandlers creates a new ProjectHandlers
func NewProjectHandlers(db *sql.DB, gate *middleware.AuthGate, uploader media.Uploader) *ProjectHandlers {
	return &ProjectHandlers{db: db, gate: gate, uploader: uploader}
}

// RegisterRoutes registers project routes. Reads are public, writes require
// a bearer token.
func (h *ProjectHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects", h.List).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}", h.Get).Methods("GET")

	router.Handle("/projects", h.gate.HandlerFunc(h.Create)).Methods("POST")
	router.Handle("/projects/{id:[0-9]+}", h.gate.HandlerFunc(h.Update)).Methods("PUT")
	router.Handle("/projects/{id:[0-9]+}", h.gate.HandlerFunc(h.Delete)).Methods("DELETE")
}

const projectSelect = `
	SELECT p.id, p.title, p.description, p.status, p.start_date, p.end_date,
	       p.budget, p.image_url, a.id, a.username, p.created_at, p.updated_at
	FROM projects p
	LEFT JOIN accounts a ON a.id = p.manager_id
`

func scanProject(row rowScanner) (*Project, error) {
	var (
		p         Project
		startDate sql.NullTime
		endDate   sql.NullTime
		budget    sql.NullFloat64
		imageURL  sql.NullString
		managerID sql.NullInt64
		username  sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &startDate, &endDate,
		&budget, &imageURL, &managerID, &username, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	if budget.Valid {
		p.Budget = &budget.Float64
	}
	p.ImageURL = imageURL.String
	if managerID.Valid {
		p.Manager = &AuthorRef{ID: managerID.Int64, Username: username.String}
	}
	return &p, nil
}

// List returns all projects, newest first
func (h *ProjectHandlers) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), projectSelect+`ORDER BY p.created_at DESC`)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*Project{}
	for rows.Next() {
		p, err := scanProject(rows)
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

// Get returns one project
func (h *ProjectHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	p, err := scanProject(h.db.QueryRowContext(r.Context(), projectSelect+`WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

type projectInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	Budget      *float64 `json:"budget"`
	ImageURL    string   `json:"imageUrl"`
}

// decodeProjectInput accepts either a JSON body or a multipart form with an
// optional "image" file part
func (h *ProjectHandlers) decodeProjectInput(w http.ResponseWriter, r *http.Request) (*projectInput, bool) {
	if !isMultipart(r) {
		var in projectInput
		if !httputil.ParseJSONOrError(w, r, &in) {
			return nil, false
		}
		return &in, true
	}

	in := &projectInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Status:      r.FormValue("status"),
		StartDate:   r.FormValue("startDate"),
		EndDate:     r.FormValue("endDate"),
	}
	if raw := r.FormValue("budget"); raw != "" {
		budget, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httputil.WriteValidationError(w, "budget must be a number")
			return nil, false
		}
		in.Budget = &budget
	}
	obj, ok := uploadFormFile(w, r, h.uploader, "image")
	if !ok {
		return nil, false
	}
	if obj != nil {
		in.ImageURL = obj.URL
	}
	return in, true
}

// parseDate converts a yyyy-mm-dd wire value, empty meaning absent
func parseDate(w http.ResponseWriter, value, fieldName string) (*time.Time, bool) {
	if value == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		httputil.WriteValidationError(w, fieldName+" must be formatted yyyy-mm-dd")
		return nil, false
	}
	return &t, true
}

// Create creates a project managed by the authenticated account
func (h *ProjectHandlers) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProjectInput(w, r)
	if !ok {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Title, "title") {
		return
	}
	if in.Status == "" {
		in.Status = ProjectStatusPlanned
	}
	if !validProjectStatus(in.Status) {
		httputil.WriteValidationError(w, "unknown project status")
		return
	}
	startDate, ok := parseDate(w, in.StartDate, "startDate")
	if !ok {
		return
	}
	endDate, ok := parseDate(w, in.EndDate, "endDate")
	if !ok {
		return
	}

	manager := middleware.GetAccount(r)

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO projects (title, description, status, start_date, end_date,
			budget, image_url, manager_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NOW(), NOW())
		RETURNING id
	`, in.Title, in.Description, in.Status, startDate, endDate, in.Budget,
		in.ImageURL, manager.ID).Scan(&id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	p, err := scanProject(h.db.QueryRowContext(r.Context(), projectSelect+`WHERE p.id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, p)
}

// Update applies the provided fields to a project
func (h *ProjectHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	in, ok := h.decodeProjectInput(w, r)
	if !ok {
		return
	}
	if in.Status != "" && !validProjectStatus(in.Status) {
		httputil.WriteValidationError(w, "unknown project status")
		return
	}
	startDate, ok := parseDate(w, in.StartDate, "startDate")
	if !ok {
		return
	}
	endDate, ok := parseDate(w, in.EndDate, "endDate")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE projects SET
			title = COALESCE(NULLIF($1, ''), title),
			description = COALESCE(NULLIF($2, ''), description),
			status = COALESCE(NULLIF($3, ''), status),
			start_date = COALESCE($4, start_date),
			end_date = COALESCE($5, end_date),
			budget = COALESCE($6, budget),
			image_url = COALESCE(NULLIF($7, ''), image_url),
			updated_at = NOW()
		WHERE id = $8
	`, in.Title, in.Description, in.Status, startDate, endDate, in.Budget, in.ImageURL, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}

	p, err := scanProject(h.db.QueryRowContext(r.Context(), projectSelect+`WHERE p.id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

// Delete removes a project
func (h *ProjectHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "project deleted"})
}
