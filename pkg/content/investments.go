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

// Investment is a municipal investment line, sharing the project status set
type Investment struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Category         string     `json:"category"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"shortDescription"`
	Amount           *float64   `json:"amount,omitempty"`
	StartYear        *int       `json:"startYear,omitempty"`
	EndYear          *int       `json:"endYear,omitempty"`
	Status           string     `json:"status"`
	ImageURL         string     `json:"imageUrl,omitempty"`
	Manager          *AuthorRef `json:"manager,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// InvestmentHandlers handles investment HTTP requests
type InvestmentHandlers struct {
	db       *sql.DB
	gate     *middleware.AuthGate
	uploader media.Uploader
}

// NewInvestmentHandlers creates a new InvestmentHandlers
func NewInvestmentHandlers(db *sql.DB, gate *middleware.AuthGate, uploader media.Uploader) *InvestmentHandlers {
	return &InvestmentHandlers{db: db, gate: gate, uploader: uploader}
}

// RegisterRoutes registers investment routes. Reads are public, writes
// require a bearer token.
func (h *InvestmentHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/investments", h.List).Methods("GET")
	router.HandleFunc("/investments/category/{category}", h.ListByCategory).Methods("GET")
	router.HandleFunc("/investments/{id:[0-9]+}", h.Get).Methods("GET")

	router.Handle("/investments", h.gate.HandlerFunc(h.Create)).Methods("POST")
	router.Handle("/investments/{id:[0-9]+}", h.gate.HandlerFunc(h.Update)).Methods("PUT")
	router.Handle("/investments/{id:[0-9]+}", h.gate.HandlerFunc(h.Delete)).Methods("DELETE")
}

const investmentSelect = `
	SELECT i.id, i.title, i.category, i.description, i.short_description,
	       i.amount, i.start_year, i.end_year, i.status, i.image_url,
	       a.id, a.username, i.created_at, i.updated_at
	FROM investments i
	LEFT JOIN accounts a ON a.id = i.manager_id
`

func scanInvestment(row rowScanner) (*Investment, error) {
	var (
		inv       Investment
		amount    sql.NullFloat64
		startYear sql.NullInt64
		endYear   sql.NullInt64
		imageURL  sql.NullString
		managerID sql.NullInt64
		username  sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.Title, &inv.Category, &inv.Description,
		&inv.ShortDescription, &amount, &startYear, &endYear, &inv.Status,
		&imageURL, &managerID, &username, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if amount.Valid {
		inv.Amount = &amount.Float64
	}
	if startYear.Valid {
		year := int(startYear.Int64)
		inv.StartYear = &year
	}
	if endYear.Valid {
		year := int(endYear.Int64)
		inv.EndYear = &year
	}
	inv.ImageURL = imageURL.String
	if managerID.Valid {
		inv.Manager = &AuthorRef{ID: managerID.Int64, Username: username.String}
	}
	return &inv, nil
}

func (h *InvestmentHandlers) queryInvestments(w http.ResponseWriter, r *http.Request, query string, args ...interface{}) {
	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*Investment{}
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, inv)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// List returns all investments, newest first
func (h *InvestmentHandlers) List(w http.ResponseWriter, r *http.Request) {
	h.queryInvestments(w, r, investmentSelect+`ORDER BY i.created_at DESC`)
}

// ListByCategory returns the investments of one category, newest first
func (h *InvestmentHandlers) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := httputil.ParsePathStringOrError(w, r, "category")
	if !ok {
		return
	}
	h.queryInvestments(w, r,
		investmentSelect+`WHERE i.category = $1 ORDER BY i.created_at DESC`, category)
}

// Get returns one investment
func (h *InvestmentHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	inv, err := scanInvestment(h.db.QueryRowContext(r.Context(), investmentSelect+`WHERE i.id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "investment not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

type investmentInput struct {
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"shortDescription"`
	Amount           *float64 `json:"amount"`
	StartYear        *int     `json:"startYear"`
	EndYear          *int     `json:"endYear"`
	Status           string   `json:"status"`
	ImageURL         string   `json:"imageUrl"`
}

// decodeInvestmentInput accepts either a JSON body or a multipart form with
// an optional "image" file part
func (h *InvestmentHandlers) decodeInvestmentInput(w http.ResponseWriter, r *http.Request) (*investmentInput, bool) {
	if !isMultipart(r) {
		var in investmentInput
		if !httputil.ParseJSONOrError(w, r, &in) {
			return nil, false
		}
		return &in, true
	}

	in := &investmentInput{
		Title:            r.FormValue("title"),
		Category:         r.FormValue("category"),
		Description:      r.FormValue("description"),
		ShortDescription: r.FormValue("shortDescription"),
		Status:           r.FormValue("status"),
	}
	if raw := r.FormValue("amount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			httputil.WriteValidationError(w, "amount must be a number")
			return nil, false
		}
		in.Amount = &amount
	}
	for _, f := range []struct {
		name string
		dest **int
	}{
		{"startYear", &in.StartYear},
		{"endYear", &in.EndYear},
	} {
		if raw := r.FormValue(f.name); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				httputil.WriteValidationError(w, f.name+" must be a year")
				return nil, false
			}
			*f.dest = &year
		}
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

// Create creates an investment managed by the authenticated account
func (h *InvestmentHandlers) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeInvestmentInput(w, r)
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
		httputil.WriteValidationError(w, "unknown investment status")
		return
	}

	manager := middleware.GetAccount(r)

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO investments (title, category, description, short_description,
			amount, start_year, end_year, status, image_url, manager_id,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, NOW(), NOW())
		RETURNING id
	`, in.Title, in.Category, in.Description, in.ShortDescription, in.Amount,
		in.StartYear, in.EndYear, in.Status, in.ImageURL, manager.ID).Scan(&id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	inv, err := scanInvestment(h.db.QueryRowContext(r.Context(), investmentSelect+`WHERE i.id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, inv)
}

// Update applies the provided fields to an investment
func (h *InvestmentHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	in, ok := h.decodeInvestmentInput(w, r)
	if !ok {
		return
	}
	if in.Status != "" && !validProjectStatus(in.Status) {
		httputil.WriteValidationError(w, "unknown investment status")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE investments SET
			title = COALESCE(NULLIF($1, ''), title),
			category = COALESCE(NULLIF($2, ''), category),
			description = COALESCE(NULLIF($3, ''), description),
			short_description = COALESCE(NULLIF($4, ''), short_description),
			amount = COALESCE($5, amount),
			start_year = COALESCE($6, start_year),
			end_year = COALESCE($7, end_year),
			status = COALESCE(NULLIF($8, ''), status),
			image_url = COALESCE(NULLIF($9, ''), image_url),
			updated_at = NOW()
		WHERE id = $10
	`, in.Title, in.Category, in.Description, in.ShortDescription, in.Amount,
		in.StartYear, in.EndYear, in.Status, in.ImageURL, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "investment not found")
		return
	}

	inv, err := scanInvestment(h.db.QueryRowContext(r.Context(), investmentSelect+`WHERE i.id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, inv)
}

// Delete removes an investment
func (h *InvestmentHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM investments WHERE id = $1`, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "investment not found")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "investment deleted"})
}
