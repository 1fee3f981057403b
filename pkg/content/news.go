package content

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

// News is a published news article
type News struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Category  string     `json:"category"`
	ImageURL  string     `json:"imageUrl,omitempty"`
	Author    *AuthorRef `json:"author,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// NewsHandlers handles news HTTP requests
type NewsHandlers struct {
	db       *sql.DB
	gate     *middleware.AuthGate
	uploader media.Uploader
}

// NewNewsHandlers creates a new NewsHandlers
func NewNewsHandlers(db *sql.DB, gate *middleware.AuthGate, uploader media.Uploader) *NewsHandlers {
	return &NewsHandlers{db: db, gate: gate, uploader: uploader}
}

// RegisterRoutes registers news routes. Reads are public, writes require a
// bearer token.
func (h *NewsHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/news", h.List).Methods("GET")
	router.HandleFunc("/news/category/{category}", h.ListByCategory).Methods("GET")
	router.HandleFunc("/news/{id:[0-9]+}", h.Get).Methods("GET")

	router.Handle("/news", h.gate.HandlerFunc(h.Create)).Methods("POST")
	router.Handle("/news/{id:[0-9]+}", h.gate.HandlerFunc(h.Update)).Methods("PUT")
	router.Handle("/news/{id:[0-9]+}", h.gate.HandlerFunc(h.Delete)).Methods("DELETE")
}

const newsSelect = `
	SELECT n.id, n.title, n.content, n.category, n.image_url,
	       a.id, a.username, n.created_at, n.updated_at
	FROM news n
	LEFT JOIN accounts a ON a.id = n.author_id
`

func scanNews(row rowScanner) (*News, error) {
	var (
		n        News
		imageURL sql.NullString
		authorID sql.NullInt64
		username sql.NullString
	)
	err := row.Scan(&n.ID, &n.Title, &n.Content, &n.Category, &imageURL,
		&authorID, &username, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.ImageURL = imageURL.String
	if authorID.Valid {
		n.Author = &AuthorRef{ID: authorID.Int64, Username: username.String}
	}
	return &n, nil
}

// List returns all news, newest first
func (h *NewsHandlers) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), newsSelect+`ORDER BY n.created_at DESC`)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*News{}
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// ListByCategory returns the news of one category, newest first
func (h *NewsHandlers) ListByCategory(w http.ResponseWriter, r *http.Request) {
	category, ok := httputil.ParsePathStringOrError(w, r, "category")
	if !ok {
		return
	}

	rows, err := h.db.QueryContext(r.Context(),
		newsSelect+`WHERE n.category = $1 ORDER BY n.created_at DESC`, category)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*News{}
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// Get returns one news article
func (h *NewsHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	n, err := scanNews(h.db.QueryRowContext(r.Context(), newsSelect+`WHERE n.id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "news not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, n)
}

type newsInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl"`
}

// decodeNewsInput accepts either a JSON body or a multipart form with an
// optional "image" file part
func (h *NewsHandlers) decodeNewsInput(w http.ResponseWriter, r *http.Request) (*newsInput, bool) {
	if !isMultipart(r) {
		var in newsInput
		if !httputil.ParseJSONOrError(w, r, &in) {
			return nil, false
		}
		return &in, true
	}

	in := &newsInput{
		Title:    r.FormValue("title"),
		Content:  r.FormValue("content"),
		Category: r.FormValue("category"),
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

// Create creates a news article authored by the authenticated account
func (h *NewsHandlers) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeNewsInput(w, r)
	if !ok {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Title, "title") {
		return
	}
	if !httputil.RequireNonEmpty(w, in.Content, "content") {
		return
	}

	author := middleware.GetAccount(r)

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO news (title, content, category, image_url, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW())
		RETURNING id
	`, in.Title, in.Content, in.Category, in.ImageURL, author.ID).Scan(&id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	n, err := scanNews(h.db.QueryRowContext(r.Context(), newsSelect+`WHERE n.id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, n)
}

// Update applies the provided fields to a news article
func (h *NewsHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	in, ok := h.decodeNewsInput(w, r)
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE news SET
			title = COALESCE(NULLIF($1, ''), title),
			content = COALESCE(NULLIF($2, ''), content),
			category = COALESCE(NULLIF($3, ''), category),
			image_url = COALESCE(NULLIF($4, ''), image_url),
			updated_at = NOW()
		WHERE id = $5
	`, in.Title, in.Content, in.Category, in.ImageURL, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "news not found")
		return
	}

	n, err := scanNews(h.db.QueryRowContext(r.Context(), newsSelect+`WHERE n.id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, n)
}

// Delete removes a news article
func (h *NewsHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	res, err := h.db.ExecContext(r.Context(), `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		httputil.WriteNotFoundError(w, "news not found")
		return
	}
	httputil.WriteSuccess(w, map[string]string{"message": "news deleted"})
}
