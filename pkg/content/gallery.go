package content

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/observability"
)

// GalleryItem is a stored photo or video shown in the public gallery
type GalleryItem struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	MediaURL  string     `json:"mediaUrl"`
	Type      media.Type `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`

	mediaKey string
}

// GalleryHandlers handles gallery HTTP requests. The whole surface is
// public, writes included; the gallery is fed by an external collaborator
// that carries no credentials.
type GalleryHandlers struct {
	db       *sql.DB
	uploader media.Uploader
	logger   *observability.Logger
}

// NewGalleryHandlers creates a new GalleryHandlers
func NewGalleryHandlers(db *sql.DB, uploader media.Uploader, logger *observability.Logger) *GalleryHandlers {
	return &GalleryHandlers{db: db, uploader: uploader, logger: logger}
}

// RegisterRoutes registers gallery routes
func (h *GalleryHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/gallery", h.List).Methods("GET")
	router.HandleFunc("/gallery/{id:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/gallery", h.Create).Methods("POST")
	router.HandleFunc("/gallery/{id:[0-9]+}", h.Update).Methods("PUT")
	router.HandleFunc("/gallery/{id:[0-9]+}", h.Delete).Methods("DELETE")
}

const gallerySelect = `
	SELECT id, title, media_url, media_key, media_type, created_at, updated_at
	FROM gallery
`

func scanGalleryItem(row rowScanner) (*GalleryItem, error) {
	var g GalleryItem
	err := row.Scan(&g.ID, &g.Title, &g.MediaURL, &g.mediaKey, &g.Type,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// List returns the whole gallery, newest first
func (h *GalleryHandlers) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), gallerySelect+`ORDER BY created_at DESC`)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	defer rows.Close()

	items := []*GalleryItem{}
	for rows.Next() {
		g, err := scanGalleryItem(rows)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		items = append(items, g)
	}
	if err := rows.Err(); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, items)
}

// Get returns one gallery item
func (h *GalleryHandlers) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	g, err := scanGalleryItem(h.db.QueryRowContext(r.Context(), gallerySelect+`WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "gallery item not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, g)
}

// Create stores an uploaded file and records it in the gallery. The media
// type is inferred from the uploaded content type, never from the client's
// say-so.
func (h *GalleryHandlers) Create(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		httputil.WriteValidationError(w, "a multipart form with a media file is required")
		return
	}

	obj, ok := uploadFormFile(w, r, h.uploader, "media")
	if !ok {
		return
	}
	if obj == nil {
		httputil.WriteValidationError(w, "media file is required")
		return
	}

	title := r.FormValue("title")

	var id int64
	err := h.db.QueryRowContext(r.Context(), `
		INSERT INTO gallery (title, media_url, media_key, media_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`, title, obj.URL, obj.Key, string(obj.Type)).Scan(&id)
	if err != nil {
		// The object is already stored; best effort removal keeps the
		// bucket in step with the table.
		if delErr := h.uploader.Delete(r.Context(), obj.Key); delErr != nil {
			h.logger.WithError(delErr).Warn("failed to remove orphaned media object", "key", obj.Key)
		}
		httputil.WriteInternalError(w, err)
		return
	}

	g, err := scanGalleryItem(h.db.QueryRowContext(r.Context(), gallerySelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, g)
}

// Update retitles a gallery item and optionally replaces its media
func (h *GalleryHandlers) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	current, err := scanGalleryItem(h.db.QueryRowContext(r.Context(), gallerySelect+`WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "gallery item not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	title := current.Title
	var replacement *media.Object

	if isMultipart(r) {
		if v := r.FormValue("title"); v != "" {
			title = v
		}
		replacement, ok = uploadFormFile(w, r, h.uploader, "media")
		if !ok {
			return
		}
	} else {
		var in struct {
			Title string `json:"title"`
		}
		if !httputil.ParseJSONOrError(w, r, &in) {
			return
		}
		if in.Title != "" {
			title = in.Title
		}
	}

	if replacement != nil {
		_, err = h.db.ExecContext(r.Context(), `
			UPDATE gallery SET title = $1, media_url = $2, media_key = $3,
				media_type = $4, updated_at = NOW()
			WHERE id = $5
		`, title, replacement.URL, replacement.Key, string(replacement.Type), id)
	} else {
		_, err = h.db.ExecContext(r.Context(),
			`UPDATE gallery SET title = $1, updated_at = NOW() WHERE id = $2`, title, id)
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if replacement != nil && current.mediaKey != "" {
		if delErr := h.uploader.Delete(r.Context(), current.mediaKey); delErr != nil {
			h.logger.WithError(delErr).Warn("failed to remove replaced media object", "key", current.mediaKey)
		}
	}

	g, err := scanGalleryItem(h.db.QueryRowContext(r.Context(), gallerySelect+`WHERE id = $1`, id))
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, g)
}

// Delete removes a gallery item and its stored object
func (h *GalleryHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	current, err := scanGalleryItem(h.db.QueryRowContext(r.Context(), gallerySelect+`WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		httputil.WriteNotFoundError(w, "gallery item not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if _, err := h.db.ExecContext(r.Context(), `DELETE FROM gallery WHERE id = $1`, id); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if current.mediaKey != "" {
		if delErr := h.uploader.Delete(r.Context(), current.mediaKey); delErr != nil {
			h.logger.WithError(delErr).Warn("failed to remove deleted media object", "key", current.mediaKey)
		}
	}

	httputil.WriteSuccess(w, map[string]string{"message": "gallery item deleted"})
}
