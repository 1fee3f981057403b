package content

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/mlomp/mairie-backend/pkg/httputil"
	"github.com/mlomp/mairie-backend/pkg/media"
)

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// AuthorRef is the trimmed account reference embedded in content responses
type AuthorRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// isMultipart reports whether the request carries a multipart form
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// uploadFormFile stores the named file part through the uploader and returns
// the stored object, or (nil, true) when the part is simply absent. Upload
// failures fail the whole request; a write never proceeds with half its
// media missing.
func uploadFormFile(w http.ResponseWriter, r *http.Request, uploader media.Uploader, field string) (*media.Object, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, true
		}
		httputil.WriteValidationError(w, "invalid file upload")
		return nil, false
	}
	defer file.Close()

	obj, err := uploader.Upload(r.Context(), media.Upload{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Body:        file,
	})
	if err != nil {
		switch {
		case errors.Is(err, media.ErrTooLarge):
			httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
		case errors.Is(err, media.ErrUnsupportedType):
			httputil.WriteValidationError(w, "only image and video uploads are accepted")
		default:
			httputil.WriteInternalError(w, err)
		}
		return nil, false
	}
	return obj, true
}

func partContentType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
