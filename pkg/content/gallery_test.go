package content

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/observability"
)

var galleryColumns = []string{"id", "title", "media_url", "media_key", "media_type", "created_at", "updated_at"}

func newGalleryTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock, *stubUploader) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	uploader := &stubUploader{}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	router := mux.NewRouter()
	NewGalleryHandlers(db, uploader, logger).RegisterRoutes(router)
	return router, mock, uploader
}

func galleryRow(id int64, title, key string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(galleryColumns).
		AddRow(id, title, "https://media.test/"+key, key, "IMAGE", now, now)
}

func TestGalleryList(t *testing.T) {
	router, mock, _ := newGalleryTestRouter(t)

	mock.ExpectQuery(`FROM gallery`).
		WillReturnRows(galleryRow(1, "marche", "images/a.jpg"))

	rec := doRequest(router, "GET", "/gallery", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryCreate(t *testing.T) {
	router, mock, uploader := newGalleryTestRouter(t)

	mock.ExpectQuery(`INSERT INTO gallery`).
		WithArgs("marche hebdo", "https://media.test/stub/marche.jpg", "stub/marche.jpg", "IMAGE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectQuery(`FROM gallery`).
		WithArgs(int64(5)).
		WillReturnRows(galleryRow(5, "marche hebdo", "stub/marche.jpg"))

	body, contentType := multipartBody(t, map[string]string{"title": "marche hebdo"},
		"media", "marche.jpg", "image/jpeg", []byte("jpegdata"))

	rec := doRequest(router, "POST", "/gallery", "", body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, uploader.uploaded, 1)
	assert.Empty(t, uploader.deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryCreateRequiresMultipart(t *testing.T) {
	router, _, _ := newGalleryTestRouter(t)

	rec := doRequest(router, "POST", "/gallery",
		"", strings.NewReader(`{"title":"nope"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryCreateRequiresFile(t *testing.T) {
	router, _, _ := newGalleryTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"title": "no file"}, "", "", "", nil)
	rec := doRequest(router, "POST", "/gallery", "", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryCreateRejectsUnsupportedType(t *testing.T) {
	router, _, uploader := newGalleryTestRouter(t)
	uploader.uploadErr = media.ErrUnsupportedType

	body, contentType := multipartBody(t, nil, "media", "doc.pdf", "application/pdf", []byte("%PDF"))
	rec := doRequest(router, "POST", "/gallery", "", body, contentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGalleryCreateRejectsOversized(t *testing.T) {
	router, _, uploader := newGalleryTestRouter(t)
	uploader.uploadErr = media.ErrTooLarge

	body, contentType := multipartBody(t, nil, "media", "huge.jpg", "image/jpeg", []byte("x"))
	rec := doRequest(router, "POST", "/gallery", "", body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

// A failed insert must not leave the uploaded object stranded in the bucket
func TestGalleryCreateCleansUpOnInsertFailure(t *testing.T) {
	router, mock, uploader := newGalleryTestRouter(t)

	mock.ExpectQuery(`INSERT INTO gallery`).
		WillReturnError(errors.New("connection reset"))

	body, contentType := multipartBody(t, map[string]string{"title": "lost"},
		"media", "lost.jpg", "image/jpeg", []byte("jpegdata"))

	rec := doRequest(router, "POST", "/gallery", "", body, contentType)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, []string{"stub/lost.jpg"}, uploader.deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryUpdateReplacesMedia(t *testing.T) {
	router, mock, uploader := newGalleryTestRouter(t)

	mock.ExpectQuery(`FROM gallery`).
		WithArgs(int64(5)).
		WillReturnRows(galleryRow(5, "marche", "images/old.jpg"))
	mock.ExpectExec(`UPDATE gallery SET title`).
		WithArgs("marche", "https://media.test/stub/new.jpg", "stub/new.jpg", "IMAGE", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM gallery`).
		WithArgs(int64(5)).
		WillReturnRows(galleryRow(5, "marche", "stub/new.jpg"))

	body, contentType := multipartBody(t, nil, "media", "new.jpg", "image/jpeg", []byte("jpegdata"))
	rec := doRequest(router, "PUT", "/gallery/5", "", body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	// The replaced object is removed from the bucket
	assert.Equal(t, []string{"images/old.jpg"}, uploader.deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryUpdateRetitleOnly(t *testing.T) {
	router, mock, uploader := newGalleryTestRouter(t)

	mock.ExpectQuery(`FROM gallery`).
		WithArgs(int64(6)).
		WillReturnRows(galleryRow(6, "old title", "images/keep.jpg"))
	mock.ExpectExec(`UPDATE gallery SET title`).
		WithArgs("new title", int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM gallery`).
		WithArgs(int64(6)).
		WillReturnRows(galleryRow(6, "new title", "images/keep.jpg"))

	rec := doRequest(router, "PUT", "/gallery/6",
		"", strings.NewReader(`{"title":"new title"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, uploader.deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGalleryDelete(t *testing.T) {
	router, mock, uploader := newGalleryTestRouter(t)

	mock.ExpectQuery(`FROM gallery`).
		WithArgs(int64(7)).
		WillReturnRows(galleryRow(7, "gone", "images/gone.jpg"))
	mock.ExpectExec(`DELETE FROM gallery`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(router, "DELETE", "/gallery/7", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"images/gone.jpg"}, uploader.deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}
