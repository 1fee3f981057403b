package content

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serviceColumns = []string{"id", "category", "title", "icon", "description", "created_at", "updated_at"}

func newServiceTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gate, token := newTestGate(t)

	router := mux.NewRouter()
	NewServiceHandlers(db, gate).RegisterRoutes(router)
	return router, mock, token
}

func serviceRow(id int64, category, title, icon string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(serviceColumns).
		AddRow(id, category, title, icon, "description", now, now)
}

func TestServiceListByCategory(t *testing.T) {
	router, mock, _ := newServiceTestRouter(t)

	mock.ExpectQuery(`WHERE category = \$1`).
		WithArgs(ServiceCategorySante).
		WillReturnRows(serviceRow(1, ServiceCategorySante, "centre de sante", "health"))

	rec := doRequest(router, "GET", "/services/category/SANTE", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceListUnknownCategory(t *testing.T) {
	router, _, _ := newServiceTestRouter(t)

	rec := doRequest(router, "GET", "/services/category/PLOMBERIE", "", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceCreateDefaultsIcon(t *testing.T) {
	router, mock, token := newServiceTestRouter(t)

	mock.ExpectQuery(`INSERT INTO services`).
		WithArgs(ServiceCategoryEducation, "ecole primaire", DefaultServiceIcon, "inscription").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(`FROM services`).
		WithArgs(int64(2)).
		WillReturnRows(serviceRow(2, ServiceCategoryEducation, "ecole primaire", DefaultServiceIcon))

	body := `{"category":"EDUCATION","title":"ecole primaire","description":"inscription"}`
	rec := doRequest(router, "POST", "/services", token, strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	var s map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, DefaultServiceIcon, s["icon"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateUnknownCategory(t *testing.T) {
	router, _, token := newServiceTestRouter(t)

	body := `{"category":"PLOMBERIE","title":"robinets"}`
	rec := doRequest(router, "POST", "/services", token, strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceUpdateNotFound(t *testing.T) {
	router, mock, token := newServiceTestRouter(t)

	mock.ExpectExec(`UPDATE services SET`).
		WithArgs("", "renamed", "", "", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rec := doRequest(router, "PUT", "/services/9",
		token, strings.NewReader(`{"title":"renamed"}`), "application/json")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
