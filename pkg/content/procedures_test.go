package content

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var procedureColumns = []string{"id", "title", "description", "icon", "required_docs", "processing_time", "category", "online_url", "created_at", "updated_at"}

func newProcedureTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gate, token := newTestGate(t)

	router := mux.NewRouter()
	NewProcedureHandlers(db, gate).RegisterRoutes(router)
	return router, mock, token
}

func procedureRow(id int64, title, docs string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(procedureColumns).
		AddRow(id, title, "how to apply", "default-icon", docs, "48h", "ETAT_CIVIL", nil, now, now)
}

func TestProcedureList(t *testing.T) {
	router, mock, _ := newProcedureTestRouter(t)

	mock.ExpectQuery(`FROM procedures`).
		WillReturnRows(procedureRow(1, "acte de naissance", `{"piece d'identite",formulaire}`))

	rec := doRequest(router, "GET", "/Procedures", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	docs, ok := items[0]["requiredDocs"].([]interface{})
	require.True(t, ok)
	assert.Len(t, docs, 2)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// The documents array always serializes as a list, never null
func TestProcedureEmptyDocs(t *testing.T) {
	router, mock, _ := newProcedureTestRouter(t)

	mock.ExpectQuery(`FROM procedures`).
		WillReturnRows(procedureRow(2, "certificat de residence", `{}`))

	rec := doRequest(router, "GET", "/Procedures", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requiredDocs":[]`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Lowercase /procedures is not part of the published surface
func TestProcedurePathIsCaseSensitive(t *testing.T) {
	router, _, _ := newProcedureTestRouter(t)

	rec := doRequest(router, "GET", "/procedures", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcedureCreate(t *testing.T) {
	router, mock, token := newProcedureTestRouter(t)

	mock.ExpectQuery(`INSERT INTO procedures`).
		WithArgs("acte de mariage", "how to apply", "default-icon",
			pq.Array([]string{"piece d'identite"}), "72h", "ETAT_CIVIL", "").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`FROM procedures`).
		WithArgs(int64(3)).
		WillReturnRows(procedureRow(3, "acte de mariage", `{"piece d'identite"}`))

	body := `{"title":"acte de mariage","description":"how to apply","requiredDocs":["piece d'identite"],"processingTime":"72h","category":"ETAT_CIVIL"}`
	rec := doRequest(router, "POST", "/Procedures", token, strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Omitting requiredDocs on update keeps the stored list
func TestProcedureUpdateKeepsDocsWhenAbsent(t *testing.T) {
	router, mock, token := newProcedureTestRouter(t)

	mock.ExpectExec(`UPDATE procedures SET`).
		WithArgs("renamed", "", "", nil, "", "", "", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM procedures`).
		WithArgs(int64(4)).
		WillReturnRows(procedureRow(4, "renamed", `{formulaire}`))

	rec := doRequest(router, "PUT", "/Procedures/4",
		token, strings.NewReader(`{"title":"renamed"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProcedureDeleteRequiresAuth(t *testing.T) {
	router, _, _ := newProcedureTestRouter(t)

	rec := doRequest(router, "DELETE", "/Procedures/4", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
