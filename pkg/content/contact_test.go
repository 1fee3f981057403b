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

var contactColumns = []string{"id", "name", "email", "subject", "message", "status", "created_at", "updated_at"}

func newContactTestRouter(t *testing.T) (*mux.Router, sqlmock.Sqlmock, string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gate, token := newTestGate(t)

	router := mux.NewRouter()
	NewContactHandlers(db, gate).RegisterRoutes(router)
	return router, mock, token
}

func contactRow(id int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(contactColumns).
		AddRow(id, "Awa Diop", "awa@example.sn", "roads", "the road is flooded", status, now, now)
}

func TestContactSubmit(t *testing.T) {
	router, mock, _ := newContactTestRouter(t)

	mock.ExpectQuery(`INSERT INTO contact_messages`).
		WithArgs("Awa Diop", "awa@example.sn", "roads", "the road is flooded", ContactStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(`FROM contact_messages`).
		WithArgs(int64(1)).
		WillReturnRows(contactRow(1, ContactStatusPending))

	body := `{"name":"Awa Diop","email":"awa@example.sn","subject":"roads","message":"the road is flooded"}`
	rec := doRequest(router, "POST", "/contact/messages", "", strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, "PENDING", m["status"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactSubmitValidation(t *testing.T) {
	router, _, _ := newContactTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@b.sn","message":"hi"}`},
		{"missing email", `{"name":"Awa","message":"hi"}`},
		{"missing message", `{"name":"Awa","email":"a@b.sn"}`},
		{"invalid email", `{"name":"Awa","email":"not-an-email","message":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, "POST", "/contact/messages", "", strings.NewReader(tt.body), "application/json")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestContactListRequiresAuth(t *testing.T) {
	router, _, _ := newContactTestRouter(t)

	rec := doRequest(router, "GET", "/contact/messages", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestContactListByStatus(t *testing.T) {
	router, mock, token := newContactTestRouter(t)

	mock.ExpectQuery(`WHERE status = \$1`).
		WithArgs(ContactStatusRead).
		WillReturnRows(contactRow(2, ContactStatusRead))

	rec := doRequest(router, "GET", "/contact/messages?status=READ", token, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactListUnknownStatus(t *testing.T) {
	router, _, token := newContactTestRouter(t)

	rec := doRequest(router, "GET", "/contact/messages?status=SHOUTING", token, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactUpdateStatus(t *testing.T) {
	router, mock, token := newContactTestRouter(t)

	mock.ExpectExec(`UPDATE contact_messages SET status`).
		WithArgs(ContactStatusReplied, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM contact_messages`).
		WithArgs(int64(3)).
		WillReturnRows(contactRow(3, ContactStatusReplied))

	rec := doRequest(router, "PATCH", "/contact/messages/3/status",
		token, strings.NewReader(`{"status":"REPLIED"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactUpdateStatusInvalid(t *testing.T) {
	router, _, token := newContactTestRouter(t)

	rec := doRequest(router, "PATCH", "/contact/messages/3/status",
		token, strings.NewReader(`{"status":"LOST"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactDelete(t *testing.T) {
	router, mock, token := newContactTestRouter(t)

	mock.ExpectExec(`DELETE FROM contact_messages`).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(router, "DELETE", "/contact/messages/4", token, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
