package content

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/mlomp/mairie-backend/pkg/auth"
	"github.com/mlomp/mairie-backend/pkg/media"
	"github.com/mlomp/mairie-backend/pkg/middleware"
)

type stubAccounts struct {
	accounts map[int64]*auth.Account
}

func (s *stubAccounts) GetAccountByID(_ context.Context, id int64) (*auth.Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, errors.New("account not found")
}

// stubUploader records uploads and deletions instead of talking to a bucket
type stubUploader struct {
	uploadErr error
	uploaded  []media.Upload
	deleted   []string
}

func (u *stubUploader) Upload(_ context.Context, up media.Upload) (*media.Object, error) {
	if u.uploadErr != nil {
		return nil, u.uploadErr
	}
	u.uploaded = append(u.uploaded, up)
	mediaType, err := media.TypeOf(up.ContentType)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("stub/%s", up.Filename)
	return &media.Object{
		Key:         key,
		URL:         "https://media.test/" + key,
		ContentType: up.ContentType,
		Type:        mediaType,
	}, nil
}

func (u *stubUploader) Delete(_ context.Context, key string) error {
	u.deleted = append(u.deleted, key)
	return nil
}

const testEditorID = int64(7)

// newTestGate returns an authentication gate that knows one EDITOR account,
// along with a valid session token for it
func newTestGate(t *testing.T) (*middleware.AuthGate, string) {
	t.Helper()
	editor := &auth.Account{ID: testEditorID, Username: "editor", Email: "editor@ville.sn", Role: auth.RoleEditor}
	tokens := auth.NewTokenService("test-secret")
	token, err := tokens.IssueSession(editor)
	require.NoError(t, err)
	gate := middleware.NewAuthGate(tokens, &stubAccounts{accounts: map[int64]*auth.Account{testEditorID: editor}})
	return gate, token
}

// multipartBody builds a multipart form with the given text fields and one
// optional file part carrying an explicit content type
func multipartBody(t *testing.T, fields map[string]string, fileField, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, filename))
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doRequest(router *mux.Router, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
