package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifySession(t *testing.T) {
	svc := NewTokenService("test-secret")
	account := &Account{ID: 42, Username: "mayor", Role: RoleAdmin}

	token, err := svc.IssueSession(account)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifySession(token)
	require.NoError(t, err)
	assert.Equal(t, "mayor", claims.Username)
	assert.Equal(t, RoleAdmin, claims.Role)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	assert.WithinDuration(t, time.Now().Add(SessionTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestIssueAndVerifyReset(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.IssueReset(7, "mayor@example.org")
	require.NoError(t, err)

	claims, err := svc.VerifyReset(token)
	require.NoError(t, err)
	assert.Equal(t, "mayor@example.org", claims.Email)

	id, err := claims.AccountID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	assert.WithinDuration(t, time.Now().Add(ResetTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestVerifySession_Expired(t *testing.T) {
	svc := NewTokenService("test-secret")

	// Sign a token that expired an hour and a minute ago
	now := time.Now()
	claims := Claims{
		Username: "mayor",
		Role:     RoleEditor,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-61 * time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.VerifySession(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifySession_Malformed(t *testing.T) {
	svc := NewTokenService("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9.e30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifySession(tt.token)
			assert.ErrorIs(t, err, ErrTokenMalformed)
		})
	}
}

func TestVerifySession_WrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").IssueSession(&Account{ID: 1, Role: RoleViewer})
	require.NoError(t, err)

	_, err = NewTokenService("secret-b").VerifySession(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestVerifySession_RejectsUnsignedToken(t *testing.T) {
	svc := NewTokenService("test-secret")

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(1, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.VerifySession(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
