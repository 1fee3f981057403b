package auth

import (
	"errors"
	"net/http"
)

// Error is a domain error carrying the HTTP status it maps to at the
// handler boundary. Handlers convert it to the JSON error shape via
// httputil.WriteServiceError.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	// ErrUnauthenticated covers missing, malformed, or expired bearer tokens
	ErrUnauthenticated = &Error{Status: http.StatusUnauthorized, Message: "authentication required"}
	// ErrInvalidCredentials deliberately does not say whether the email or
	// the password was wrong
	ErrInvalidCredentials = &Error{Status: http.StatusUnauthorized, Message: "email or password incorrect"}
	ErrWrongPassword      = &Error{Status: http.StatusUnauthorized, Message: "current password incorrect"}
	ErrForbidden          = &Error{Status: http.StatusForbidden, Message: "insufficient permissions"}
	ErrAdminOnly          = &Error{Status: http.StatusForbidden, Message: "administrator access required"}

	ErrEmailTaken    = &Error{Status: http.StatusConflict, Message: "email address already in use"}
	ErrUsernameTaken = &Error{Status: http.StatusConflict, Message: "username already in use"}

	ErrAccountNotFound = &Error{Status: http.StatusNotFound, Message: "account not found"}

	// ErrLastAdmin protects the last-administrator invariant on delete/demote
	ErrLastAdmin = &Error{Status: http.StatusBadRequest, Message: "cannot remove the last administrator"}

	ErrInvalidResetToken = &Error{Status: http.StatusBadRequest, Message: "invalid or expired reset token"}
	ErrInvalidRole       = &Error{Status: http.StatusBadRequest, Message: "invalid role"}
)

// StatusOf returns the HTTP status for err, or 500 for unexpected errors
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
