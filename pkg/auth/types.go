package auth

import "time"

// Role represents an account's authorization level
type Role string

const (
	RoleAdmin  Role = "ADMIN"  // Full access, user management
	RoleEditor Role = "EDITOR" // Can create and edit content
	RoleViewer Role = "VIEWER" // Read-only access to protected resources
)

// ValidRole reports whether r is one of the known roles
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Account represents a user account.
// PasswordHash and reset-token state are never serialized to JSON.
type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	GoogleID     string    `json:"-"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Country      string    `json:"country,omitempty"`
	City         string    `json:"city,omitempty"`
	Department   string    `json:"department,omitempty"`
	Commune      string    `json:"commune,omitempty"`

	// NeedsCompletion is true for federated accounts whose mandatory
	// profile fields have not all been filled in yet. The transition to
	// false is one-way.
	NeedsCompletion bool `json:"needs_completion"`

	ResetToken          string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account holds the administrator role
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ProfileComplete reports whether every mandatory profile field is populated
func (a *Account) ProfileComplete() bool {
	return a.Phone != "" &&
		a.PasswordHash != "" &&
		a.Country != "" &&
		a.City != "" &&
		a.Department != "" &&
		a.Commune != ""
}
