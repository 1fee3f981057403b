// Package auth provides accounts, roles, bearer tokens, and password hashing.
//
// # Overview
//
// This package implements the authentication core shared by the whole API:
// the Account model, the canonical role set, HMAC-signed JWT session and
// password-reset tokens, and bcrypt password hashing. It holds no storage;
// persistence lives in pkg/accounts.
//
// # Roles
//
//	RoleAdmin  - Full access, user management
//	RoleEditor - Create and edit content (default for new accounts)
//	RoleViewer - Read-only access to protected resources
//
// # Tokens
//
// Session tokens are stateless bearer credentials valid for 24 hours:
//
//	tokens := auth.NewTokenService(secret)
//	session, err := tokens.IssueSession(account)
//	claims, err := tokens.VerifySession(session)
//
// Reset tokens are 1-hour credentials bound to an account id and email.
// They are additionally persisted on the account row so that consumption
// can invalidate them before their natural expiry (single use).
//
// Verification failures distinguish ErrTokenExpired from ErrTokenMalformed,
// and both map to 401 at the handler boundary.
//
// # Errors
//
// Domain errors carry their HTTP status (auth.Error); unexpected errors map
// to 500 with the detail suppressed outside development.
//
// # Related Packages
//
//   - pkg/accounts: account lifecycle and persistence
//   - pkg/middleware: HTTP authentication gate and role policy
//   - pkg/sso: federated (OIDC) login
package auth
