// Package sso implements federated login through OpenID Connect.
//
// The issuer (Google by default) is discovered once at startup. A login
// redirects the browser to the authorization endpoint with a random state
// pinned in a short-lived cookie; the callback verifies the state, exchanges
// the code, verifies the ID token and hands the resulting identity to the
// account provisioner, which links or creates a local account and issues a
// regular session token.
package sso
