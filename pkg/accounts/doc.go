// Package accounts implements account registration, authentication and
// administration for the backend.
//
// The first account ever registered becomes an administrator regardless of
// the requested role; later registrations default to editor. Administrative
// operations (listing, deleting and re-roling accounts) are guarded so the
// system can never lose its last administrator: the check and the mutation
// run in a single transaction with the target row locked.
//
// Password resets are token based. ForgotPassword issues a short-lived
// signed token, stores it on the account and hands it to a Mailer for
// out-of-band delivery. ResetPassword consumes the token with a single
// conditional update, so a token can be used at most once.
package accounts
