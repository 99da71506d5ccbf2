// Package session implements customer sessions: signup, login, token refresh,
// logout, profile reads/updates and password changes.
//
// Access tokens are short-lived HS256 JWTs and are never stored. Refresh tokens
// are JWTs of type "refresh" whose digests are recorded in a Ledger (Postgres or
// SQLite), so logout and deactivation can revoke them before expiry.
//
// Transport (HTTP) integration is out of scope here; see package authapi.
package session
