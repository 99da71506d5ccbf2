// Package token hashes refresh tokens for the server-side ledger.
//
// The ledger only ever stores digests. Two modes exist:
// - SHA-256(token) when no HMAC key is configured (development).
// - HMAC-SHA256(token, key) when CAREPASS_TOKEN_HMAC_KEY is set.
//
// Both produce a 64-char hex string suitable for a unique index and
// constant-time comparison. When CAREPASS_REQUIRE_TOKEN_HMAC=true, callers
// must use RefreshHasherFromEnv(true, ...) so a missing key fails startup.
package token
