// Package customer is the credential store for customer accounts.
//
// It owns the Customer record, its uniqueness rules (normalized email, mobile
// number) and the persistence boundary used by the session layer. Two
// implementations exist: PostgresStore (pgx) and SQLiteStore (database/sql).
//
// The store never hashes or checks passwords; it persists whatever opaque hash
// the caller provides and refuses to persist an empty one.
package customer
