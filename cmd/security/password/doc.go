// Package password hashes and verifies customer passwords.
//
// New hashes are Argon2id in a PHC-like encoded string. Verification also accepts
// the hash formats of the previous customer database (werkzeug pbkdf2/scrypt and
// bcrypt) so imported accounts keep working; Hasher.Verify flags those for rehash.
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify and are validated accordingly.
// - Verification refuses hashes with parameters that exceed reasonable bounds.
package password
