// Package session caches derived keys for the lifetime of an unlocked
// session so the slow KDF runs once per (passphrase, salt) pair rather than
// once per field or record open.
package session
