// Package storage persists sealed records for recvault.
//
// The store treats sealed record bytes as opaque: it assigns nothing,
// interprets nothing and returns exactly what it was given. Two backends
// implement Store:
//   - bolt (default): a BBolt file with three buckets
//   - sqlite: a SQLite database with config and records tables
//
// BBolt bucket structure:
//   - config: format version, timestamps, vault ID, passphrase check blob
//   - index: record ID, kind, field names, timestamps (unencrypted, for ls)
//   - blobs: sealed record JSON
//
// The unencrypted index lets recvault ls and recvault status work without a
// passphrase. Field values are never stored outside a sealed blob.
package storage
