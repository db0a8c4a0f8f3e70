// Package record seals multi-field records into envelope sets and back.
//
// One Seal call runs a single key derivation with a fresh salt, then
// encrypts every field in parallel under that key, each with its own IV.
// Open groups envelopes by (version, salt), derives one key per group and
// decrypts fields in parallel. A field that fails authentication does not
// abort the others; the caller receives the fields that opened together with
// a PartialDecryptionError naming the rest.
package record
