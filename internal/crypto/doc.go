// Package crypto provides the field encryption primitives for recvault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte key derived from a passphrase via PBKDF2
//   - 12-byte random IV drawn for every Encrypt call
//   - Authenticated encryption prevents tampering
//
// Key derivation uses PBKDF2-HMAC-SHA256 with:
//   - 16-byte random salt (stored unencrypted next to the ciphertext)
//   - an iteration count fixed per envelope format version
//
// Format versions:
//   - 2: 100,000 iterations, salt duplicated in every field envelope
//   - 3: 210,000 iterations, salt stored once per record (current)
//
// Memory safety:
//   - DerivedKey.Destroy() zeroes key material
//   - Use ClearBytes() to zero other sensitive buffers after use
package crypto
