// Package core provides the main recvault vault operations.
//
// Core operations include:
//   - Init: Create a new vault and its passphrase check record
//   - Put/Get: Seal and open individual records
//   - OpenAll/Search: Batch open, with per-record failures reported
//   - ChangePassword: Reseal every record under a new passphrase
//   - Migrate: Upgrade records written in an older format version
//   - Export/Import: Move sealed records between vaults without decrypting
//
// A Vault keeps one session key cache for its lifetime, so records sharing
// a salt derive their key once. Close zeroes every cached key.
package core
