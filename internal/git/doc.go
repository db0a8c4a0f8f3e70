// Package git checks how recvault files relate to an enclosing git
// repository.
//
// Checks performed:
//   - Whether the vault file is tracked by git (fine: it only holds ciphertext)
//   - Whether a decrypted output file is tracked by git (should not be)
//   - Whether a decrypted output file is in .gitignore (should be)
package git
