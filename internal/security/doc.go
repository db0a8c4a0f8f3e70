// Package security confines the files recvault reads and writes outside its
// store (export bundles, decrypted output, diff input) to the working
// directory.
package security
