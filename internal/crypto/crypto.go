package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"runtime"
)

const (
	SaltSize = 16 // Salt size in bytes
	KeySize  = 32 // AES-256 key size
	IVSize   = 12 // GCM nonce size
	TagSize  = 16 // GCM authentication tag size
)

// RandomSource is the entropy source used for salts and IVs.
// Any io.Reader works; production code uses crypto/rand.Reader.
type RandomSource = io.Reader

// DefaultRandom returns the platform CSPRNG.
func DefaultRandom() RandomSource {
	return rand.Reader
}

// ClearBytes securely clears a byte slice
//
//go:noinline
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom reads n bytes from r. A nil r means DefaultRandom.
func GenerateRandom(r RandomSource, n int) ([]byte, error) {
	if r == nil {
		r = DefaultRandom()
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
