package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var errNoKey = errors.New("key is nil or destroyed")

// FieldCipher provides authenticated encryption of single string fields.
// It is safe for concurrent use if its RandomSource is.
type FieldCipher struct {
	rand RandomSource
}

// NewFieldCipher creates a cipher drawing IVs from r.
// A nil r means DefaultRandom.
func NewFieldCipher(r RandomSource) *FieldCipher {
	if r == nil {
		r = DefaultRandom()
	}
	return &FieldCipher{rand: r}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt encrypts plaintext using AES-256-GCM under key. A fresh IV is
// drawn for every call.
func (c *FieldCipher) Encrypt(plaintext string, key *DerivedKey) (Envelope, error) {
	if key == nil || key.Destroyed() {
		return Envelope{}, errNoKey
	}

	gcm, err := newGCM(key.key)
	if err != nil {
		return Envelope{}, err
	}

	iv, err := GenerateRandom(c.rand, IVSize)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to generate IV: %w", err)
	}

	data := []byte(plaintext)
	defer ClearBytes(data)

	return Envelope{
		Version:    key.version,
		Salt:       key.Salt(),
		IV:         iv,
		Ciphertext: gcm.Seal(nil, iv, data, nil),
	}, nil
}

// Decrypt decrypts an envelope using key. The version gate runs before any
// cryptographic work; every authentication failure maps to ErrDecryption.
func (c *FieldCipher) Decrypt(env Envelope, key *DerivedKey) (string, error) {
	if !IsSupported(env.Version) {
		return "", &UnsupportedVersionError{Version: env.Version}
	}
	if key == nil || key.Destroyed() {
		return "", errNoKey
	}
	if env.Version != key.version {
		return "", decryptionError(fmt.Sprintf("key derived for version %d, envelope has version %d", key.version, env.Version))
	}
	if env.Salt != nil && !bytes.Equal(env.Salt, key.salt) {
		return "", decryptionError("key derived from a different salt")
	}
	if len(env.IV) != IVSize {
		return "", decryptionError(fmt.Sprintf("invalid IV length %d", len(env.IV)))
	}
	if len(env.Ciphertext) < TagSize {
		return "", decryptionError("ciphertext too short")
	}

	gcm, err := newGCM(key.key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, env.IV, env.Ciphertext, nil)
	if err != nil {
		return "", decryptionError("authentication failed")
	}
	defer ClearBytes(plaintext)

	return string(plaintext), nil
}
