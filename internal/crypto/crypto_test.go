package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func mustDerive(t *testing.T, d *KeyDeriver, passphrase string, salt []byte) *DerivedKey {
	t.Helper()
	key, err := d.Derive(passphrase, salt)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return key
}

func TestDeriveDeterministic(t *testing.T) {
	d := NewKeyDeriver(nil)

	key1 := mustDerive(t, d, "correct horse", nil)
	defer key1.Destroy()
	if len(key1.Salt()) != SaltSize {
		t.Fatalf("Expected %d byte salt, got %d", SaltSize, len(key1.Salt()))
	}
	if key1.Version() != CurrentVersion {
		t.Errorf("Expected version %d, got %d", CurrentVersion, key1.Version())
	}

	key2 := mustDerive(t, d, "correct horse", key1.Salt())
	defer key2.Destroy()
	if !key1.Equal(key2) {
		t.Error("Same passphrase and salt should yield identical keys")
	}

	key3 := mustDerive(t, d, "correct horse", nil)
	defer key3.Destroy()
	if bytes.Equal(key1.Salt(), key3.Salt()) {
		t.Fatal("Fresh salts should differ")
	}
	if key1.Equal(key3) {
		t.Error("Different salts should yield different keys")
	}
}

func TestDeriveVersionsDiffer(t *testing.T) {
	d := NewKeyDeriver(nil)
	salt := bytes.Repeat([]byte{7}, SaltSize)

	legacy, err := d.DeriveVersion(VersionLegacy, "pw", salt)
	if err != nil {
		t.Fatalf("DeriveVersion failed: %v", err)
	}
	defer legacy.Destroy()

	current := mustDerive(t, d, "pw", salt)
	defer current.Destroy()

	if legacy.Equal(current) {
		t.Error("Different iteration counts should yield different keys")
	}
}

func TestDeriveErrors(t *testing.T) {
	d := NewKeyDeriver(nil)

	tests := []struct {
		name       string
		version    int
		passphrase string
		salt       []byte
		want       error
	}{
		{"empty passphrase", CurrentVersion, "", nil, ErrKeyDerivation},
		{"short salt", CurrentVersion, "pw", []byte("short"), ErrKeyDerivation},
		{"empty non-nil salt", CurrentVersion, "pw", []byte{}, ErrKeyDerivation},
		{"long salt", CurrentVersion, "pw", make([]byte, 32), ErrKeyDerivation},
		{"unknown version", 99, "pw", nil, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := d.DeriveVersion(tt.version, tt.passphrase, tt.salt)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if key != nil {
				t.Error("Key should be nil on failure")
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestDeriveRandomFailure(t *testing.T) {
	d := NewKeyDeriver(failingReader{})
	_, err := d.Derive("pw", nil)

	var kdErr *KeyDerivationError
	if !errors.As(err, &kdErr) {
		t.Fatalf("Expected KeyDerivationError, got %v", err)
	}
}

func TestDerivedKeyNotSerializable(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw", nil)
	defer key.Destroy()

	if _, err := json.Marshal(key); err == nil {
		t.Error("Marshalling a derived key should fail")
	}
	if s := key.String(); !strings.Contains(s, "redacted") {
		t.Errorf("String should redact key material, got %q", s)
	}
}

func TestDestroyAndClone(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw", nil)
	clone := key.Clone()
	defer clone.Destroy()

	key.Destroy()
	if !key.Destroyed() {
		t.Error("Key should be destroyed")
	}
	if clone.Destroyed() {
		t.Error("Clone should survive destroying the original")
	}

	c := NewFieldCipher(nil)
	if _, err := c.Encrypt("x", key); err == nil {
		t.Error("Encrypt with destroyed key should fail")
	}
	if _, err := c.Encrypt("x", clone); err != nil {
		t.Errorf("Encrypt with clone failed: %v", err)
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte("sensitive")
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("Byte %d not cleared", i)
		}
	}
}
