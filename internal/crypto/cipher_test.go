package crypto

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw1", nil)
	defer key.Destroy()
	c := NewFieldCipher(nil)

	for _, plaintext := range []string{"", "abc123", "päss wörd ✓", string(make([]byte, 4096))} {
		env, err := c.Encrypt(plaintext, key)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if env.Version != CurrentVersion {
			t.Errorf("Expected version %d, got %d", CurrentVersion, env.Version)
		}
		if len(env.IV) != IVSize {
			t.Errorf("Expected %d byte IV, got %d", IVSize, len(env.IV))
		}
		if len(env.Ciphertext) != len(plaintext)+TagSize {
			t.Errorf("Unexpected ciphertext length %d", len(env.Ciphertext))
		}

		got, err := c.Decrypt(env, key)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if got != plaintext {
			t.Errorf("Round trip mismatch: got %q, want %q", got, plaintext)
		}
	}
}

func TestIVUniqueness(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw", nil)
	defer key.Destroy()
	c := NewFieldCipher(nil)

	const draws = 10000
	seen := make(map[string]struct{}, draws)
	for i := 0; i < draws; i++ {
		env, err := c.Encrypt("same plaintext", key)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		iv := hex.EncodeToString(env.IV)
		if _, ok := seen[iv]; ok {
			t.Fatalf("IV reused after %d draws", i)
		}
		seen[iv] = struct{}{}
	}
}

func TestTamperDetection(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw", nil)
	defer key.Destroy()
	c := NewFieldCipher(nil)

	env, err := c.Encrypt("attack at dawn", key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for i := range env.Ciphertext {
		for bit := 0; bit < 8; bit++ {
			tampered := env.Clone()
			tampered.Ciphertext[i] ^= 1 << bit
			if got, err := c.Decrypt(tampered, key); !errors.Is(err, ErrDecryption) || got != "" {
				t.Fatalf("Ciphertext byte %d bit %d: got %q, %v", i, bit, got, err)
			}
		}
	}

	for i := range env.IV {
		for bit := 0; bit < 8; bit++ {
			tampered := env.Clone()
			tampered.IV[i] ^= 1 << bit
			if got, err := c.Decrypt(tampered, key); !errors.Is(err, ErrDecryption) || got != "" {
				t.Fatalf("IV byte %d bit %d: got %q, %v", i, bit, got, err)
			}
		}
	}

	truncated := env.Clone()
	truncated.Ciphertext = truncated.Ciphertext[:TagSize-1]
	if _, err := c.Decrypt(truncated, key); !errors.Is(err, ErrDecryption) {
		t.Errorf("Truncated ciphertext: expected ErrDecryption, got %v", err)
	}

	shortIV := env.Clone()
	shortIV.IV = shortIV.IV[:8]
	if _, err := c.Decrypt(shortIV, key); !errors.Is(err, ErrDecryption) {
		t.Errorf("Short IV: expected ErrDecryption, got %v", err)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	d := NewKeyDeriver(nil)
	c := NewFieldCipher(nil)

	right := mustDerive(t, d, "correct", nil)
	defer right.Destroy()
	env, err := c.Encrypt("secret", right)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	wrong := mustDerive(t, d, "wrong", right.Salt())
	defer wrong.Destroy()
	if _, err := c.Decrypt(env, wrong); !errors.Is(err, ErrDecryption) {
		t.Errorf("Expected ErrDecryption, got %v", err)
	}

	otherSalt := mustDerive(t, d, "correct", nil)
	defer otherSalt.Destroy()
	if _, err := c.Decrypt(env, otherSalt); !errors.Is(err, ErrDecryption) {
		t.Errorf("Expected ErrDecryption for salt mismatch, got %v", err)
	}
}

func TestVersionGate(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw", nil)
	defer key.Destroy()
	c := NewFieldCipher(nil)

	env, err := c.Encrypt("x", key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	for _, v := range []int{MaxSupportedVersion + 1, 0, 1} {
		future := env.Clone()
		future.Version = v
		// Garbage ciphertext proves no decryption is attempted.
		future.Ciphertext = nil

		_, err := c.Decrypt(future, key)
		var verr *UnsupportedVersionError
		if !errors.As(err, &verr) {
			t.Fatalf("Version %d: expected UnsupportedVersionError, got %v", v, err)
		}
		if verr.Version != v {
			t.Errorf("Expected version %d in error, got %d", v, verr.Version)
		}
		if !errors.Is(err, ErrUnsupportedVersion) {
			t.Error("Error should match ErrUnsupportedVersion")
		}
	}
}

func TestLegacyVersionRoundTrip(t *testing.T) {
	key, err := NewKeyDeriver(nil).DeriveVersion(VersionLegacy, "pw", nil)
	if err != nil {
		t.Fatalf("DeriveVersion failed: %v", err)
	}
	defer key.Destroy()
	c := NewFieldCipher(nil)

	env, err := c.Encrypt("old", key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if env.Version != VersionLegacy {
		t.Errorf("Expected version %d, got %d", VersionLegacy, env.Version)
	}

	got, err := c.Decrypt(env, key)
	if err != nil || got != "old" {
		t.Fatalf("Decrypt: got %q, %v", got, err)
	}
}

func TestEnvelopeJSONLayout(t *testing.T) {
	key := mustDerive(t, NewKeyDeriver(nil), "pw", nil)
	defer key.Destroy()

	env, err := NewFieldCipher(nil).Encrypt("x", key)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for _, k := range []string{"version", "salt", "iv", "ciphertext"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("Missing %q in %s", k, data)
		}
	}
	if _, ok := raw["iv"].(string); !ok {
		t.Errorf("iv should be a base64 string, got %T", raw["iv"])
	}
}
