package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/illarion/recvault/internal/crypto"
)

func TestMarshalStoresSaltOnce(t *testing.T) {
	c := NewCodec()
	sealed := mustSeal(t, c, Record{{Name: "title", Value: "Gmail"}, {Name: "secret", Value: "abc123"}}, "pw1")

	data, err := Marshal(sealed)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	salt := base64.StdEncoding.EncodeToString(sealed.Salt)
	if n := strings.Count(string(data), salt); n != 1 {
		t.Errorf("Expected salt once in %s, found %d times", data, n)
	}

	decoded, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Version != crypto.CurrentVersion {
		t.Errorf("Expected version %d, got %d", crypto.CurrentVersion, decoded.Version)
	}
	for i, f := range decoded.Fields {
		if !f.Envelope.Equal(sealed.Fields[i].Envelope) {
			t.Errorf("Field %s envelope changed across marshal", f.Name)
		}
	}

	got, err := c.Open(decoded, nil, "pw1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if v, _ := got.Get("secret"); v != "abc123" {
		t.Errorf("Expected abc123, got %q", v)
	}
}

// legacyJSON builds a record the way the earlier web client stored it: no
// record-level version or salt, salt repeated in every envelope.
func legacyJSON(t *testing.T, passphrase string, fields map[string]string) []byte {
	t.Helper()
	key, err := crypto.NewKeyDeriver(nil).DeriveVersion(crypto.VersionLegacy, passphrase, nil)
	if err != nil {
		t.Fatalf("DeriveVersion failed: %v", err)
	}
	defer key.Destroy()

	fc := crypto.NewFieldCipher(nil)
	var parts []string
	for _, f := range FromMap(fields) {
		env, err := fc.Encrypt(f.Value, key)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		envJSON, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		parts = append(parts, fmt.Sprintf(`{"name":%q,"envelope":%s}`, f.Name, envJSON))
	}
	return []byte(`{"fields":[` + strings.Join(parts, ",") + `]}`)
}

func TestOpenLegacyLayout(t *testing.T) {
	data := legacyJSON(t, "pw", map[string]string{"title": "Bank", "password": "s3cret"})

	sealed, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if sealed.Version != crypto.VersionLegacy {
		t.Errorf("Expected legacy version, got %d", sealed.Version)
	}
	if len(sealed.Salt) != crypto.SaltSize {
		t.Errorf("Expected shared salt to be recovered, got %d bytes", len(sealed.Salt))
	}

	src := &countingSource{deriver: crypto.NewKeyDeriver(nil)}
	c := NewCodec(WithKeySource(src))
	got, err := c.Open(sealed, nil, "pw")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if v, _ := got.Get("password"); v != "s3cret" {
		t.Errorf("Expected s3cret, got %q", v)
	}
	if src.calls != 1 {
		t.Errorf("Shared legacy salt should derive once, got %d", src.calls)
	}

	migrated, err := c.Reseal(sealed, "pw", "pw")
	if err != nil {
		t.Fatalf("Reseal failed: %v", err)
	}
	if migrated.Version != crypto.CurrentVersion || migrated.MinVersion() != crypto.CurrentVersion {
		t.Errorf("Expected migration to version %d", crypto.CurrentVersion)
	}
}

func TestUnmarshalRejectsBadRecords(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"empty name", `{"fields":[{"name":"","envelope":{"version":3,"iv":"","ciphertext":""}}]}`},
		{"duplicate name", `{"fields":[{"name":"a","envelope":{"version":3}},{"name":"a","envelope":{"version":3}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.data)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
