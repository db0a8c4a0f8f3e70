package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// VersionLegacy is the layout written by the earlier web client: PBKDF2
	// with 100k iterations and the salt repeated in every field envelope.
	VersionLegacy = 2
	// VersionRecordSalt stores the salt once per record and raises the
	// iteration count to the OWASP minimum.
	VersionRecordSalt = 3

	CurrentVersion      = VersionRecordSalt
	MinSupportedVersion = VersionLegacy
	MaxSupportedVersion = VersionRecordSalt
)

// Params are the KDF parameters bound to one envelope format version.
// They must never change for an existing version; raise the iteration count
// by adding a new version instead.
type Params struct {
	Iterations int
	SaltSize   int
}

var versionParams = map[int]Params{
	VersionLegacy:     {Iterations: 100000, SaltSize: SaltSize},
	VersionRecordSalt: {Iterations: 210000, SaltSize: SaltSize},
}

// ParamsFor returns the KDF parameters for a format version.
func ParamsFor(version int) (Params, error) {
	p, ok := versionParams[version]
	if !ok {
		return Params{}, &UnsupportedVersionError{Version: version}
	}
	return p, nil
}

// IsSupported reports whether this build can read the given format version.
func IsSupported(version int) bool {
	_, ok := versionParams[version]
	return ok
}

// DerivedKey is a symmetric key together with the salt and format version
// that produced it. The key bytes never leave the package.
type DerivedKey struct {
	key     []byte
	salt    []byte
	version int
}

// Salt returns a copy of the salt the key was derived with.
func (k *DerivedKey) Salt() []byte {
	return append([]byte(nil), k.salt...)
}

// Version returns the format version whose parameters produced the key.
func (k *DerivedKey) Version() int {
	return k.version
}

// Destroyed reports whether Destroy has been called.
func (k *DerivedKey) Destroyed() bool {
	return k.key == nil
}

// Equal compares key material in constant time.
func (k *DerivedKey) Equal(other *DerivedKey) bool {
	if k == nil || other == nil || k.Destroyed() || other.Destroyed() {
		return false
	}
	return ConstantTimeCompare(k.key, other.key)
}

// Clone returns an independently owned copy of the key.
func (k *DerivedKey) Clone() *DerivedKey {
	return &DerivedKey{
		key:     append([]byte(nil), k.key...),
		salt:    append([]byte(nil), k.salt...),
		version: k.version,
	}
}

// Destroy clears the key material from memory
func (k *DerivedKey) Destroy() {
	if k == nil {
		return
	}
	ClearBytes(k.key)
	k.key = nil
}

func (k *DerivedKey) String() string {
	return fmt.Sprintf("DerivedKey(v%d, redacted)", k.version)
}

func (k *DerivedKey) GoString() string {
	return k.String()
}

// MarshalJSON refuses to serialize key material.
func (k *DerivedKey) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("derived keys cannot be serialized")
}

// KeyDeriver turns a passphrase and salt into a DerivedKey.
type KeyDeriver struct {
	rand RandomSource
}

// NewKeyDeriver creates a deriver drawing fresh salts from r.
// A nil r means DefaultRandom.
func NewKeyDeriver(r RandomSource) *KeyDeriver {
	if r == nil {
		r = DefaultRandom()
	}
	return &KeyDeriver{rand: r}
}

// Derive derives a key using the current format version. A nil salt
// generates a fresh one (new record); a non-nil salt is reused (existing
// record).
func (d *KeyDeriver) Derive(passphrase string, salt []byte) (*DerivedKey, error) {
	return d.DeriveVersion(CurrentVersion, passphrase, salt)
}

// DeriveVersion derives a key with the parameters of the given format
// version.
func (d *KeyDeriver) DeriveVersion(version int, passphrase string, salt []byte) (*DerivedKey, error) {
	params, err := ParamsFor(version)
	if err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, &KeyDerivationError{Reason: "empty passphrase"}
	}

	if salt == nil {
		salt, err = GenerateRandom(d.rand, params.SaltSize)
		if err != nil {
			return nil, &KeyDerivationError{Reason: "cannot generate salt", Err: err}
		}
	} else {
		if len(salt) != params.SaltSize {
			return nil, &KeyDerivationError{Reason: fmt.Sprintf("invalid salt length %d; want %d", len(salt), params.SaltSize)}
		}
		salt = append([]byte(nil), salt...)
	}

	pass := []byte(passphrase)
	defer ClearBytes(pass)

	return &DerivedKey{
		key:     pbkdf2.Key(pass, salt, params.Iterations, KeySize, sha256.New),
		salt:    salt,
		version: version,
	}, nil
}
