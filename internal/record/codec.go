package record

import (
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/illarion/recvault/internal/crypto"
)

// KeySource supplies keys for opening existing records. The caller owns the
// returned key and destroys it when done.
type KeySource interface {
	Key(passphrase string, salt []byte, version int) (*crypto.DerivedKey, error)
}

type deriverSource struct {
	deriver *crypto.KeyDeriver
}

func (s deriverSource) Key(passphrase string, salt []byte, version int) (*crypto.DerivedKey, error) {
	return s.deriver.DeriveVersion(version, passphrase, salt)
}

// Codec maps records to sealed records and back.
type Codec struct {
	rand    crypto.RandomSource
	deriver *crypto.KeyDeriver
	cipher  *crypto.FieldCipher
	keys    KeySource
	limit   int
}

// Option configures a Codec.
type Option func(*Codec)

// WithRandom sets the entropy source for salts and IVs.
func WithRandom(r crypto.RandomSource) Option {
	return func(c *Codec) { c.rand = r }
}

// WithKeySource routes key derivation for Open through ks, typically a
// session cache.
func WithKeySource(ks KeySource) Option {
	return func(c *Codec) { c.keys = ks }
}

// WithConcurrency bounds the number of fields processed in parallel.
func WithConcurrency(n int) Option {
	return func(c *Codec) {
		if n > 0 {
			c.limit = n
		}
	}
}

// NewCodec creates a codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{limit: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(c)
	}
	c.deriver = crypto.NewKeyDeriver(c.rand)
	c.cipher = crypto.NewFieldCipher(c.rand)
	if c.keys == nil {
		c.keys = deriverSource{deriver: c.deriver}
	}
	return c
}

// Seal derives one key with a fresh salt and encrypts every field under it.
// The salt is returned in the sealed record.
func (c *Codec) Seal(rec Record, passphrase string) (*SealedRecord, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	// Fresh salts never repeat, so this derivation bypasses the key source.
	key, err := c.deriver.Derive(passphrase, nil)
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	fields := make([]SealedField, len(rec))
	g := new(errgroup.Group)
	g.SetLimit(c.limit)
	for i, f := range rec {
		g.Go(func() error {
			env, err := c.cipher.Encrypt(f.Value, key)
			if err != nil {
				return fmt.Errorf("failed to encrypt field %s: %w", f.Name, err)
			}
			fields[i] = SealedField{Name: f.Name, Envelope: env}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SealedRecord{
		Version: key.Version(),
		Salt:    key.Salt(),
		Fields:  fields,
	}, nil
}

// recordSalt picks the salt an envelope was sealed with. Current-layout
// envelopes use the record salt; legacy envelopes carry their own.
func recordSalt(env crypto.Envelope, salt []byte) []byte {
	if env.Version >= crypto.VersionRecordSalt && salt != nil {
		return salt
	}
	if env.Salt != nil {
		return env.Salt
	}
	return salt
}

type keyGroup struct {
	version int
	salt    []byte
	key     *crypto.DerivedKey
	err     error
}

// Open decrypts every field of sealed. A non-nil salt overrides
// sealed.Salt. When only some fields fail, the opened fields are returned
// with a *PartialDecryptionError; when all fail, the first cause is returned,
// preferring an unsupported version.
func (c *Codec) Open(sealed *SealedRecord, salt []byte, passphrase string) (Record, error) {
	if sealed == nil {
		return nil, errors.New("nil sealed record")
	}
	if salt == nil {
		salt = sealed.Salt
	}

	n := len(sealed.Fields)
	envs := make([]crypto.Envelope, n)
	slots := make([]*keyGroup, n)
	errs := make([]error, n)
	groups := make(map[string]*keyGroup)
	var order []*keyGroup

	for i, f := range sealed.Fields {
		env := f.Envelope
		if !crypto.IsSupported(env.Version) {
			errs[i] = &crypto.UnsupportedVersionError{Version: env.Version}
			continue
		}
		env.Salt = recordSalt(env, salt)
		if env.Salt == nil {
			errs[i] = &crypto.KeyDerivationError{Reason: "missing salt"}
			continue
		}
		envs[i] = env

		id := fmt.Sprintf("%d:%x", env.Version, env.Salt)
		grp, ok := groups[id]
		if !ok {
			grp = &keyGroup{version: env.Version, salt: env.Salt}
			groups[id] = grp
			order = append(order, grp)
		}
		slots[i] = grp
	}

	// Derivation is the serialization point: every key exists before any
	// field is decrypted.
	for _, grp := range order {
		grp.key, grp.err = c.keys.Key(passphrase, grp.salt, grp.version)
	}
	defer func() {
		for _, grp := range order {
			grp.key.Destroy()
		}
	}()

	values := make([]string, n)
	g := new(errgroup.Group)
	g.SetLimit(c.limit)
	for i := range sealed.Fields {
		grp := slots[i]
		if grp == nil {
			continue
		}
		if grp.err != nil {
			errs[i] = grp.err
			continue
		}
		g.Go(func() error {
			values[i], errs[i] = c.cipher.Decrypt(envs[i], grp.key)
			return nil
		})
	}
	_ = g.Wait()

	out := make(Record, 0, n)
	var partial *PartialDecryptionError
	var first error
	for i, f := range sealed.Fields {
		if errs[i] == nil {
			out = append(out, Field{Name: f.Name, Value: values[i]})
			continue
		}
		if partial == nil {
			partial = &PartialDecryptionError{Causes: make(map[string]error)}
			first = errs[i]
		}
		// A field needing migration outranks one that failed to decrypt.
		if errors.Is(errs[i], crypto.ErrUnsupportedVersion) && !errors.Is(first, crypto.ErrUnsupportedVersion) {
			first = errs[i]
		}
		partial.Fields = append(partial.Fields, f.Name)
		partial.Causes[f.Name] = errs[i]
	}

	switch {
	case partial == nil:
		return out, nil
	case len(out) == 0:
		return nil, fmt.Errorf("failed to open record: %w", first)
	default:
		return out, partial
	}
}

// Reseal opens sealed with oldPassphrase and seals the result under
// newPassphrase with a fresh salt and the current format version. Any field
// failure aborts.
func (c *Codec) Reseal(sealed *SealedRecord, oldPassphrase, newPassphrase string) (*SealedRecord, error) {
	rec, err := c.Open(sealed, nil, oldPassphrase)
	if err != nil {
		return nil, err
	}
	return c.Seal(rec, newPassphrase)
}
