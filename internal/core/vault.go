package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/illarion/recvault/internal/crypto"
	"github.com/illarion/recvault/internal/record"
	"github.com/illarion/recvault/internal/security"
	"github.com/illarion/recvault/internal/session"
	"github.com/illarion/recvault/internal/storage"
)

const (
	VaultFile           = ".recvault"
	DirPermSecure       = 0700 // Directory: owner rwx only
	FilePermSecure      = 0600 // File: owner rw only
	passwordCheckField  = "check"
	passwordCheckString = "recvault-passphrase-check"
)

var (
	ErrNotInitialized   = errors.New("recvault not initialized")
	ErrAlreadyExists    = errors.New("recvault already exists")
	ErrWrongPassword    = errors.New("wrong passphrase")
	ErrPasswordRequired = errors.New("passphrase required")
	ErrRecordNotFound   = errors.New("record not found")
	ErrFileExists       = errors.New("file already exists")
)

// Vault manages sealed records in a local store. One Vault keeps a session
// key cache for its lifetime so repeated operations derive each key once.
type Vault struct {
	path      string
	backend   storage.Backend
	log       logrus.FieldLogger
	idle      time.Duration
	rand      crypto.RandomSource
	cache     *session.Cache
	codec     *record.Codec
	validator *security.PathValidator
}

// Option configures a Vault.
type Option func(*Vault)

// WithBackend selects the store backend for a new vault. An existing vault
// file is always opened with the backend it was created with.
func WithBackend(b storage.Backend) Option {
	return func(v *Vault) { v.backend = b }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(v *Vault) { v.log = log }
}

// WithIdleTimeout expires cached session keys unused for longer than d.
func WithIdleTimeout(d time.Duration) Option {
	return func(v *Vault) { v.idle = d }
}

// WithRandom replaces the entropy source for salts and IVs.
func WithRandom(r crypto.RandomSource) Option {
	return func(v *Vault) { v.rand = r }
}

func defaultLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	return log
}

// New creates a Vault for the vault file in dir
func New(dir string, opts ...Option) (*Vault, error) {
	validator, err := security.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize path validator: %w", err)
	}

	v := &Vault{
		path:      filepath.Join(validator.Dir(), VaultFile),
		backend:   storage.BackendBolt,
		validator: validator,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = defaultLogger()
	}

	if detected, err := storage.DetectBackend(v.path); err == nil {
		if detected != v.backend {
			v.log.WithFields(logrus.Fields{"requested": v.backend, "detected": detected}).
				Debug("using backend of existing vault file")
		}
		v.backend = detected
	}

	deriver := crypto.NewKeyDeriver(v.rand)
	v.cache = session.New(deriver, session.WithIdleTimeout(v.idle))
	v.codec = record.NewCodec(record.WithRandom(v.rand), record.WithKeySource(v.cache))
	return v, nil
}

// Close drops all cached keys and releases resources held by the Vault
func (v *Vault) Close() error {
	v.cache.Invalidate()
	if v.validator != nil {
		return v.validator.Close()
	}
	return nil
}

// Path returns the vault file path.
func (v *Vault) Path() string {
	return v.path
}

// Backend returns the store backend in use.
func (v *Vault) Backend() storage.Backend {
	return v.backend
}

// open opens the existing store
func (v *Vault) open() (storage.Store, error) {
	if _, err := os.Stat(v.path); err != nil {
		return nil, ErrNotInitialized
	}
	db, err := storage.Open(v.path, v.backend)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return db, nil
}

// sealCheck seals the passphrase verification record
func (v *Vault) sealCheck(passphrase string) ([]byte, error) {
	sealed, err := v.codec.Seal(record.Record{{Name: passwordCheckField, Value: passwordCheckString}}, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to seal passphrase check: %w", err)
	}
	return record.Marshal(sealed)
}

// Init creates a new vault file
func (v *Vault) Init(passphrase string) error {
	if passphrase == "" {
		return ErrPasswordRequired
	}
	if _, err := os.Stat(v.path); err == nil {
		return ErrAlreadyExists
	}

	check, err := v.sealCheck(passphrase)
	if err != nil {
		return err
	}

	db, err := storage.Open(v.path, v.backend)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := db.SetCheck(check); err != nil {
		return fmt.Errorf("failed to store passphrase check: %w", err)
	}
	if _, err := db.GetOrCreateVaultID(); err != nil {
		return fmt.Errorf("failed to create vault ID: %w", err)
	}

	v.log.WithField("backend", v.backend).Debug("vault initialized")
	return nil
}

// verify checks passphrase against the verification record of db
func (v *Vault) verify(db storage.Store, passphrase string) error {
	if passphrase == "" {
		return ErrPasswordRequired
	}
	data, err := db.GetCheck()
	if err != nil {
		if errors.Is(err, storage.ErrNoCheck) {
			return ErrNotInitialized
		}
		return fmt.Errorf("failed to read passphrase check: %w", err)
	}
	sealed, err := record.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("failed to decode passphrase check: %w", err)
	}

	rec, err := v.codec.Open(sealed, nil, passphrase)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryption) {
			return ErrWrongPassword
		}
		return err
	}
	value, _ := rec.Get(passwordCheckField)
	if !crypto.ConstantTimeCompare([]byte(value), []byte(passwordCheckString)) {
		return ErrWrongPassword
	}
	return nil
}

// VerifyPassword checks if the passphrase is correct for this vault
func (v *Vault) VerifyPassword(passphrase string) error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return v.verify(db, passphrase)
}

// Compact compacts the store to reclaim unused space.
// This is useful after removing records.
func (v *Vault) Compact() error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Compact()
}

// CachedKeys reports how many derived keys the session currently holds.
func (v *Vault) CachedKeys() int {
	return v.cache.Len()
}
