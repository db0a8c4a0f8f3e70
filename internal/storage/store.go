package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrNoCheck        = errors.New("passphrase check not found")
)

// Backend selects a Store implementation.
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendSQLite Backend = "sqlite"
)

// ParseBackend maps a configuration string to a Backend. Empty means bolt.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bolt", "bbolt":
		return BackendBolt, nil
	case "sqlite", "sqlite3":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownBackend, s)
	}
}

// Entry is one stored record. Sealed holds the output of record.Marshal.
type Entry struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Fields   []string  `json:"fields"`
	Version  int       `json:"version"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Sealed   []byte    `json:"-"`
}

// Store is the record store collaborator.
type Store interface {
	// Initialize creates the schema for a new vault.
	Initialize() error
	IsInitialized() (bool, error)

	// PutEntry inserts or replaces an entry.
	PutEntry(e Entry) error
	// GetEntry returns nil when the ID is unknown.
	GetEntry(id string) (*Entry, error)
	DeleteEntry(id string) error
	// ListEntries returns all entries sorted by ID.
	ListEntries() ([]Entry, error)
	// ReplaceAll atomically stores a new check blob and entries.
	ReplaceAll(check []byte, entries []Entry) error

	SetCheck(check []byte) error
	GetCheck() ([]byte, error)

	GetModified() (time.Time, error)
	GetVaultID() (string, error)
	GetOrCreateVaultID() (string, error)

	// Compact reclaims unused space.
	Compact() error
	Close() error
}

// Open opens or creates a store at path.
func Open(path string, backend Backend) (Store, error) {
	switch backend {
	case BackendBolt, "":
		return OpenBolt(path)
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}

var sqliteMagic = []byte("SQLite format 3\x00")

// DetectBackend inspects the header of an existing store file. A missing
// file returns os.ErrNotExist.
func DetectBackend(path string) (Backend, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		// bbolt files are always at least two pages long
		return "", fmt.Errorf("failed to read store header: %w", err)
	}
	if bytes.Equal(header, sqliteMagic) {
		return BackendSQLite, nil
	}
	return BackendBolt, nil
}
