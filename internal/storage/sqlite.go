package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	id       TEXT PRIMARY KEY,
	kind     TEXT NOT NULL,
	fields   TEXT NOT NULL,
	version  INTEGER NOT NULL,
	created  INTEGER NOT NULL,
	modified INTEGER NOT NULL,
	sealed   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
`

// SQLiteStore provides SQLite-based storage for recvault
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates a SQLite database
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps the file lock simple.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Initialize creates the schema for a new vault
func (s *SQLiteStore) Initialize() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	now := strconv.FormatInt(time.Now().UnixNano(), 10)
	for key, value := range map[string]string{"version": "1", "created": now, "modified": now} {
		if err := setConfig(tx, key, []byte(value)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// IsInitialized checks if the schema exists and carries a version
func (s *SQLiteStore) IsInitialized() (bool, error) {
	var name string
	err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'config'`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	_, err = s.getConfig("version")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setConfig(db execer, key string, value []byte) error {
	_, err := db.Exec(`INSERT INTO config (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteStore) getConfig(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	return value, err
}

func touchSQLite(db execer) error {
	return setConfig(db, "modified", []byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
}

func putRecord(db execer, e Entry) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
	INSERT INTO records (id, kind, fields, version, created, modified, sealed)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		fields = excluded.fields,
		version = excluded.version,
		created = excluded.created,
		modified = excluded.modified,
		sealed = excluded.sealed
	`, e.ID, e.Kind, string(fields), e.Version, e.Created.UnixNano(), e.Modified.UnixNano(), e.Sealed)
	return err
}

// PutEntry inserts or replaces an entry
func (s *SQLiteStore) PutEntry(e Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := putRecord(tx, e); err != nil {
		return fmt.Errorf("store record %s: %w", e.ID, err)
	}
	if err := touchSQLite(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	var e Entry
	var fields string
	var created, modified int64
	if err := row.Scan(&e.ID, &e.Kind, &fields, &e.Version, &created, &modified, &e.Sealed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &e.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", e.ID, err)
	}
	e.Created = time.Unix(0, created)
	e.Modified = time.Unix(0, modified)
	return &e, nil
}

// GetEntry returns a single entry, or nil if absent
func (s *SQLiteStore) GetEntry(id string) (*Entry, error) {
	row := s.db.QueryRow(`SELECT id, kind, fields, version, created, modified, sealed
	          FROM records WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// DeleteEntry removes an entry
func (s *SQLiteStore) DeleteEntry(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records WHERE id = ?`, id); err != nil {
		return err
	}
	if err := touchSQLite(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ListEntries returns all entries sorted by ID
func (s *SQLiteStore) ListEntries() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, kind, fields, version, created, modified, sealed
	          FROM records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// ReplaceAll rewrites the check blob and every given entry in one transaction
func (s *SQLiteStore) ReplaceAll(check []byte, entries []Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := setConfig(tx, "check", check); err != nil {
		return err
	}
	for _, e := range entries {
		if err := putRecord(tx, e); err != nil {
			return fmt.Errorf("store record %s: %w", e.ID, err)
		}
	}
	if err := touchSQLite(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// SetCheck stores the sealed passphrase verification record
func (s *SQLiteStore) SetCheck(check []byte) error {
	return setConfig(s.db, "check", check)
}

// GetCheck retrieves the sealed passphrase verification record
func (s *SQLiteStore) GetCheck() ([]byte, error) {
	check, err := s.getConfig("check")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCheck
	}
	return check, err
}

// GetModified retrieves the last modified timestamp
func (s *SQLiteStore) GetModified() (time.Time, error) {
	value, err := s.getConfig("modified")
	if err != nil {
		return time.Time{}, fmt.Errorf("modified time not found: %w", err)
	}
	n, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid modified time: %w", err)
	}
	return time.Unix(0, n), nil
}

// GetVaultID retrieves the vault ID
func (s *SQLiteStore) GetVaultID() (string, error) {
	value, err := s.getConfig("vault_id")
	if err != nil {
		return "", fmt.Errorf("vault_id not found: %w", err)
	}
	return string(value), nil
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *SQLiteStore) GetOrCreateVaultID() (string, error) {
	if vaultID, err := s.GetVaultID(); err == nil {
		return vaultID, nil
	}
	vaultID := uuid.NewString()
	if err := setConfig(s.db, "vault_id", []byte(vaultID)); err != nil {
		return "", err
	}
	return vaultID, nil
}

// Compact rebuilds the database file to reclaim unused pages
func (s *SQLiteStore) Compact() error {
	if _, err := s.db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	return nil
}
