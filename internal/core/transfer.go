package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/illarion/recvault/internal/crypto"
	"github.com/illarion/recvault/internal/git"
	"github.com/illarion/recvault/internal/record"
	"github.com/illarion/recvault/internal/storage"
)

const exportFormat = "recvault-export/1"

var ErrInvalidBundle = errors.New("invalid export bundle")

// bundle is the export file layout. It holds ciphertext only.
type bundle struct {
	Format   string          `json:"format"`
	VaultID  string          `json:"vault_id,omitempty"`
	Exported time.Time       `json:"exported"`
	Check    json.RawMessage `json:"check"`
	Records  []bundleRecord  `json:"records"`
}

type bundleRecord struct {
	storage.Entry
	Sealed json.RawMessage `json:"sealed"`
}

// Export writes every sealed record to path inside the working directory.
// Nothing is decrypted. An existing file is replaced only with overwrite.
func (v *Vault) Export(ctx context.Context, path string, overwrite bool) (int, error) {
	db, err := v.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	exists, err := v.validator.Exists(path)
	if err != nil {
		return 0, err
	}
	if exists && !overwrite {
		return 0, fmt.Errorf("%w: %s", ErrFileExists, path)
	}

	check, err := db.GetCheck()
	if err != nil {
		return 0, fmt.Errorf("failed to read passphrase check: %w", err)
	}
	vaultID, err := db.GetVaultID()
	if err != nil {
		return 0, fmt.Errorf("failed to read vault ID: %w", err)
	}
	entries, err := db.ListEntries()
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	b := bundle{
		Format:   exportFormat,
		VaultID:  vaultID,
		Exported: time.Now().UTC(),
		Check:    check,
		Records:  make([]bundleRecord, 0, len(entries)),
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		b.Records = append(b.Records, bundleRecord{Entry: e, Sealed: e.Sealed})
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	if err := v.validator.WriteFile(path, data, FilePermSecure); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(b.Records), nil
}

// Import adds the records of an export bundle without decrypting them.
// Records with an existing ID are replaced. Importing into a missing vault
// creates it with the bundle's passphrase check.
func (v *Vault) Import(ctx context.Context, path string) (int, error) {
	data, err := v.validator.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read export: %w", err)
	}

	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if b.Format != exportFormat {
		return 0, fmt.Errorf("%w: unknown format %q", ErrInvalidBundle, b.Format)
	}
	if _, err := record.Unmarshal(b.Check); err != nil {
		return 0, fmt.Errorf("%w: passphrase check: %v", ErrInvalidBundle, err)
	}

	entries := make([]storage.Entry, 0, len(b.Records))
	for _, r := range b.Records {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		sealed, err := record.Unmarshal(r.Sealed)
		if err != nil {
			return 0, fmt.Errorf("%w: record %s: %v", ErrInvalidBundle, r.ID, err)
		}
		if r.ID == "" {
			return 0, fmt.Errorf("%w: record without ID", ErrInvalidBundle)
		}
		e := r.Entry
		e.Sealed = []byte(r.Sealed)
		e.Fields = sealed.Names()
		e.Version = sealed.MinVersion()
		if !crypto.IsSupported(e.Version) {
			v.log.WithFields(logrus.Fields{"record_id": e.ID, "version": e.Version}).
				Warn("imported record uses an unsupported format version")
		}
		entries = append(entries, e)
	}

	db, created, err := v.openOrCreate(b.Check)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if !created {
		current, err := db.GetCheck()
		if err != nil {
			return 0, fmt.Errorf("failed to read passphrase check: %w", err)
		}
		if !bytes.Equal(current, b.Check) {
			v.log.WithField("bundle_vault_id", b.VaultID).
				Warn("bundle was exported from a vault with a different passphrase check; records may need that passphrase")
		}
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := db.PutEntry(e); err != nil {
			return 0, fmt.Errorf("failed to store record %s: %w", e.ID, err)
		}
	}
	return len(entries), nil
}

// openOrCreate opens the store, initializing it with check if missing
func (v *Vault) openOrCreate(check []byte) (storage.Store, bool, error) {
	if _, err := os.Stat(v.path); err == nil {
		db, err := v.open()
		return db, false, err
	}

	db, err := storage.Open(v.path, v.backend)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create store: %w", err)
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, false, fmt.Errorf("failed to initialize store: %w", err)
	}
	if err := db.SetCheck(check); err != nil {
		db.Close()
		return nil, false, fmt.Errorf("failed to store passphrase check: %w", err)
	}
	if _, err := db.GetOrCreateVaultID(); err != nil {
		db.Close()
		return nil, false, fmt.Errorf("failed to create vault ID: %w", err)
	}
	return db, true, nil
}

// WritePlaintext writes rec as a JSON object of field values to path inside
// the working directory and reports how git sees the file.
func (v *Vault) WritePlaintext(path string, rec record.Record) (*git.FileStatus, error) {
	rel, err := v.validator.ValidateAndNormalize(path)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(rec.Map(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	data = append(data, '\n')
	defer crypto.ClearBytes(data)

	if err := v.validator.WriteFile(rel, data, FilePermSecure); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return git.Check(v.validator.Dir(), rel), nil
}

// ReadPlaintext reads a JSON object of field values from path inside the
// working directory.
func (v *Vault) ReadPlaintext(path string) (record.Record, error) {
	data, err := v.validator.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer crypto.ClearBytes(data)

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode %s: expected a JSON object of strings: %w", path, err)
	}
	rec := record.FromMap(m)
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}
