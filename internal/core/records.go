package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/illarion/recvault/internal/record"
	"github.com/illarion/recvault/internal/storage"
)

// Record kinds understood by the CLI. Any other kind is stored verbatim.
const (
	KindPassword = "password"
	KindNote     = "note"
	KindOTP      = "otp"
)

// searchFields are matched by Search
var searchFields = []string{"title", "username", "url"}

// OpenResult is the outcome of opening one stored record.
type OpenResult struct {
	Entry  storage.Entry
	Record record.Record
	Err    error
}

// Put seals rec and stores it under id. An empty id allocates a new one.
// Replacing an existing record keeps its creation time.
func (v *Vault) Put(ctx context.Context, id, kind string, rec record.Record, passphrase string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := rec.Validate(); err != nil {
		return "", err
	}

	db, err := v.open()
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := v.verify(db, passphrase); err != nil {
		return "", err
	}

	if id == "" {
		id = uuid.NewString()
	}
	if kind == "" {
		kind = KindPassword
	}

	now := time.Now()
	created := now
	existing, err := db.GetEntry(id)
	if err != nil {
		return "", fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if existing != nil {
		created = existing.Created
	}

	sealed, err := v.codec.Seal(rec, passphrase)
	if err != nil {
		return "", fmt.Errorf("failed to seal record %s: %w", id, err)
	}
	data, err := record.Marshal(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to encode record %s: %w", id, err)
	}

	entry := storage.Entry{
		ID:       id,
		Kind:     kind,
		Fields:   sealed.Names(),
		Version:  sealed.Version,
		Created:  created,
		Modified: now,
		Sealed:   data,
	}
	if err := db.PutEntry(entry); err != nil {
		return "", fmt.Errorf("failed to store record %s: %w", id, err)
	}

	v.log.WithFields(logrus.Fields{"record_id": id, "version": sealed.Version}).Debug("record sealed")
	return id, nil
}

// openEntry decodes and decrypts one stored entry
func (v *Vault) openEntry(e storage.Entry, passphrase string) (record.Record, error) {
	sealed, err := record.Unmarshal(e.Sealed)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", e.ID, err)
	}
	rec, err := v.codec.Open(sealed, nil, passphrase)
	if err != nil {
		return rec, fmt.Errorf("record %s: %w", e.ID, err)
	}
	return rec, nil
}

// Get opens one record. When some fields fail to decrypt, the readable
// fields are returned together with a *record.PartialDecryptionError.
func (v *Vault) Get(ctx context.Context, id, passphrase string) (record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := v.verify(db, passphrase); err != nil {
		return nil, err
	}

	entry, err := db.GetEntry(id)
	if err != nil {
		return nil, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	return v.openEntry(*entry, passphrase)
}

// OpenAll opens every stored record. A failure of one record is reported in
// its result and never aborts the others.
func (v *Vault) OpenAll(ctx context.Context, passphrase string) ([]OpenResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := v.verify(db, passphrase); err != nil {
		return nil, err
	}

	entries, err := db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	results := make([]OpenResult, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		rec, err := v.openEntry(e, passphrase)
		if err != nil {
			log := v.log.WithFields(logrus.Fields{"record_id": e.ID, "version": e.Version})
			var partial *record.PartialDecryptionError
			if errors.As(err, &partial) {
				log.WithField("fields", partial.Fields).Warn("record partially decrypted")
			} else {
				log.WithError(err).Warn("record could not be opened")
			}
		}
		e.Sealed = nil
		results = append(results, OpenResult{Entry: e, Record: rec, Err: err})
	}
	return results, nil
}

// Search opens every record and keeps those whose title, username or url
// contains term, ignoring case. Records that fail to open never match.
func (v *Vault) Search(ctx context.Context, term, passphrase string) ([]OpenResult, error) {
	results, err := v.OpenAll(ctx, passphrase)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(term)
	var matched []OpenResult
	for _, r := range results {
		if matches(r.Record, needle) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func matches(rec record.Record, needle string) bool {
	for _, name := range searchFields {
		value, ok := rec.Get(name)
		if ok && strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

// List returns stored entries without decrypting them (no passphrase required)
func (v *Vault) List(ctx context.Context) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	entries, err := db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	for i := range entries {
		entries[i].Sealed = nil
	}
	return entries, nil
}

// Remove deletes records by ID. Nothing is deleted unless every ID exists.
func (v *Vault) Remove(ctx context.Context, ids []string) error {
	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := db.GetEntry(id)
		if err != nil {
			return fmt.Errorf("failed to read record %s: %w", id, err)
		}
		if entry == nil {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := db.DeleteEntry(id); err != nil {
			return fmt.Errorf("failed to remove record %s: %w", id, err)
		}
		v.log.WithField("record_id", id).Debug("record removed")
	}
	return nil
}
