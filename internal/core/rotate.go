package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/illarion/recvault/internal/crypto"
	"github.com/illarion/recvault/internal/record"
	"github.com/illarion/recvault/internal/storage"
)

// reseal opens e with oldPassphrase and seals it again under newPassphrase
func (v *Vault) reseal(e storage.Entry, oldPassphrase, newPassphrase string) (storage.Entry, error) {
	sealed, err := record.Unmarshal(e.Sealed)
	if err != nil {
		return e, fmt.Errorf("record %s: %w", e.ID, err)
	}
	resealed, err := v.codec.Reseal(sealed, oldPassphrase, newPassphrase)
	if err != nil {
		return e, fmt.Errorf("failed to reseal record %s: %w", e.ID, err)
	}
	data, err := record.Marshal(resealed)
	if err != nil {
		return e, fmt.Errorf("failed to encode record %s: %w", e.ID, err)
	}

	e.Sealed = data
	e.Version = resealed.Version
	e.Fields = resealed.Names()
	e.Modified = time.Now()
	return e, nil
}

// ChangePassword reseals every record and the verification record under
// newPassphrase with fresh salts. The store is written only after every
// record resealed successfully.
func (v *Vault) ChangePassword(ctx context.Context, currentPassphrase, newPassphrase string) error {
	if newPassphrase == "" {
		return ErrPasswordRequired
	}

	db, err := v.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := v.verify(db, currentPassphrase); err != nil {
		return err
	}

	entries, err := db.ListEntries()
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	resealed := make([]storage.Entry, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		ne, err := v.reseal(e, currentPassphrase, newPassphrase)
		if err != nil {
			return err
		}
		resealed = append(resealed, ne)
	}

	check, err := v.sealCheck(newPassphrase)
	if err != nil {
		return err
	}
	if err := db.ReplaceAll(check, resealed); err != nil {
		return fmt.Errorf("failed to store resealed records: %w", err)
	}

	// Keys of the old passphrase must not outlive the rotation
	v.cache.Invalidate()
	v.log.WithField("records", len(resealed)).Info("passphrase changed")
	return nil
}

// Migrate reseals records written in an older format version under the
// current one. It returns the number of records migrated.
func (v *Vault) Migrate(ctx context.Context, passphrase string) (int, error) {
	db, err := v.open()
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if err := v.verify(db, passphrase); err != nil {
		return 0, err
	}

	entries, err := db.ListEntries()
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	migrated := 0
	failures := &MigrationError{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return migrated, err
		}

		sealed, err := record.Unmarshal(e.Sealed)
		if err != nil {
			failures.add(e.ID, fmt.Errorf("record %s: %w", e.ID, err))
			continue
		}
		if sealed.MinVersion() >= crypto.CurrentVersion {
			continue
		}

		ne, err := v.reseal(e, passphrase, passphrase)
		if err == nil {
			if err = db.PutEntry(ne); err != nil {
				err = fmt.Errorf("failed to store record %s: %w", e.ID, err)
			}
		}
		if err != nil {
			failures.add(e.ID, err)
			v.log.WithError(err).WithField("record_id", e.ID).Warn("record not migrated")
			continue
		}
		migrated++
		v.log.WithFields(logrus.Fields{"record_id": e.ID, "version": sealed.MinVersion()}).Info("record migrated")
	}

	// An older check record is upgraded too
	data, err := db.GetCheck()
	if err != nil {
		return migrated, fmt.Errorf("failed to read passphrase check: %w", err)
	}
	check, err := record.Unmarshal(data)
	if err != nil {
		return migrated, fmt.Errorf("failed to decode passphrase check: %w", err)
	}
	if check.MinVersion() < crypto.CurrentVersion {
		newCheck, err := v.sealCheck(passphrase)
		if err != nil {
			return migrated, err
		}
		if err := db.SetCheck(newCheck); err != nil {
			return migrated, fmt.Errorf("failed to store passphrase check: %w", err)
		}
	}

	if len(failures.IDs) > 0 {
		return migrated, failures
	}
	return migrated, nil
}

// MigrationError lists the records Migrate left at their old version.
// Every other record was still processed.
type MigrationError struct {
	IDs  []string
	Errs []error
}

func (e *MigrationError) add(id string, err error) {
	e.IDs = append(e.IDs, id)
	e.Errs = append(e.Errs, err)
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("failed to migrate %d record(s): %s", len(e.IDs), strings.Join(e.IDs, ", "))
}

func (e *MigrationError) Unwrap() []error {
	return e.Errs
}
