package core

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/illarion/recvault/internal/crypto"
	"github.com/illarion/recvault/internal/git"
	"github.com/illarion/recvault/internal/storage"
)

// StatusInfo contains status information
type StatusInfo struct {
	VaultID        string
	Backend        storage.Backend
	LastModified   time.Time
	RecordCount    int
	Kinds          map[string]int
	Versions       map[int]int
	LegacyCount    int
	FileSize       int64
	Algorithm      string
	KDF            string
	KDFIterations  int
	CurrentVersion int
	GitStatus      *git.FileStatus
}

// Status returns the current status (no passphrase required)
func (v *Vault) Status(ctx context.Context) (*StatusInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(v.path)
	if err != nil {
		return nil, ErrNotInitialized
	}

	db, err := v.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	params, err := crypto.ParamsFor(crypto.CurrentVersion)
	if err != nil {
		return nil, err
	}

	status := &StatusInfo{
		Backend:        v.backend,
		Kinds:          make(map[string]int),
		Versions:       make(map[int]int),
		FileSize:       info.Size(),
		Algorithm:      "AES-256-GCM",
		KDF:            "PBKDF2-HMAC-SHA256",
		KDFIterations:  params.Iterations,
		CurrentVersion: crypto.CurrentVersion,
	}

	// Not critical
	status.VaultID, _ = db.GetVaultID()
	status.LastModified, _ = db.GetModified()

	entries, err := db.ListEntries()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		status.RecordCount++
		status.Kinds[e.Kind]++
		status.Versions[e.Version]++
		if e.Version < crypto.CurrentVersion {
			status.LegacyCount++
		}
	}

	status.GitStatus = git.Check(v.validator.Dir(), VaultFile)
	return status, nil
}
