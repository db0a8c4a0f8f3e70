package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // Format version, timestamps, check blob - unencrypted metadata
	IndexBucket  = []byte("index")  // Public record list for ls/status - unencrypted
	BlobsBucket  = []byte("blobs")  // Sealed record JSON
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigVaultID  = []byte("vault_id")
	ConfigCheck    = []byte("check")
)

// BoltStore provides BBolt-based storage for recvault
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens or creates a BBolt database
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Initialize creates the bucket structure for a new vault
func (s *BoltStore) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, BlobsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *BoltStore) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// requireBuckets fails instead of letting writes hit a nil bucket
func requireBuckets(tx *bolt.Tx) error {
	for _, bucket := range [][]byte{ConfigBucket, IndexBucket, BlobsBucket} {
		if tx.Bucket(bucket) == nil {
			return fmt.Errorf("bucket %s not found", bucket)
		}
	}
	return nil
}

func putEntry(tx *bolt.Tx, e Entry) error {
	if err := requireBuckets(tx); err != nil {
		return err
	}
	index := tx.Bucket(IndexBucket)
	blobs := tx.Bucket(BlobsBucket)

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := index.Put([]byte(e.ID), data); err != nil {
		return err
	}
	return blobs.Put([]byte(e.ID), e.Sealed)
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// PutEntry stores an entry and its sealed blob in one transaction
func (s *BoltStore) PutEntry(e Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := putEntry(tx, e); err != nil {
			return err
		}
		return touch(tx)
	})
}

// GetEntry returns a single entry with its sealed blob
func (s *BoltStore) GetEntry(id string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		data := index.Get([]byte(id))
		if data == nil {
			return nil // Record not in vault
		}
		entry = &Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return err
		}
		// Make a copy since the slice is only valid during the transaction
		entry.Sealed = append([]byte(nil), tx.Bucket(BlobsBucket).Get([]byte(id))...)
		return nil
	})
	return entry, err
}

// DeleteEntry removes an entry from the index and blobs
func (s *BoltStore) DeleteEntry(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := requireBuckets(tx); err != nil {
			return err
		}
		if err := tx.Bucket(IndexBucket).Delete([]byte(id)); err != nil {
			return err
		}
		if err := tx.Bucket(BlobsBucket).Delete([]byte(id)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// ListEntries returns every entry; bbolt iterates keys in byte order
func (s *BoltStore) ListEntries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return fmt.Errorf("index bucket not found")
		}
		blobs := tx.Bucket(BlobsBucket)
		return index.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entry.Sealed = append([]byte(nil), blobs.Get(k)...)
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// ReplaceAll rewrites the check blob and every given entry in one transaction
func (s *BoltStore) ReplaceAll(check []byte, entries []Entry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := requireBuckets(tx); err != nil {
			return err
		}
		if err := tx.Bucket(ConfigBucket).Put(ConfigCheck, check); err != nil {
			return err
		}
		for _, e := range entries {
			if err := putEntry(tx, e); err != nil {
				return fmt.Errorf("failed to store record %s: %w", e.ID, err)
			}
		}
		return touch(tx)
	})
}

// SetCheck stores the sealed passphrase verification record
func (s *BoltStore) SetCheck(check []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := requireBuckets(tx); err != nil {
			return err
		}
		return tx.Bucket(ConfigBucket).Put(ConfigCheck, check)
	})
}

// GetCheck retrieves the sealed passphrase verification record
func (s *BoltStore) GetCheck() ([]byte, error) {
	var check []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		check = config.Get(ConfigCheck)
		if check == nil {
			return ErrNoCheck
		}
		check = append([]byte(nil), check...)
		return nil
	})
	return check, err
}

// GetModified retrieves the last modified timestamp
func (s *BoltStore) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *BoltStore) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *BoltStore) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	vaultID = uuid.NewString()
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := requireBuckets(tx); err != nil {
			return err
		}
		return tx.Bucket(ConfigBucket).Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}
	return vaultID, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after deleting records or rotating the passphrase.
func (s *BoltStore) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}
	return nil
}
