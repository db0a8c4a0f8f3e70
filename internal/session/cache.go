package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/illarion/recvault/internal/crypto"
)

type entry struct {
	key      *crypto.DerivedKey
	lastUsed time.Time
}

// Cache holds at most one derived key per (passphrase hash, version, salt).
// Concurrent requests for the same entry share one in-flight derivation.
type Cache struct {
	derive func(version int, passphrase string, salt []byte) (*crypto.DerivedKey, error)
	idle   time.Duration
	now    func() time.Time

	mu         sync.Mutex
	entries    map[string]*entry
	generation uint64
	group      singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithIdleTimeout expires entries unused for longer than d. Zero disables
// expiry.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Cache) { c.idle = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache deriving keys with deriver.
func New(deriver *crypto.KeyDeriver, opts ...Option) *Cache {
	c := &Cache{
		derive:  deriver.DeriveVersion,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(passphrase string, salt []byte, version int) string {
	h := sha256.Sum256([]byte(passphrase))
	return fmt.Sprintf("%s:%d:%s", hex.EncodeToString(h[:]), version, hex.EncodeToString(salt))
}

// lookup returns a clone of a live entry. Caller holds mu.
func (c *Cache) lookup(id string) *crypto.DerivedKey {
	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	e.lastUsed = c.now()
	return e.key.Clone()
}

// sweep zeroes and drops entries idle for longer than the timeout. Caller
// holds mu.
func (c *Cache) sweep() {
	if c.idle <= 0 {
		return
	}
	now := c.now()
	for id, e := range c.entries {
		if now.Sub(e.lastUsed) > c.idle {
			e.key.Destroy()
			delete(c.entries, id)
		}
	}
}

// GetOrDerive returns a key for (passphrase, salt, version), deriving it at
// most once while cached. The returned key is a copy owned by the caller.
func (c *Cache) GetOrDerive(passphrase string, salt []byte, version int) (*crypto.DerivedKey, error) {
	if salt == nil {
		return nil, &crypto.KeyDerivationError{Reason: "cache requires an existing salt"}
	}
	id := cacheKey(passphrase, salt, version)

	c.mu.Lock()
	c.sweep()
	if key := c.lookup(id); key != nil {
		c.mu.Unlock()
		return key, nil
	}
	gen := c.generation
	c.mu.Unlock()

	// The derived key goes straight into the cache; waiters clone it from
	// there under mu, so no copy outlives the entry unzeroed.
	_, err, _ := c.group.Do(id, func() (any, error) {
		key, err := c.derive(version, passphrase, salt)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			key.Destroy()
			return nil, nil
		}
		c.entries[id] = &entry{key: key, lastUsed: c.now()}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	key := c.lookup(id)
	c.mu.Unlock()
	if key != nil {
		return key, nil
	}
	// Invalidated while deriving: the caller gets a private, uncached key.
	return c.derive(version, passphrase, salt)
}

// Key implements record.KeySource.
func (c *Cache) Key(passphrase string, salt []byte, version int) (*crypto.DerivedKey, error) {
	return c.GetOrDerive(passphrase, salt, version)
}

// Invalidate zeroes and drops every cached key. Call it on logout,
// passphrase rotation or detected tampering.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		e.key.Destroy()
		delete(c.entries, id)
	}
	c.generation++
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweep()
	return len(c.entries)
}
