package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/credstorage/go-credential-server/crypto"
)

// CipherCache keeps parsed EnvelopeCipher instances keyed by identity so the
// RSA public key is not re-parsed on every request. Capacity bound, LRU
// evicted. Eviction is harmless: the cipher is rebuilt from the identity
// itself (the identity IS the base64 public key), so entries never need
// explicit invalidation.
type CipherCache struct {
	ciphers *lru.Cache[string, *crypto.EnvelopeCipher]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

func NewCipherCache(capacity int) (*CipherCache, error) {
	c := &CipherCache{}
	ciphers, err := lru.NewWithEvict(capacity, func(string, *crypto.EnvelopeCipher) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	c.ciphers = ciphers
	return c, nil
}

// GetOrCreate returns the cached cipher for identity or builds one with
// factory. Concurrent misses for the same identity may both run the factory;
// the first insert wins and every caller gets a cipher bound to the same
// public key bytes, never a partially constructed one.
func (c *CipherCache) GetOrCreate(identity string, factory func() (*crypto.EnvelopeCipher, error)) (*crypto.EnvelopeCipher, error) {
	if cipher, ok := c.ciphers.Get(identity); ok {
		c.hits.Add(1)
		return cipher, nil
	}
	c.misses.Add(1)
	cipher, err := factory()
	if err != nil {
		return nil, err
	}
	if previous, ok, _ := c.ciphers.PeekOrAdd(identity, cipher); ok {
		// lost the race to another constructor, use the winner
		return previous, nil
	}
	return cipher, nil
}

func (c *CipherCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.ciphers.Len(),
	}
}
