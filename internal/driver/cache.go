package driver

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"tsderive/internal/expand"
)

// DefaultCacheSize is the in-memory entry limit used when none is given.
const DefaultCacheSize = 1024

// Cache is a two-level result cache: an LRU in memory, backed by an optional
// DiskCache. Entries are immutable once stored; callers must not modify a
// returned Result.
type Cache struct {
	mem  *lru.Cache[Digest, *expand.Result]
	disk *DiskCache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache holding up to size entries in memory. disk may be
// nil.
func NewCache(size int, disk *DiskCache) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	mem, err := lru.New[Digest, *expand.Result](size)
	if err != nil {
		return nil, err
	}
	return &Cache{mem: mem, disk: disk}, nil
}

// Get looks key up in memory, then on disk. Disk hits are promoted.
func (c *Cache) Get(key Digest) (*expand.Result, bool) {
	if c == nil {
		return nil, false
	}
	if res, ok := c.mem.Get(key); ok {
		c.hits.Add(1)
		return res, true
	}
	var payload DiskPayload
	if ok, err := c.disk.Get(key, &payload); err == nil && ok {
		res := &payload.Result
		c.mem.Add(key, res)
		c.hits.Add(1)
		return res, true
	}
	c.misses.Add(1)
	return nil, false
}

// Put stores res under key in memory and, when configured, on disk.
func (c *Cache) Put(key Digest, path, fingerprint string, res *expand.Result) error {
	if c == nil || res == nil {
		return nil
	}
	c.mem.Add(key, res)
	return c.disk.Put(key, &DiskPayload{Fingerprint: fingerprint, Path: path, Result: *res})
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}

// Purge empties the memory level and the disk level.
func (c *Cache) Purge() error {
	if c == nil {
		return nil
	}
	c.mem.Purge()
	return c.disk.DropAll()
}
