package meta

import (
	"fmt"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of files whose metadata is remembered.
const DefaultCacheSize = 2048

// Cache remembers extraction results per file and reuses them while the
// file's size and modification time are unchanged. Watch mode reruns a full
// pass on every change, so most files hit.
type Cache struct {
	x   *Extractor
	lru *lru.Cache[string, cached]
}

type cached struct {
	mod  time.Time
	size int64
	md   Meta
	ok   bool
}

func NewCache(x *Extractor, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, cached](size)
	if err != nil {
		return nil, fmt.Errorf("metadata cache: %w", err)
	}
	return &Cache{x: x, lru: c}, nil
}

// ExtractFile is Extractor.ExtractFile with memoization. Callers must not modify the returned Meta.
func (c *Cache) ExtractFile(path string) (Meta, bool) {
	info, err := os.Stat(path)
	if err != nil {
		c.lru.Remove(path)
		return nil, false
	}
	if hit, ok := c.lru.Get(path); ok && hit.size == info.Size() && hit.mod.Equal(info.ModTime()) {
		return hit.md, hit.ok
	}
	md, ok := c.x.ExtractFile(path)
	c.lru.Add(path, cached{mod: info.ModTime(), size: info.Size(), md: md, ok: ok})
	return md, ok
}

// Len returns the number of cached files.
func (c *Cache) Len() int { return c.lru.Len() }
