// Package depgraph caches the direct imports of templates across staleness checks.
package depgraph

import (
	"strconv"
	"sync"
	"time"

	"go.trai.ch/stale/internal/core/domain"
	"golang.org/x/sync/singleflight"
)

// Loader computes the imports of one template.
type Loader func() (domain.Extraction, error)

// Cache maps template paths to their direct imports, each tagged with the
// template modification time it was computed at.
//
// Entries are invalidated lazily: Resolve recomputes an entry once the
// template's current mtime is newer than the stored one. The lookup, the
// recomputation and the store form one critical section per template, so
// concurrent callers neither lose updates nor extract the same template twice.
//
// Returned import slices are shared and must not be modified.
type Cache struct {
	mu      sync.RWMutex
	entries map[domain.Path]domain.DependencyEntry
	group   singleflight.Group
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[domain.Path]domain.DependencyEntry),
	}
}

// Lookup returns the cached entry for path if it is still valid for a template
// last modified at mtime.
func (c *Cache) Lookup(path string, mtime time.Time) (domain.DependencyEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[domain.NewPath(path)]
	if !ok || !entry.FreshAt(mtime) {
		return domain.DependencyEntry{}, false
	}
	return entry, true
}

// Resolve returns the dependency entry of path, calling load when nothing valid
// is cached. Plain stylesheet imports are dropped before the entry is stored.
// An error from load is returned as is and leaves the cache untouched.
func (c *Cache) Resolve(path string, mtime time.Time, load Loader) (domain.DependencyEntry, error) {
	if entry, ok := c.Lookup(path, mtime); ok {
		return entry, nil
	}

	key := path + "@" + strconv.FormatInt(mtime.UnixNano(), 10)
	v, err, _ := c.group.Do(key, func() (any, error) {
		// A caller that finished between our lookup and Do has already stored it.
		if entry, ok := c.Lookup(path, mtime); ok {
			return entry, nil
		}

		extraction, err := load()
		if err != nil {
			return nil, err
		}

		entry := domain.DependencyEntry{
			Mtime:   mtime,
			Imports: trackedImports(extraction.Imports),
			Broken:  extraction.Broken(),
		}
		c.store(path, entry)
		return entry, nil
	})
	if err != nil {
		return domain.DependencyEntry{}, err
	}
	return v.(domain.DependencyEntry), nil //nolint:forcetypeassert // Only entries are returned from Do
}

// store records entry unless a newer one was stored concurrently.
func (c *Cache) store(path string, entry domain.DependencyEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := domain.NewPath(path)
	if existing, ok := c.entries[key]; ok && existing.Mtime.After(entry.Mtime) {
		return
	}
	c.entries[key] = entry
}

// Forget drops the entry for path.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, domain.NewPath(path))
}

// Entries returns a copy of every cached entry keyed by template path.
func (c *Cache) Entries() map[string]domain.DependencyEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make(map[string]domain.DependencyEntry, len(c.entries))
	for key, entry := range c.entries {
		entries[key.String()] = entry
	}
	return entries
}

// Seed stores entries computed elsewhere, such as by an earlier process.
// An entry never replaces a newer one already cached.
func (c *Cache) Seed(entries map[string]domain.DependencyEntry) {
	for path, entry := range entries {
		c.store(path, entry)
	}
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func trackedImports(imports []string) []string {
	tracked := make([]string, 0, len(imports))
	for _, imp := range imports {
		if domain.IsPlainStylesheet(imp) {
			continue
		}
		tracked = append(tracked, imp)
	}
	return tracked
}
