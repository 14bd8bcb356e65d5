package depgraph

import (
	"slices"
	"sync"

	"go.trai.ch/stale/internal/core/domain"
)

// Registry hands out one Cache per execution scope.
//
// Callers sharing a scope, such as successive runs on the same worker, share a
// warm cache. Callers on different scopes never see each other's entries and
// never contend on each other's locks.
type Registry struct {
	mu     sync.Mutex
	caches map[string]*Cache
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]*Cache)}
}

// For returns the cache of scope, creating it on first use.
func (r *Registry) For(scope string) *Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.caches[scope]
	if !ok {
		c = NewCache()
		r.caches[scope] = c
	}
	return c
}

// Scopes returns the names of every scope that has a cache, sorted.
func (r *Registry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	scopes := make([]string, 0, len(r.caches))
	for scope := range r.caches {
		scopes = append(scopes, scope)
	}
	slices.Sort(scopes)
	return scopes
}

// Entries merges the entries of every scope. When scopes disagree on a
// template, the entry computed at the latest mtime wins.
func (r *Registry) Entries() map[string]domain.DependencyEntry {
	r.mu.Lock()
	caches := make([]*Cache, 0, len(r.caches))
	for _, c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.Unlock()

	merged := make(map[string]domain.DependencyEntry)
	for _, c := range caches {
		for path, entry := range c.Entries() {
			if existing, ok := merged[path]; ok && !entry.Mtime.After(existing.Mtime) {
				continue
			}
			merged[path] = entry
		}
	}
	return merged
}
