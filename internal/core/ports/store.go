package ports

import "go.trai.ch/stale/internal/core/domain"

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// DependencyStore persists template dependency sets between runs.
type DependencyStore interface {
	// Load returns the entries saved at path for opts. A missing file, or one
	// saved under different options, yields no entries.
	Load(path string, opts domain.Options) (map[string]domain.DependencyEntry, error)
	// Save replaces the entries saved at path.
	Save(path string, opts domain.Options, entries map[string]domain.DependencyEntry) error
}
