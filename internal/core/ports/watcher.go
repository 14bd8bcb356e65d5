package ports

import (
	"context"
	"iter"
)

// Watcher reports batches of changed paths below a directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start begins watching root recursively until ctx is done or Stop is called.
	Start(ctx context.Context, root string) error
	// Stop stops the watcher and releases all resources.
	Stop() error
	// Changes yields the paths that changed, coalesced into batches.
	// The sequence ends when the watcher stops.
	Changes() iter.Seq[[]string]
}
