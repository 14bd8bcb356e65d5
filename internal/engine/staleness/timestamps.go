package staleness

import (
	"time"

	"go.trai.ch/stale/internal/core/ports"
)

// timestamps memoizes modification times for the lifetime of one Checker.
// A file modified during the run keeps the mtime it was first seen with.
type timestamps struct {
	probe  ports.FileProbe
	byPath map[string]time.Time
}

func newTimestamps(probe ports.FileProbe) *timestamps {
	return &timestamps{
		probe:  probe,
		byPath: make(map[string]time.Time),
	}
}

// get returns the mtime of path, stating it only on first use.
// Failures are not cached.
func (t *timestamps) get(path string) (time.Time, error) {
	if mtime, ok := t.byPath[path]; ok {
		return mtime, nil
	}
	mtime, err := t.probe.Mtime(path)
	if err != nil {
		return time.Time{}, err
	}
	t.byPath[path] = mtime
	return mtime, nil
}
