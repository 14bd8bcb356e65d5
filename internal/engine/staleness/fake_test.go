package staleness_test

import (
	"io/fs"
	"os"
	"sync"
	"time"

	"go.trai.ch/stale/internal/core/domain"
)

// memFS is an in-memory ports.FileProbe that counts mtime lookups.
type memFS struct {
	mu     sync.Mutex
	mtimes map[string]time.Time
	denied map[string]bool
	stats  map[string]int
}

func newMemFS() *memFS {
	return &memFS{
		mtimes: make(map[string]time.Time),
		denied: make(map[string]bool),
		stats:  make(map[string]int),
	}
}

func (f *memFS) touch(path string, unix int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mtimes[path] = time.Unix(unix, 0)
}

func (f *memFS) remove(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.mtimes, path)
}

func (f *memFS) deny(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[path] = true
}

func (f *memFS) statCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats[path]
}

func (f *memFS) Exists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.mtimes[path]
	return ok, nil
}

func (f *memFS) Mtime(path string) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats[path]++
	if f.denied[path] {
		return time.Time{}, &fs.PathError{Op: "stat", Path: path, Err: os.ErrPermission}
	}
	mtime, ok := f.mtimes[path]
	if !ok {
		return time.Time{}, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return mtime, nil
}

// graphExtractor is a ports.DependencyExtractor backed by a fixed import graph.
type graphExtractor struct {
	mu      sync.Mutex
	imports map[string][]string
	broken  map[string]bool
	calls   map[string]int
	opts    []domain.Options
}

func newGraphExtractor() *graphExtractor {
	return &graphExtractor{
		imports: make(map[string][]string),
		broken:  make(map[string]bool),
		calls:   make(map[string]int),
	}
}

func (e *graphExtractor) link(from string, to ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.imports[from] = to
}

func (e *graphExtractor) breakSyntax(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broken[path] = true
}

func (e *graphExtractor) callCount(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[path]
}

func (e *graphExtractor) totalCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

func (e *graphExtractor) Extract(path string, opts domain.Options) (domain.Extraction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls[path]++
	e.opts = append(e.opts, opts)
	if e.broken[path] {
		return domain.Extraction{Err: domain.ErrTemplateSyntax}, nil
	}
	return domain.Extraction{Imports: e.imports[path]}, nil
}
