// Package store persists dependency sets in a flat JSON file.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DependencyStore = (*Store)(nil)

// formatVersion is bumped whenever the file layout changes.
const formatVersion = 1

// file is the on-disk layout.
type file struct {
	Version     int              `json:"version"`
	Fingerprint string           `json:"fingerprint"`
	Templates   map[string]entry `json:"templates"`
}

type entry struct {
	Mtime   time.Time `json:"mtime"`
	Imports []string  `json:"imports,omitempty"`
	Broken  bool      `json:"broken,omitzero"`
}

// Store implements ports.DependencyStore using a flat JSON file.
type Store struct{}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{}
}

// Load reads the entries saved at path. Files saved by another format version
// or under different options are ignored.
func (s *Store) Load(path string, opts domain.Options) (map[string]domain.DependencyEntry, error) {
	//nolint:gosec // Path comes from the project configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, "failed to read dependency cache"), "path", path)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to unmarshal dependency cache"), "path", path)
	}

	if f.Version != formatVersion || f.Fingerprint != Fingerprint(opts) {
		return nil, nil
	}

	entries := make(map[string]domain.DependencyEntry, len(f.Templates))
	for template, e := range f.Templates {
		entries[template] = domain.DependencyEntry{Mtime: e.Mtime, Imports: e.Imports, Broken: e.Broken}
	}
	return entries, nil
}

// Save writes entries to path, replacing the file atomically.
func (s *Store) Save(path string, opts domain.Options, entries map[string]domain.DependencyEntry) error {
	f := file{
		Version:     formatVersion,
		Fingerprint: Fingerprint(opts),
		Templates:   make(map[string]entry, len(entries)),
	}
	for template, e := range entries {
		f.Templates[template] = entry{Mtime: e.Mtime, Imports: e.Imports, Broken: e.Broken}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to marshal dependency cache")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory for dependency cache"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write dependency cache"), "path", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, "failed to write dependency cache"), "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write dependency cache"), "path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write dependency cache"), "path", path)
	}
	return nil
}

// Fingerprint digests the options that influence how imports resolve.
// Entries saved under one fingerprint are meaningless under another.
func Fingerprint(opts domain.Options) string {
	h := xxhash.New()
	write := func(s string) {
		_, _ = h.WriteString(s)
		_, _ = h.WriteString("\x00")
	}
	writeList := func(list []string) {
		write(strconv.Itoa(len(list)))
		for _, s := range list {
			write(s)
		}
	}

	write(opts.Syntax)
	writeList(opts.TemplateExtensions())
	writeList(opts.LoadPaths)

	return strconv.FormatUint(h.Sum64(), 16)
}
