package store_test

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"go.trai.ch/stale/internal/adapters/store"
	"go.trai.ch/stale/internal/core/domain"
)

func sampleEntries() map[string]domain.DependencyEntry {
	return map[string]domain.DependencyEntry{
		"/src/app.ss":    {Mtime: time.Unix(100, 5), Imports: []string{"/src/_colors.ss", "/lib/_grid.ss"}},
		"/src/broken.ss": {Mtime: time.Unix(200, 0), Broken: true},
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".stale", "deps.json")
	opts := domain.DefaultOptions()
	s := store.NewStore()

	if err := s.Save(path, opts, sampleEntries()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.NewStore().Load(path, opts)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	app := got["/src/app.ss"]
	if !app.Mtime.Equal(time.Unix(100, 5)) {
		t.Errorf("expected mtime to survive with nanoseconds, got %v", app.Mtime)
	}
	if !slices.Equal(app.Imports, []string{"/src/_colors.ss", "/lib/_grid.ss"}) {
		t.Errorf("unexpected imports %v", app.Imports)
	}
	if app.Broken {
		t.Errorf("expected app.ss not to be broken")
	}
	if !got["/src/broken.ss"].Broken {
		t.Errorf("expected broken.ss to stay broken")
	}
}

func TestStore_SaveReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	opts := domain.DefaultOptions()
	s := store.NewStore()

	if err := s.Save(path, opts, sampleEntries()); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := s.Save(path, opts, map[string]domain.DependencyEntry{"/src/other.ss": {Mtime: time.Unix(1, 0)}}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := s.Load(path, opts)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := got["/src/other.ss"]; !ok || len(got) != 1 {
		t.Errorf("expected only the second save, got %v", got)
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("expected no temporary files, got %v", leftovers)
	}
}

func TestStore_LoadMissingFile(t *testing.T) {
	got, err := store.NewStore().Load(filepath.Join(t.TempDir(), "deps.json"), domain.DefaultOptions())
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no entries, got %v", got)
	}
}

func TestStore_LoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	if err := os.WriteFile(path, nil, domain.PrivateFilePerm); err != nil {
		t.Fatal(err)
	}

	got, err := store.NewStore().Load(path, domain.DefaultOptions())
	if err != nil || got != nil {
		t.Errorf("expected empty result, got %v, %v", got, err)
	}
}

func TestStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	if err := os.WriteFile(path, []byte("{not json"), domain.PrivateFilePerm); err != nil {
		t.Fatal(err)
	}

	if _, err := store.NewStore().Load(path, domain.DefaultOptions()); err == nil {
		t.Error("expected an error for a corrupt file")
	}
}

func TestStore_LoadIgnoresOtherOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	s := store.NewStore()
	if err := s.Save(path, domain.DefaultOptions(), sampleEntries()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := domain.DefaultOptions().WithLoadPaths("/vendor")
	got, err := s.Load(path, other)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected entries saved under other options to be ignored, got %v", got)
	}
}

func TestStore_LoadIgnoresOtherVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deps.json")
	content := `{"version": 99, "fingerprint": "` + store.Fingerprint(domain.DefaultOptions()) + `", "templates": {"/src/app.ss": {"mtime": "2024-01-01T00:00:00Z"}}}`
	if err := os.WriteFile(path, []byte(content), domain.PrivateFilePerm); err != nil {
		t.Fatal(err)
	}

	got, err := store.NewStore().Load(path, domain.DefaultOptions())
	if err != nil || got != nil {
		t.Errorf("expected other versions to be ignored, got %v, %v", got, err)
	}
}

func TestFingerprint(t *testing.T) {
	base := domain.DefaultOptions()

	if store.Fingerprint(base) != store.Fingerprint(domain.DefaultOptions()) {
		t.Error("expected equal options to share a fingerprint")
	}
	if store.Fingerprint(base) != store.Fingerprint(domain.Options{Syntax: domain.SyntaxSCSS}) {
		t.Error("expected default extensions to be implied")
	}

	variants := []domain.Options{
		{Syntax: domain.SyntaxIndented, Extensions: base.Extensions},
		{Syntax: base.Syntax, Extensions: []string{".ss", ".sass"}},
		base.WithLoadPaths("/lib"),
		// Joined fields must not collide.
		{Syntax: base.Syntax, Extensions: base.Extensions, LoadPaths: []string{"/a", "/b"}},
		{Syntax: base.Syntax, Extensions: base.Extensions, LoadPaths: []string{"/a\x1f/b"}},
	}
	seen := map[string]int{store.Fingerprint(base): -1}
	for i, v := range variants {
		fp := store.Fingerprint(v)
		if prev, ok := seen[fp]; ok {
			t.Errorf("variant %d collides with %d", i, prev)
		}
		seen[fp] = i
	}
}
