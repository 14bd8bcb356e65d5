// Package template extracts the import graph of stylesheet templates.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DependencyExtractor = (*Scanner)(nil)

// Scanner implements ports.DependencyExtractor for @import directives.
//
// Parsed directives are kept per template, keyed by the digest of its content,
// so a template whose mtime changed but whose bytes did not is not parsed again.
// Resolution always runs against the current filesystem.
type Scanner struct {
	probe ports.FileProbe

	mu     sync.Mutex
	parsed map[string]parsedTemplate
}

type parsedTemplate struct {
	digest     uint64
	syntax     string
	directives []directive
	err        error
}

// NewScanner creates a Scanner that locates imports through probe.
func NewScanner(probe ports.FileProbe) *Scanner {
	return &Scanner{
		probe:  probe,
		parsed: make(map[string]parsedTemplate),
	}
}

// Extract returns the absolute paths of every file the template at path imports directly.
//
// A template that does not parse, or that imports a file which cannot be found,
// yields an Extraction whose Err wraps domain.ErrTemplateSyntax. The returned
// error is reserved for failures to read the template or probe the filesystem.
func (s *Scanner) Extract(path string, opts domain.Options) (domain.Extraction, error) {
	// #nosec G304 -- path is a template the caller asked about
	src, err := os.ReadFile(path)
	if err != nil {
		return domain.Extraction{}, zerr.With(zerr.Wrap(err, domain.ErrFileReadFailed.Error()), "path", path)
	}

	directives, err := s.directives(path, src, opts.Syntax)
	if err != nil {
		return domain.Extraction{Err: syntaxError(err, path)}, nil
	}

	var imports []string
	for _, d := range directives {
		for _, name := range d.names {
			resolved, found, err := s.resolve(path, name, opts)
			if err != nil {
				return domain.Extraction{}, err
			}
			if !found {
				cause := zerr.With(zerr.With(domain.ErrImportNotFound, "import", name), "line", d.line)
				return domain.Extraction{Err: syntaxError(cause, path)}, nil
			}
			imports = append(imports, resolved)
		}
	}

	return domain.Extraction{Imports: imports}, nil
}

func (s *Scanner) directives(path string, src []byte, syntax string) ([]directive, error) {
	digest := xxhash.Sum64(src)

	s.mu.Lock()
	cached, ok := s.parsed[path]
	s.mu.Unlock()
	if ok && cached.digest == digest && cached.syntax == syntax {
		return cached.directives, cached.err
	}

	directives, err := parse(src, syntax)

	s.mu.Lock()
	s.parsed[path] = parsedTemplate{digest: digest, syntax: syntax, directives: directives, err: err}
	s.mu.Unlock()

	return directives, err
}

// resolve locates the file an import names. Plain stylesheet imports are left
// for the browser and resolve relative to the template without being looked up.
func (s *Scanner) resolve(path, name string, opts domain.Options) (string, bool, error) {
	if domain.IsPlainStylesheet(name) {
		if filepath.IsAbs(name) {
			return filepath.Clean(name), true, nil
		}
		return filepath.Join(filepath.Dir(path), name), true, nil
	}

	dirs := searchDirs(path, opts)
	if filepath.IsAbs(name) {
		dirs = []string{""}
	}

	for _, dir := range dirs {
		for _, candidate := range candidates(name, opts.TemplateExtensions()) {
			full := filepath.Join(dir, candidate)
			ok, err := s.probe.Exists(full)
			if err != nil {
				return "", false, err
			}
			if ok {
				abs, err := filepath.Abs(full)
				if err != nil {
					return "", false, zerr.With(zerr.Wrap(err, domain.ErrFailedToResolvePath.Error()), "path", full)
				}
				return abs, true, nil
			}
		}
	}
	return "", false, nil
}

func syntaxError(cause error, path string) error {
	return zerr.With(zerr.Wrap(cause, fmt.Sprintf("%s in %s", domain.ErrTemplateSyntax.Error(), filepath.Base(path))), "path", path)
}
