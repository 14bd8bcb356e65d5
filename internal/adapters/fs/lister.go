package fs

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TemplateLister = (*Lister)(nil)

// partialPattern matches partials, which are only ever compiled through the templates importing them.
const partialPattern = "_*"

// Lister finds compilable templates below a directory.
type Lister struct {
	walker *Walker
}

// NewLister creates a new Lister.
func NewLister(walker *Walker) *Lister {
	return &Lister{walker: walker}
}

// ListTemplates returns the absolute, sorted paths of every non-partial file
// below root whose extension is one of extensions.
func (l *Lister) ListTemplates(root string, extensions []string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFailedToResolvePath.Error()), "path", root)
	}

	exists, err := NewProbe().Exists(abs)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, zerr.With(domain.ErrPathStatFailed, "path", abs)
	}

	var templates []string
	for path := range l.walker.WalkFiles(abs, []string{partialPattern}) {
		if hasExtension(path, extensions) {
			templates = append(templates, path)
		}
	}
	slices.Sort(templates)
	return templates, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	for _, want := range extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}
