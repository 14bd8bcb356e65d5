package template

import (
	"path/filepath"
	"strings"

	"go.trai.ch/stale/internal/core/domain"
)

// searchDirs returns the directories an import in the template at path is looked up in, in order.
func searchDirs(path string, opts domain.Options) []string {
	dirs := make([]string, 0, 1+len(opts.LoadPaths))
	dirs = append(dirs, filepath.Dir(path))
	return append(dirs, opts.LoadPaths...)
}

// candidates lists the file names an import may refer to, relative to a search directory.
// An import without a known extension tries every template extension, first as
// written and then as a partial.
func candidates(name string, extensions []string) []string {
	tryPartial := !domain.IsPartial(name)

	if hasKnownExtension(name, extensions) {
		if !tryPartial {
			return []string{name}
		}
		return []string{name, partialName(name)}
	}

	out := make([]string, 0, 2*len(extensions))
	for _, ext := range extensions {
		out = append(out, name+ext)
	}
	if tryPartial {
		for _, ext := range extensions {
			out = append(out, partialName(name+ext))
		}
	}
	return out
}

func hasKnownExtension(name string, extensions []string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	for _, known := range extensions {
		if strings.EqualFold(ext, known) {
			return true
		}
	}
	return false
}

// partialName prefixes the base name with an underscore: "dir/name.ss" becomes "dir/_name.ss".
func partialName(name string) string {
	dir, base := filepath.Split(name)
	return dir + "_" + base
}
