package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// StylesheetExtension is the extension of plain, already-compiled stylesheets.
// Imports of such files are leaves and are never tracked as dependencies.
const StylesheetExtension = ".css"

// IsPlainStylesheet reports whether path refers to a plain stylesheet.
func IsPlainStylesheet(path string) bool {
	return strings.EqualFold(filepath.Ext(path), StylesheetExtension)
}

// IsPartial reports whether path names a partial, a template that is only ever imported.
func IsPartial(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "_")
}

// Extraction is the result of scanning one template for its imports.
//
// A template that failed to parse has a non-nil Err wrapping ErrTemplateSyntax
// and no imports. Environment failures are not represented here; extractors
// return them as a plain error instead.
type Extraction struct {
	// Imports holds the absolute paths of the template's direct imports.
	Imports []string
	// Err is set when the template could not be parsed.
	Err error
}

// Broken reports whether the template failed to parse.
func (e Extraction) Broken() bool {
	return e.Err != nil
}

// DependencyEntry is the cached dependency set of one template.
type DependencyEntry struct {
	// Mtime is the template's modification time when Imports was computed.
	Mtime time.Time
	// Imports holds the absolute paths the template imports directly, without plain stylesheets.
	Imports []string
	// Broken marks a template that failed to parse when Imports was computed.
	Broken bool
}

// FreshAt reports whether the entry is still valid for a template last modified at mtime.
func (e DependencyEntry) FreshAt(mtime time.Time) bool {
	return !e.Mtime.Before(mtime)
}
