package domain

import "slices"

// Syntax dialects understood by the template scanner.
const (
	// SyntaxSCSS requires every directive to be terminated by a semicolon.
	SyntaxSCSS = "scss"
	// SyntaxIndented makes the terminating semicolon optional.
	SyntaxIndented = "indented"
)

// DefaultExtension is the template extension tried for extension-less imports
// when no extensions are configured.
const DefaultExtension = ".ss"

// Options is the configuration bundle handed to the dependency extractor.
// The staleness engine passes it through without inspecting it.
type Options struct {
	// LoadPaths are absolute directories searched for imports after the template's own directory.
	LoadPaths []string
	// Syntax selects the directive dialect.
	Syntax string
	// Extensions are tried, in order, for imports written without an extension.
	Extensions []string
}

// DefaultOptions returns the options used when no configuration file is present.
func DefaultOptions() Options {
	return Options{
		Syntax:     SyntaxSCSS,
		Extensions: []string{DefaultExtension},
	}
}

// WithLoadPaths returns a copy of o with extra load paths appended.
func (o Options) WithLoadPaths(paths ...string) Options {
	o.LoadPaths = append(slices.Clone(o.LoadPaths), paths...)
	return o
}

// TemplateExtensions returns the configured extensions, or the default when none are set.
func (o Options) TemplateExtensions() []string {
	if len(o.Extensions) == 0 {
		return []string{DefaultExtension}
	}
	return o.Extensions
}
