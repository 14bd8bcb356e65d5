package domain

import (
	"path/filepath"
	"strings"
)

// ConfigFileName is the name of the project configuration file.
const ConfigFileName = "stale.yaml"

// Target pairs a template with the output compiled from it.
type Target struct {
	Template string
	Output   string
}

// Location maps a directory of templates onto a directory of outputs.
type Location struct {
	Source string
	Output string
}

// OutputFor maps a template under l.Source to its output path under l.Output.
func (l Location) OutputFor(template string) (string, error) {
	rel, err := filepath.Rel(l.Source, template)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + StylesheetExtension
	return filepath.Join(l.Output, rel), nil
}

// Manifest is the loaded project configuration.
type Manifest struct {
	// Root is the absolute directory every relative path in the config is resolved against.
	Root string
	// Options is passed to the dependency extractor.
	Options Options
	// CacheFile persists dependency sets between runs when set.
	CacheFile string
	// Workers bounds the number of concurrent checks. Zero means one per CPU.
	Workers int
	// Targets are the explicitly configured pairs.
	Targets []Target
	// Locations are directories to expand into targets.
	Locations []Location
}
