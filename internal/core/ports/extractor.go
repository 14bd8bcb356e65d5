package ports

import "go.trai.ch/stale/internal/core/domain"

// DependencyExtractor parses a template and reports its direct imports.
//
//go:generate go run go.uber.org/mock/mockgen -source=extractor.go -destination=mocks/mock_extractor.go -package=mocks
type DependencyExtractor interface {
	// Extract returns the absolute paths of the template's direct imports.
	//
	// A template that fails to parse is reported through Extraction.Err, not the
	// returned error. The returned error is reserved for failures such as an
	// unreadable file and must be propagated by callers.
	Extract(path string, opts domain.Options) (domain.Extraction, error)
}
