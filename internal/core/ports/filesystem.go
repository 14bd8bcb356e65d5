// Package ports defines the core interfaces for the application.
package ports

import "time"

// FileProbe answers existence and modification-time questions about files.
//
//go:generate go run go.uber.org/mock/mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileProbe interface {
	// Exists reports whether path exists. A missing file is not an error;
	// any other stat failure is.
	Exists(path string) (bool, error)
	// Mtime returns the last modification time of path.
	// For a missing file the returned error wraps fs.ErrNotExist.
	Mtime(path string) (time.Time, error)
}

// TemplateLister enumerates compilable templates below a directory.
type TemplateLister interface {
	// ListTemplates returns the absolute paths of every non-partial file under root
	// whose extension is one of extensions, sorted.
	ListTemplates(root string, extensions []string) ([]string, error)
}
