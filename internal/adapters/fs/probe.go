package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"time"

	"go.trai.ch/stale/internal/core/domain"
	"go.trai.ch/stale/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileProbe = (*Probe)(nil)

// Probe answers existence and modification-time queries against the local filesystem.
type Probe struct{}

// NewProbe creates a new Probe.
func NewProbe() *Probe {
	return &Probe{}
}

// Exists reports whether path exists.
// It returns false without an error when the file is missing, and an error for
// any other stat failure such as a permission problem.
func (p *Probe) Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}
	return true, nil
}

// Mtime returns the modification time of path.
// A missing file yields the unwrapped *fs.PathError so callers can test it with fs.ErrNotExist.
func (p *Probe) Mtime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return time.Time{}, err
		}
		return time.Time{}, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}
	return info.ModTime(), nil
}
