package domain

import "unique"

// Path is an interned file path. Equal paths share one handle, which makes
// Path cheap to compare and to use as a map key.
type Path struct {
	h unique.Handle[string]
}

// NewPath interns p.
func NewPath(p string) Path {
	return Path{h: unique.Make(p)}
}

// String returns the path, or "" for the zero Path.
func (p Path) String() string {
	if p.IsZero() {
		return ""
	}
	return p.h.Value()
}

// IsZero reports whether p was never set.
func (p Path) IsZero() bool {
	var zero unique.Handle[string]
	return p.h == zero
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	p.h = unique.Make(string(text))
	return nil
}
