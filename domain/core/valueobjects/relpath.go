package valueobjects

import (
	"path"
	"strings"

	pkgerrors "atelier/pkg/errors"
)

// RelPath is a validated slash-separated path relative to a node's
// project root. It can never escape the root: absolute paths and ".."
// segments are rejected at construction.
type RelPath struct {
	value string
}

// NewRelPath validates and normalizes a relative path.
func NewRelPath(p string) (RelPath, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return RelPath{}, pkgerrors.NewValidationError("path cannot be empty")
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return RelPath{}, pkgerrors.NewValidationError("path must be relative to the project root")
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return RelPath{}, pkgerrors.NewValidationError("path escapes the project root")
	}
	return RelPath{value: cleaned}, nil
}

// String returns the slash-separated path
func (p RelPath) String() string {
	return p.value
}

// Name returns the last path segment, the file's display name.
func (p RelPath) Name() string {
	return path.Base(p.value)
}

// Dir returns the directory prefix, "" for root-level files.
func (p RelPath) Dir() string {
	d := path.Dir(p.value)
	if d == "." {
		return ""
	}
	return d
}

// WithName returns a new path with the same directory prefix and a
// different final segment. Used by rename, which must never move a
// file between directories.
func (p RelPath) WithName(name string) (RelPath, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RelPath{}, pkgerrors.NewValidationError("file name cannot be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return RelPath{}, pkgerrors.NewValidationError("file name cannot contain path separators")
	}
	if d := p.Dir(); d != "" {
		return NewRelPath(d + "/" + name)
	}
	return NewRelPath(name)
}

// Equals checks if two paths are equal
func (p RelPath) Equals(other RelPath) bool {
	return p.value == other.value
}

// IsZero checks if the path is the zero value
func (p RelPath) IsZero() bool {
	return p.value == ""
}

// MarshalJSON implements json.Marshaler
func (p RelPath) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (p *RelPath) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return pkgerrors.NewValidationError("path must be a string")
	}
	parsed, err := NewRelPath(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
