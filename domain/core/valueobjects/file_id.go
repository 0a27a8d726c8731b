package valueobjects

import (
	"errors"

	"github.com/google/uuid"
)

// FileID is a value object identifying one project file for the
// lifetime of that file. Lookups into a node's file collection are
// always keyed by FileID, never by position.
type FileID struct {
	value string
}

// NewFileID creates a new random FileID
func NewFileID() FileID {
	return FileID{value: uuid.New().String()}
}

// NewFileIDFromString creates a FileID from an existing string
func NewFileIDFromString(id string) (FileID, error) {
	if id == "" {
		return FileID{}, errors.New("file ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return FileID{}, errors.New("file ID must be a valid UUID")
	}
	return FileID{value: id}, nil
}

// String returns the string representation of the FileID
func (id FileID) String() string {
	return id.value
}

// Equals checks if two FileIDs are equal
func (id FileID) Equals(other FileID) bool {
	return id.value == other.value
}

// IsZero checks if the FileID is the zero value
func (id FileID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id FileID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *FileID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("FileID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
