package entities

import (
	"time"

	"atelier/domain/config"
	"atelier/domain/core/valueobjects"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

// ProjectFile is one file of a node's codebase. The in-memory content
// is the source of truth until the persistence coordinator flushes it;
// a failed disk read never overwrites it.
type ProjectFile struct {
	id        valueobjects.FileID
	path      valueobjects.RelPath
	name      string
	content   string
	language  scaffold.Language
	createdAt time.Time
	updatedAt time.Time
}

// NewProjectFile creates a file with a fresh identity.
func NewProjectFile(path valueobjects.RelPath, content string, language scaffold.Language) (*ProjectFile, error) {
	return NewProjectFileWithID(valueobjects.NewFileID(), path, content, language)
}

// NewProjectFileWithID creates a file under a caller-allocated id, so
// the API edge can hand the id back before the command settles. Ids
// still come from NewFileID and are never recycled.
func NewProjectFileWithID(id valueobjects.FileID, path valueobjects.RelPath, content string, language scaffold.Language) (*ProjectFile, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("file ID is required")
	}
	if path.IsZero() {
		return nil, pkgerrors.NewValidationError("file path is required")
	}
	if !scaffold.IsValid(language) {
		return nil, pkgerrors.NewValidationError("unknown language: " + string(language))
	}

	now := time.Now()
	return &ProjectFile{
		id:        id,
		path:      path,
		name:      path.Name(),
		content:   content,
		language:  language,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructProjectFile rehydrates a file from persisted data with
// its original identity and timestamps preserved.
func ReconstructProjectFile(
	id valueobjects.FileID,
	path valueobjects.RelPath,
	name string,
	content string,
	language scaffold.Language,
	createdAt, updatedAt time.Time,
) (*ProjectFile, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("file ID is required")
	}
	if path.IsZero() {
		return nil, pkgerrors.NewValidationError("file path is required")
	}
	if name == "" {
		name = path.Name()
	}
	return &ProjectFile{
		id:        id,
		path:      path,
		name:      name,
		content:   content,
		language:  language,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the file's unique identifier
func (f *ProjectFile) ID() valueobjects.FileID {
	return f.id
}

// Path returns the path relative to the project root
func (f *ProjectFile) Path() valueobjects.RelPath {
	return f.path
}

// Name returns the display name, normally the last path segment
func (f *ProjectFile) Name() string {
	return f.name
}

// Content returns the full text content
func (f *ProjectFile) Content() string {
	return f.content
}

// Language returns the file's language
func (f *ProjectFile) Language() scaffold.Language {
	return f.language
}

// CreatedAt returns when the file was created
func (f *ProjectFile) CreatedAt() time.Time {
	return f.createdAt
}

// UpdatedAt returns when the file was last modified
func (f *ProjectFile) UpdatedAt() time.Time {
	return f.updatedAt
}

// UpdateContent replaces the in-memory content.
func (f *ProjectFile) UpdateContent(content string, cfg *config.DomainConfig) error {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if len(content) > cfg.MaxFileContentBytes {
		return pkgerrors.NewValidationError("file content exceeds the maximum size")
	}
	if content == f.content {
		return nil
	}
	f.content = content
	f.updatedAt = time.Now()
	return nil
}

// Rename changes the final path segment, preserving the directory
// prefix. Renames never move a file between directories.
func (f *ProjectFile) Rename(newName string) error {
	newPath, err := f.path.WithName(newName)
	if err != nil {
		return err
	}
	f.path = newPath
	f.name = newPath.Name()
	f.updatedAt = time.Now()
	return nil
}
