package queries

import "errors"

// GetFileQuery requests one file with its full content.
type GetFileQuery struct {
	NodeID string
	FileID string
}

// Validate validates the query
func (q GetFileQuery) Validate() error {
	if q.NodeID == "" {
		return errNodeIDRequired
	}
	if q.FileID == "" {
		return errors.New("file ID is required")
	}
	return nil
}

// FileView is one file with content.
type FileView struct {
	ID        string `json:"id"`
	NodeID    string `json:"node_id"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	Language  string `json:"language"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}
