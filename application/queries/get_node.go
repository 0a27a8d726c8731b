package queries

// GetNodeQuery requests one node with its file listing.
type GetNodeQuery struct {
	NodeID string
}

// Validate validates the query
func (q GetNodeQuery) Validate() error {
	if q.NodeID == "" {
		return errNodeIDRequired
	}
	return nil
}

// NodeDetailView is one node with file metadata. File contents are
// fetched separately so listing a large project stays cheap.
type NodeDetailView struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	NodeType        string     `json:"node_type"`
	Language        string     `json:"language"`
	Position        Position   `json:"position"`
	Files           []FileInfo `json:"files"`
	SelectedFileID  string     `json:"selected_file_id,omitempty"`
	Connections     []string   `json:"connections"`
	ProjectPath     string     `json:"project_path,omitempty"`
	EnvironmentPath string     `json:"environment_path,omitempty"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

// FileInfo is file metadata without content.
type FileInfo struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Size      int    `json:"size"`
	UpdatedAt string `json:"updated_at"`
}
