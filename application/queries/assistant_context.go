package queries

// AssistantContextQuery requests the context document handed to a code
// assistant for one node. An empty NodeID means the currently selected
// node.
type AssistantContextQuery struct {
	NodeID string
}

// Validate validates the query
func (q AssistantContextQuery) Validate() error {
	return nil
}

// AssistantContextResult is the assembled context document. The active
// file carries full content; sibling files are truncated to a prefix
// so the document stays bounded.
type AssistantContextResult struct {
	NodeID       string          `json:"node_id"`
	NodeName     string          `json:"node_name"`
	NodeType     string          `json:"node_type"`
	Language     string          `json:"language"`
	ActiveFile   *ContextFile    `json:"active_file,omitempty"`
	SiblingFiles []ContextFile   `json:"sibling_files"`
	ConnectedTo  []ConnectedNode `json:"connected_to"`
}

// ContextFile is one file's contribution to the context document.
type ContextFile struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ConnectedNode carries a connection target's metadata and a bounded
// prefix of its main file, mirroring what the active node contributes.
type ConnectedNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	NodeType string      `json:"node_type"`
	MainFile ContextFile `json:"main_file"`
}
