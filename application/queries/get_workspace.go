// Package queries defines the read-side operations. Query types carry
// parameters and result shapes; the handlers build results from a
// consistent snapshot of the workspace.
package queries

import "errors"

// GetWorkspaceQuery requests the full workspace view the canvas
// renders from.
type GetWorkspaceQuery struct{}

// Validate validates the query
func (q GetWorkspaceQuery) Validate() error {
	return nil
}

// WorkspaceView is the complete canvas state.
type WorkspaceView struct {
	Nodes          []NodeSummary    `json:"nodes"`
	Connections    []ConnectionView `json:"connections"`
	SelectedNodeID string           `json:"selected_node_id,omitempty"`
	Canvas         CanvasView       `json:"canvas"`
	Stats          WorkspaceStats   `json:"stats"`
}

// NodeSummary is the card-level view of one node.
type NodeSummary struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	NodeType       string   `json:"node_type"`
	Language       string   `json:"language"`
	Position       Position `json:"position"`
	FileCount      int      `json:"file_count"`
	SelectedFileID string   `json:"selected_file_id,omitempty"`
	ProjectPath    string   `json:"project_path,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// ConnectionView is one directed connection between nodes.
type ConnectionView struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// CanvasView is the pan/zoom state.
type CanvasView struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Scale   float64 `json:"scale"`
}

// WorkspaceStats contains workspace counts.
type WorkspaceStats struct {
	NodeCount       int `json:"node_count"`
	ConnectionCount int `json:"connection_count"`
	FileCount       int `json:"file_count"`
}

// Position represents canvas coordinates
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var errNodeIDRequired = errors.New("node ID is required")
