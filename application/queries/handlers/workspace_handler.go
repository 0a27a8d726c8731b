// Package handlers implements the query handlers. Each handler builds
// its result inside a single store read so every view is internally
// consistent.
package handlers

import (
	"context"
	"time"

	"atelier/application/queries"
	qbus "atelier/application/queries/bus"
	"atelier/application/services"
	"atelier/domain/core/aggregates"
	pkgerrors "atelier/pkg/errors"
)

// GetWorkspaceHandler handles GetWorkspaceQuery
type GetWorkspaceHandler struct {
	store *services.WorkspaceStore
}

// NewGetWorkspaceHandler creates a new handler instance
func NewGetWorkspaceHandler(store *services.WorkspaceStore) *GetWorkspaceHandler {
	return &GetWorkspaceHandler{store: store}
}

// Handle builds the full canvas view.
func (h *GetWorkspaceHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	if _, ok := q.(queries.GetWorkspaceQuery); !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type")
	}

	var view queries.WorkspaceView
	h.store.Read(func(ws *aggregates.Workspace) {
		view = buildWorkspaceView(ws)
	})
	return view, nil
}

func buildWorkspaceView(ws *aggregates.Workspace) queries.WorkspaceView {
	view := queries.WorkspaceView{
		Nodes:       []queries.NodeSummary{},
		Connections: []queries.ConnectionView{},
		Canvas: queries.CanvasView{
			OffsetX: ws.Canvas().Offset.X,
			OffsetY: ws.Canvas().Offset.Y,
			Scale:   ws.Canvas().Scale,
		},
	}
	if sel := ws.SelectedNodeID(); !sel.IsZero() {
		view.SelectedNodeID = sel.String()
	}

	fileCount := 0
	for _, node := range ws.Nodes() {
		summary := queries.NodeSummary{
			ID:          node.ID().String(),
			Name:        node.Name(),
			NodeType:    string(node.Type()),
			Language:    string(node.Language()),
			Position:    queries.Position{X: node.Position().X, Y: node.Position().Y},
			FileCount:   node.FileCount(),
			ProjectPath: node.ProjectPath(),
			CreatedAt:   node.CreatedAt().Format(time.RFC3339),
			UpdatedAt:   node.UpdatedAt().Format(time.RFC3339),
		}
		if sel := node.SelectedFileID(); !sel.IsZero() {
			summary.SelectedFileID = sel.String()
		}
		view.Nodes = append(view.Nodes, summary)
		fileCount += node.FileCount()

		for _, target := range node.Connections() {
			view.Connections = append(view.Connections, queries.ConnectionView{
				SourceID: node.ID().String(),
				TargetID: target.String(),
			})
		}
	}

	view.Stats = queries.WorkspaceStats{
		NodeCount:       ws.NodeCount(),
		ConnectionCount: len(view.Connections),
		FileCount:       fileCount,
	}
	return view
}
