package handlers

import (
	"context"
	"time"

	"atelier/application/queries"
	qbus "atelier/application/queries/bus"
	"atelier/application/services"
	"atelier/domain/core/aggregates"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	pkgerrors "atelier/pkg/errors"
)

// GetNodeHandler handles GetNodeQuery
type GetNodeHandler struct {
	store *services.WorkspaceStore
}

// NewGetNodeHandler creates a new handler instance
func NewGetNodeHandler(store *services.WorkspaceStore) *GetNodeHandler {
	return &GetNodeHandler{store: store}
}

// Handle resolves one node and its file listing.
func (h *GetNodeHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query, ok := q.(queries.GetNodeQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type")
	}

	nodeID, err := valueobjects.NewNodeIDFromString(query.NodeID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid node id")
	}

	var view *queries.NodeDetailView
	h.store.Read(func(ws *aggregates.Workspace) {
		if node, found := ws.Node(nodeID); found {
			v := buildNodeDetail(node)
			view = &v
		}
	})
	if view == nil {
		return nil, pkgerrors.NewNotFoundError("node")
	}
	return *view, nil
}

func buildNodeDetail(node *entities.Node) queries.NodeDetailView {
	view := queries.NodeDetailView{
		ID:              node.ID().String(),
		Name:            node.Name(),
		NodeType:        string(node.Type()),
		Language:        string(node.Language()),
		Position:        queries.Position{X: node.Position().X, Y: node.Position().Y},
		Files:           []queries.FileInfo{},
		Connections:     []string{},
		ProjectPath:     node.ProjectPath(),
		EnvironmentPath: node.EnvironmentPath(),
		CreatedAt:       node.CreatedAt().Format(time.RFC3339),
		UpdatedAt:       node.UpdatedAt().Format(time.RFC3339),
	}
	if sel := node.SelectedFileID(); !sel.IsZero() {
		view.SelectedFileID = sel.String()
	}
	for _, f := range node.Files() {
		view.Files = append(view.Files, queries.FileInfo{
			ID:        f.ID().String(),
			Path:      f.Path().String(),
			Name:      f.Name(),
			Size:      len(f.Content()),
			UpdatedAt: f.UpdatedAt().Format(time.RFC3339),
		})
	}
	for _, target := range node.Connections() {
		view.Connections = append(view.Connections, target.String())
	}
	return view
}
