package handlers

import (
	"context"
	"time"

	"atelier/application/queries"
	qbus "atelier/application/queries/bus"
	"atelier/application/services"
	"atelier/domain/core/aggregates"
	"atelier/domain/core/valueobjects"
	pkgerrors "atelier/pkg/errors"
)

// GetFileHandler handles GetFileQuery
type GetFileHandler struct {
	store *services.WorkspaceStore
}

// NewGetFileHandler creates a new handler instance
func NewGetFileHandler(store *services.WorkspaceStore) *GetFileHandler {
	return &GetFileHandler{store: store}
}

// Handle resolves one file with its full content.
func (h *GetFileHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query, ok := q.(queries.GetFileQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type")
	}

	nodeID, err := valueobjects.NewNodeIDFromString(query.NodeID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid node id")
	}
	fileID, err := valueobjects.NewFileIDFromString(query.FileID)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid file id")
	}

	var view *queries.FileView
	nodeFound := false
	h.store.Read(func(ws *aggregates.Workspace) {
		node, found := ws.Node(nodeID)
		if !found {
			return
		}
		nodeFound = true
		file, found := node.File(fileID)
		if !found {
			return
		}
		view = &queries.FileView{
			ID:        file.ID().String(),
			NodeID:    node.ID().String(),
			Path:      file.Path().String(),
			Name:      file.Name(),
			Content:   file.Content(),
			Language:  string(file.Language()),
			CreatedAt: file.CreatedAt().Format(time.RFC3339),
			UpdatedAt: file.UpdatedAt().Format(time.RFC3339),
		}
	})
	if view == nil {
		if !nodeFound {
			return nil, pkgerrors.NewNotFoundError("node")
		}
		return nil, pkgerrors.NewNotFoundError("file")
	}
	return *view, nil
}
