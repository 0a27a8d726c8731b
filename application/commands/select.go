package commands

import (
	"context"

	"go.uber.org/zap"

	cmdbus "atelier/application/commands/bus"
	"atelier/application/services"
	"atelier/domain/core/valueobjects"
	pkgerrors "atelier/pkg/errors"
	"atelier/pkg/utils"
)

// SelectNodeCommand switches the active node. An empty NodeID clears
// the selection. Pending edits of the file being left are flushed
// before the switch takes effect.
type SelectNodeCommand struct {
	NodeID string `json:"node_id" validate:"omitempty,uuid"`
}

// Validate validates the command
func (cmd SelectNodeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// SelectFileCommand switches the active file within a node
type SelectFileCommand struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
	FileID string `json:"file_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd SelectFileCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// SelectionHandler handles node and file selection commands
type SelectionHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewSelectionHandler creates a new handler instance
func NewSelectionHandler(store *services.WorkspaceStore, logger *zap.Logger) *SelectionHandler {
	return &SelectionHandler{store: store, logger: logger}
}

// Handle executes a selection command
func (h *SelectionHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	switch cmd := c.(type) {
	case SelectNodeCommand:
		if cmd.NodeID == "" {
			h.store.ClearSelection(ctx)
			return nil
		}
		nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid node id")
		}
		return h.store.SelectNode(ctx, nodeID)
	case SelectFileCommand:
		nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid node id")
		}
		fileID, err := valueobjects.NewFileIDFromString(cmd.FileID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid file id")
		}
		return h.store.SelectFile(ctx, nodeID, fileID)
	default:
		return pkgerrors.NewInternalError("unexpected command type")
	}
}
