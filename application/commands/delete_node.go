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

// DeleteNodeCommand removes a node from the workspace. Deleting an
// already-deleted node succeeds without effect.
type DeleteNodeCommand struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd DeleteNodeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// DeleteNodeHandler handles the DeleteNodeCommand
type DeleteNodeHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewDeleteNodeHandler creates a new handler instance
func NewDeleteNodeHandler(store *services.WorkspaceStore, logger *zap.Logger) *DeleteNodeHandler {
	return &DeleteNodeHandler{store: store, logger: logger}
}

// Handle executes the delete node command
func (h *DeleteNodeHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(DeleteNodeCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type")
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid node id")
	}
	return h.store.DeleteNode(ctx, nodeID)
}
