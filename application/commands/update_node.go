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

// RenameNodeCommand changes a node's display label
type RenameNodeCommand struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
	Name   string `json:"name" validate:"required,max=120"`
}

// Validate validates the command
func (cmd RenameNodeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// MoveNodeCommand drags a node to a new canvas position
type MoveNodeCommand struct {
	NodeID string  `json:"node_id" validate:"required,uuid"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// Validate validates the command
func (cmd MoveNodeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// UpdateNodeHandler handles node rename and move commands
type UpdateNodeHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewUpdateNodeHandler creates a new handler instance
func NewUpdateNodeHandler(store *services.WorkspaceStore, logger *zap.Logger) *UpdateNodeHandler {
	return &UpdateNodeHandler{store: store, logger: logger}
}

// Handle executes a rename or move command
func (h *UpdateNodeHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	switch cmd := c.(type) {
	case RenameNodeCommand:
		nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid node id")
		}
		return h.store.RenameNode(ctx, nodeID, cmd.Name)
	case MoveNodeCommand:
		nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid node id")
		}
		position, err := valueobjects.NewPosition(cmd.X, cmd.Y)
		if err != nil {
			return err
		}
		return h.store.MoveNode(ctx, nodeID, position)
	default:
		return pkgerrors.NewInternalError("unexpected command type")
	}
}
