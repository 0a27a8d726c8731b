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

// ConnectNodesCommand adds a directed connection between two nodes
type ConnectNodesCommand struct {
	SourceID string `json:"source_id" validate:"required,uuid"`
	TargetID string `json:"target_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd ConnectNodesCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// DisconnectNodesCommand removes a directed connection. Removing an
// absent connection succeeds without effect.
type DisconnectNodesCommand struct {
	SourceID string `json:"source_id" validate:"required,uuid"`
	TargetID string `json:"target_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd DisconnectNodesCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// ConnectionHandler handles connect and disconnect commands
type ConnectionHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewConnectionHandler creates a new handler instance
func NewConnectionHandler(store *services.WorkspaceStore, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{store: store, logger: logger}
}

// Handle executes a connection command
func (h *ConnectionHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	switch cmd := c.(type) {
	case ConnectNodesCommand:
		sourceID, err := valueobjects.NewNodeIDFromString(cmd.SourceID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid source id")
		}
		targetID, err := valueobjects.NewNodeIDFromString(cmd.TargetID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid target id")
		}
		return h.store.Connect(ctx, sourceID, targetID)
	case DisconnectNodesCommand:
		sourceID, err := valueobjects.NewNodeIDFromString(cmd.SourceID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid source id")
		}
		targetID, err := valueobjects.NewNodeIDFromString(cmd.TargetID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid target id")
		}
		h.store.Disconnect(ctx, sourceID, targetID)
		return nil
	default:
		return pkgerrors.NewInternalError("unexpected command type")
	}
}
