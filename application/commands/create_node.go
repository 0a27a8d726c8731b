// Package commands defines the write-side operations of the workspace
// engine. Each command carries a caller-allocated id where the API
// needs to hand the id back, validates itself, and is executed by a
// handler that delegates to the workspace store.
package commands

import (
	"context"

	"go.uber.org/zap"

	cmdbus "atelier/application/commands/bus"
	"atelier/application/services"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
	"atelier/pkg/utils"
)

// CreateNodeCommand creates a new project node on the canvas
type CreateNodeCommand struct {
	NodeID   string  `json:"node_id" validate:"required,uuid"`
	Name     string  `json:"name" validate:"max=120"`
	NodeType string  `json:"node_type" validate:"required,oneof=macos_app iphone_app website cloud_backend custom"`
	Language string  `json:"language" validate:"omitempty,oneof=python go swift javascript typescript rust html"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Validate validates the command
func (cmd CreateNodeCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// CreateNodeHandler handles the CreateNodeCommand
type CreateNodeHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewCreateNodeHandler creates a new handler instance
func NewCreateNodeHandler(store *services.WorkspaceStore, logger *zap.Logger) *CreateNodeHandler {
	return &CreateNodeHandler{store: store, logger: logger}
}

// Handle executes the create node command
func (h *CreateNodeHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(CreateNodeCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type")
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid node id")
	}
	position, err := valueobjects.NewPosition(cmd.X, cmd.Y)
	if err != nil {
		return err
	}

	return h.store.CreateNode(ctx, nodeID, cmd.Name,
		entities.NodeType(cmd.NodeType), scaffold.Language(cmd.Language), position)
}
