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

// SetCanvasTransformCommand updates the workspace pan/zoom state. The
// scale is clamped to the allowed range rather than rejected.
type SetCanvasTransformCommand struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Scale   float64 `json:"scale"`
}

// Validate validates the command
func (cmd SetCanvasTransformCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// CanvasHandler handles the SetCanvasTransformCommand
type CanvasHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewCanvasHandler creates a new handler instance
func NewCanvasHandler(store *services.WorkspaceStore, logger *zap.Logger) *CanvasHandler {
	return &CanvasHandler{store: store, logger: logger}
}

// Handle executes the canvas transform command
func (h *CanvasHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(SetCanvasTransformCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type")
	}

	offset, err := valueobjects.NewPosition(cmd.OffsetX, cmd.OffsetY)
	if err != nil {
		return err
	}
	h.store.SetCanvasTransform(ctx, offset, cmd.Scale)
	return nil
}
