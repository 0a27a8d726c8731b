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

// RemoveFileCommand deletes a file from a node's codebase. Removing
// the last file regenerates a fresh main file in the same operation.
type RemoveFileCommand struct {
	NodeID string `json:"node_id" validate:"required,uuid"`
	FileID string `json:"file_id" validate:"required,uuid"`
}

// Validate validates the command
func (cmd RemoveFileCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// RemoveFileHandler handles the RemoveFileCommand
type RemoveFileHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewRemoveFileHandler creates a new handler instance
func NewRemoveFileHandler(store *services.WorkspaceStore, logger *zap.Logger) *RemoveFileHandler {
	return &RemoveFileHandler{store: store, logger: logger}
}

// Handle executes the remove file command
func (h *RemoveFileHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(RemoveFileCommand)
	if !ok {
		return pkgerrors.NewInternalError("unexpected command type")
	}

	nodeID, err := valueobjects.NewNodeIDFromString(cmd.NodeID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid node id")
	}
	fileID, err := valueobjects.NewFileIDFromString(cmd.FileID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid file id")
	}
	return h.store.RemoveFile(ctx, nodeID, fileID)
}
