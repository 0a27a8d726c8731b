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

// RenameFileCommand changes a file's name in place. The directory
// prefix never changes; a failed disk rename rolls the in-memory
// rename back.
type RenameFileCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	FileID  string `json:"file_id" validate:"required,uuid"`
	NewName string `json:"new_name" validate:"required,max=255"`
}

// Validate validates the command
func (cmd RenameFileCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// RenameFileHandler handles the RenameFileCommand
type RenameFileHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewRenameFileHandler creates a new handler instance
func NewRenameFileHandler(store *services.WorkspaceStore, logger *zap.Logger) *RenameFileHandler {
	return &RenameFileHandler{store: store, logger: logger}
}

// Handle executes the rename file command
func (h *RenameFileHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(RenameFileCommand)
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
	return h.store.RenameFile(ctx, nodeID, fileID, cmd.NewName)
}
