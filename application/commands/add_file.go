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

// AddFileCommand creates a file in a node's codebase
type AddFileCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	FileID  string `json:"file_id" validate:"required,uuid"`
	Path    string `json:"path" validate:"required,max=255"`
	Content string `json:"content"`
}

// Validate validates the command
func (cmd AddFileCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// AddFileHandler handles the AddFileCommand
type AddFileHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewAddFileHandler creates a new handler instance
func NewAddFileHandler(store *services.WorkspaceStore, logger *zap.Logger) *AddFileHandler {
	return &AddFileHandler{store: store, logger: logger}
}

// Handle executes the add file command
func (h *AddFileHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(AddFileCommand)
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
	return h.store.AddFile(ctx, nodeID, fileID, cmd.Path, cmd.Content)
}
