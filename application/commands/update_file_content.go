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

// UpdateFileContentCommand replaces a file's in-memory content. The
// disk write is debounced; the command returns as soon as memory is
// updated.
type UpdateFileContentCommand struct {
	NodeID  string `json:"node_id" validate:"required,uuid"`
	FileID  string `json:"file_id" validate:"required,uuid"`
	Content string `json:"content"`
}

// Validate validates the command
func (cmd UpdateFileContentCommand) Validate() error {
	return utils.ValidateStruct(cmd)
}

// UpdateFileContentHandler handles the UpdateFileContentCommand
type UpdateFileContentHandler struct {
	store  *services.WorkspaceStore
	logger *zap.Logger
}

// NewUpdateFileContentHandler creates a new handler instance
func NewUpdateFileContentHandler(store *services.WorkspaceStore, logger *zap.Logger) *UpdateFileContentHandler {
	return &UpdateFileContentHandler{store: store, logger: logger}
}

// Handle executes the update file content command
func (h *UpdateFileContentHandler) Handle(ctx context.Context, c cmdbus.Command) error {
	cmd, ok := c.(UpdateFileContentCommand)
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
	return h.store.UpdateFileContent(ctx, nodeID, fileID, cmd.Content)
}
