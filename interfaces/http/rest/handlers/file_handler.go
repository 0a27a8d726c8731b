package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"atelier/application/commands"
	"atelier/application/commands/bus"
	"atelier/application/queries"
	querybus "atelier/application/queries/bus"
	"atelier/pkg/common"
)

// FileHandler handles file-related HTTP requests
type FileHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *FileHandler {
	return &FileHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

// AddFileRequest represents the request body for creating a file
type AddFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
}

// AddFileResponse carries the id of the created file
type AddFileResponse struct {
	ID string `json:"id"`
}

// AddFile handles POST /nodes/{nodeID}/files
func (h *FileHandler) AddFile(w http.ResponseWriter, r *http.Request) {
	var req AddFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	fileID := uuid.New().String()
	cmd := commands.AddFileCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		FileID:  fileID,
		Path:    req.Path,
		Content: req.Content,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, AddFileResponse{ID: fileID})
}

// GetFile handles GET /nodes/{nodeID}/files/{fileID}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	query := queries.GetFileQuery{
		NodeID: chi.URLParam(r, "nodeID"),
		FileID: chi.URLParam(r, "fileID"),
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// UpdateFileRequest is the body for PUT /nodes/{nodeID}/files/{fileID}
type UpdateFileRequest struct {
	Content string `json:"content"`
}

// UpdateFile handles PUT /nodes/{nodeID}/files/{fileID}
func (h *FileHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	var req UpdateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.UpdateFileContentCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		FileID:  chi.URLParam(r, "fileID"),
		Content: req.Content,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// RenameFileRequest is the body for PUT /nodes/{nodeID}/files/{fileID}/name
type RenameFileRequest struct {
	Name string `json:"name"`
}

// RenameFile handles PUT /nodes/{nodeID}/files/{fileID}/name
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	var req RenameFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.RenameFileCommand{
		NodeID:  chi.URLParam(r, "nodeID"),
		FileID:  chi.URLParam(r, "fileID"),
		NewName: req.Name,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// DeleteFile handles DELETE /nodes/{nodeID}/files/{fileID}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	cmd := commands.RemoveFileCommand{
		NodeID: chi.URLParam(r, "nodeID"),
		FileID: chi.URLParam(r, "fileID"),
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}
