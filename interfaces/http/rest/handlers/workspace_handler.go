// Package handlers implements the REST endpoints. Handlers translate
// HTTP to commands and queries; ids the client needs back are
// allocated here and passed down, so responses never wait on anything
// but the command itself.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"atelier/application/commands"
	"atelier/application/commands/bus"
	"atelier/application/queries"
	querybus "atelier/application/queries/bus"
	"atelier/pkg/common"
)

// WorkspaceHandler handles workspace-level HTTP requests
type WorkspaceHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

// GetWorkspace handles GET /workspace
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetWorkspaceQuery{})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// CanvasRequest is the body for PUT /workspace/canvas
type CanvasRequest struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Scale   float64 `json:"scale"`
}

// SetCanvas handles PUT /workspace/canvas
func (h *WorkspaceHandler) SetCanvas(w http.ResponseWriter, r *http.Request) {
	var req CanvasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.SetCanvasTransformCommand{
		OffsetX: req.OffsetX,
		OffsetY: req.OffsetY,
		Scale:   req.Scale,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// SelectionRequest is the body for PUT /workspace/selection. An empty
// node_id clears the selection.
type SelectionRequest struct {
	NodeID string `json:"node_id"`
}

// SetSelection handles PUT /workspace/selection
func (h *WorkspaceHandler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	if err := h.commandBus.Send(r.Context(), commands.SelectNodeCommand{NodeID: req.NodeID}); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// GetContext handles GET /workspace/context
func (h *WorkspaceHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	query := queries.AssistantContextQuery{NodeID: r.URL.Query().Get("node_id")}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}
