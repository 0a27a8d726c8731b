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

// NodeHandler handles node-related HTTP requests
type NodeHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(commandBus *bus.CommandBus, queryBus *querybus.QueryBus, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{commandBus: commandBus, queryBus: queryBus, logger: logger}
}

// CreateNodeRequest represents the request body for creating a node
type CreateNodeRequest struct {
	Name     string  `json:"name,omitempty"`
	NodeType string  `json:"node_type"`
	Language string  `json:"language,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// CreateNodeResponse carries the id of the created node
type CreateNodeResponse struct {
	ID string `json:"id"`
}

// CreateNode handles POST /nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	nodeID := uuid.New().String()
	cmd := commands.CreateNodeCommand{
		NodeID:   nodeID,
		Name:     req.Name,
		NodeType: req.NodeType,
		Language: req.Language,
		X:        req.X,
		Y:        req.Y,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, CreateNodeResponse{ID: nodeID})
}

// GetNode handles GET /nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	query := queries.GetNodeQuery{NodeID: chi.URLParam(r, "nodeID")}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// DeleteNode handles DELETE /nodes/{nodeID}
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	cmd := commands.DeleteNodeCommand{NodeID: chi.URLParam(r, "nodeID")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// RenameNodeRequest is the body for PUT /nodes/{nodeID}/name
type RenameNodeRequest struct {
	Name string `json:"name"`
}

// RenameNode handles PUT /nodes/{nodeID}/name
func (h *NodeHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	var req RenameNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.RenameNodeCommand{NodeID: chi.URLParam(r, "nodeID"), Name: req.Name}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// MoveNodeRequest is the body for PUT /nodes/{nodeID}/position
type MoveNodeRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MoveNode handles PUT /nodes/{nodeID}/position
func (h *NodeHandler) MoveNode(w http.ResponseWriter, r *http.Request) {
	var req MoveNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.MoveNodeCommand{NodeID: chi.URLParam(r, "nodeID"), X: req.X, Y: req.Y}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}

// SelectFileRequest is the body for PUT /nodes/{nodeID}/selection
type SelectFileRequest struct {
	FileID string `json:"file_id"`
}

// SelectFile handles PUT /nodes/{nodeID}/selection
func (h *NodeHandler) SelectFile(w http.ResponseWriter, r *http.Request) {
	var req SelectFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.SelectFileCommand{NodeID: chi.URLParam(r, "nodeID"), FileID: req.FileID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}
