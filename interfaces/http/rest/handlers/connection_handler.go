package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"atelier/application/commands"
	"atelier/application/commands/bus"
	"atelier/pkg/common"
)

// ConnectionHandler handles connection-related HTTP requests
type ConnectionHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewConnectionHandler creates a new connection handler
func NewConnectionHandler(commandBus *bus.CommandBus, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{commandBus: commandBus, logger: logger}
}

// ConnectionRequest names the two endpoints of a connection
type ConnectionRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// Connect handles POST /connections
func (h *ConnectionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.ConnectNodesCommand{SourceID: req.SourceID, TargetID: req.TargetID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, nil)
}

// Disconnect handles DELETE /connections
func (h *ConnectionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}

	cmd := commands.DisconnectNodesCommand{SourceID: req.SourceID, TargetID: req.TargetID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, nil)
}
