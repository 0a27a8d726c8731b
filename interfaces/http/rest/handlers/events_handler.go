package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"atelier/application/ports"
)

// EventsHandler streams the workspace change feed over Server-Sent
// Events so the UI can react to mutations it did not initiate.
type EventsHandler struct {
	bus    ports.EventBus
	logger *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(bus ports.EventBus, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

// Stream handles GET /events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.bus.Subscribe(128)
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("event marshal failed",
					zap.String("event_type", event.GetEventType()),
					zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.GetEventType(), payload)
			flusher.Flush()
		}
	}
}
