package handlers

import (
	"context"
	"unicode/utf8"

	"atelier/application/queries"
	qbus "atelier/application/queries/bus"
	"atelier/application/services"
	"atelier/domain/config"
	"atelier/domain/core/aggregates"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	pkgerrors "atelier/pkg/errors"
)

// AssistantContextHandler handles AssistantContextQuery
type AssistantContextHandler struct {
	store *services.WorkspaceStore
	cfg   *config.DomainConfig
}

// NewAssistantContextHandler creates a new handler instance
func NewAssistantContextHandler(store *services.WorkspaceStore, cfg *config.DomainConfig) *AssistantContextHandler {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &AssistantContextHandler{store: store, cfg: cfg}
}

// Handle assembles the context document for a node. The active file
// carries full content; sibling files and the main files of connected
// nodes contribute bounded prefixes.
func (h *AssistantContextHandler) Handle(ctx context.Context, q qbus.Query) (interface{}, error) {
	query, ok := q.(queries.AssistantContextQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("unexpected query type")
	}

	var nodeID valueobjects.NodeID
	if query.NodeID != "" {
		parsed, err := valueobjects.NewNodeIDFromString(query.NodeID)
		if err != nil {
			return nil, pkgerrors.NewValidationError("invalid node id")
		}
		nodeID = parsed
	}

	var result *queries.AssistantContextResult
	h.store.Read(func(ws *aggregates.Workspace) {
		node, found := h.resolveTarget(ws, nodeID)
		if !found {
			return
		}
		r := h.buildContext(ws, node)
		result = &r
	})
	if result == nil {
		return nil, pkgerrors.NewNotFoundError("node")
	}
	return *result, nil
}

// resolveTarget picks the explicitly requested node, or falls back to
// the current selection.
func (h *AssistantContextHandler) resolveTarget(ws *aggregates.Workspace, nodeID valueobjects.NodeID) (*entities.Node, bool) {
	if !nodeID.IsZero() {
		return ws.Node(nodeID)
	}
	return ws.SelectedNode()
}

func (h *AssistantContextHandler) buildContext(ws *aggregates.Workspace, node *entities.Node) queries.AssistantContextResult {
	result := queries.AssistantContextResult{
		NodeID:       node.ID().String(),
		NodeName:     node.Name(),
		NodeType:     string(node.Type()),
		Language:     string(node.Language()),
		SiblingFiles: []queries.ContextFile{},
		ConnectedTo:  []queries.ConnectedNode{},
	}

	activeID := node.SelectedFileID()
	for _, f := range node.Files() {
		if f.ID().Equals(activeID) {
			result.ActiveFile = &queries.ContextFile{
				Path:    f.Path().String(),
				Content: f.Content(),
			}
			continue
		}
		content, truncated := contextPrefix(f.Content(), h.cfg.ContextPrefixBytes)
		result.SiblingFiles = append(result.SiblingFiles, queries.ContextFile{
			Path:      f.Path().String(),
			Content:   content,
			Truncated: truncated,
		})
	}

	for _, targetID := range node.Connections() {
		target, ok := ws.Node(targetID)
		if !ok {
			continue
		}
		main := target.MainFile()
		content, truncated := contextPrefix(main.Content(), h.cfg.ContextPrefixBytes)
		result.ConnectedTo = append(result.ConnectedTo, queries.ConnectedNode{
			ID:       target.ID().String(),
			Name:     target.Name(),
			NodeType: string(target.Type()),
			MainFile: queries.ContextFile{
				Path:      main.Path().String(),
				Content:   content,
				Truncated: truncated,
			},
		})
	}
	return result
}

// contextPrefix bounds content to max bytes, backing off to the
// nearest rune boundary so the prefix is always valid UTF-8.
func contextPrefix(content string, max int) (string, bool) {
	if len(content) <= max {
		return content, false
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut], true
}
