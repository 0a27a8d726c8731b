package aggregates

import (
	"time"

	"atelier/domain/config"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	pkgerrors "atelier/pkg/errors"
)

// Workspace is the aggregate root for the node graph: the canonical
// node collection, the UI selection state and the canvas transform.
// It is the only place graph invariants are enforced; everything else
// funnels through the workspace store, which owns exactly one of
// these.
type Workspace struct {
	nodes          map[valueobjects.NodeID]*entities.Node
	order          []valueobjects.NodeID
	selectedNodeID valueobjects.NodeID
	canvas         valueobjects.CanvasTransform
	createdAt      time.Time
	updatedAt      time.Time

	events []events.DomainEvent
}

// NewWorkspace creates an empty workspace with the identity canvas
// transform.
func NewWorkspace() *Workspace {
	now := time.Now()
	return &Workspace{
		nodes:     make(map[valueobjects.NodeID]*entities.Node),
		order:     []valueobjects.NodeID{},
		canvas:    valueobjects.DefaultCanvasTransform(),
		createdAt: now,
		updatedAt: now,
		events:    []events.DomainEvent{},
	}
}

// ReconstructWorkspace rehydrates a workspace from a checkpoint. Nodes
// must arrive in their original order; a stale selection reference is
// dropped rather than rejected.
func ReconstructWorkspace(
	nodes []*entities.Node,
	selectedNodeID valueobjects.NodeID,
	canvas valueobjects.CanvasTransform,
) (*Workspace, error) {
	w := NewWorkspace()
	for _, n := range nodes {
		if n == nil {
			return nil, pkgerrors.NewValidationError("node cannot be nil")
		}
		if _, exists := w.nodes[n.ID()]; exists {
			return nil, pkgerrors.NewConflictError("duplicate node id " + n.ID().String())
		}
		w.nodes[n.ID()] = n
		w.order = append(w.order, n.ID())
	}
	if !selectedNodeID.IsZero() {
		if _, ok := w.nodes[selectedNodeID]; ok {
			w.selectedNodeID = selectedNodeID
		}
	}
	w.canvas = valueobjects.NewCanvasTransform(canvas.Offset, canvas.Scale)
	return w, nil
}

// AddNode appends a node and makes it the current selection, matching
// the editor behavior where a freshly dropped node is active.
func (w *Workspace) AddNode(node *entities.Node, cfg *config.DomainConfig) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if _, exists := w.nodes[node.ID()]; exists {
		return pkgerrors.NewConflictError("node already exists in workspace")
	}
	if len(w.nodes) >= cfg.MaxNodesPerWorkspace {
		return pkgerrors.NewValidationError("maximum nodes per workspace reached")
	}

	w.nodes[node.ID()] = node
	w.order = append(w.order, node.ID())
	w.selectedNodeID = node.ID()
	w.updatedAt = time.Now()

	w.addEvent(events.NewSelectionChanged(node.ID(), node.SelectedFileID(), w.updatedAt))
	return nil
}

// RemoveNode deletes a node, cascades the removal of its id from every
// other node's connection set and clears the selection if it pointed
// at the node. The UI is expected to re-select afterwards.
func (w *Workspace) RemoveNode(id valueobjects.NodeID) (*entities.Node, bool) {
	node, exists := w.nodes[id]
	if !exists {
		return nil, false
	}

	delete(w.nodes, id)
	kept := w.order[:0]
	for _, oid := range w.order {
		if !oid.Equals(id) {
			kept = append(kept, oid)
		}
	}
	w.order = kept

	// No dangling connection references may survive a deletion.
	for _, other := range w.nodes {
		other.DisconnectFrom(id)
	}

	if w.selectedNodeID.Equals(id) {
		w.selectedNodeID = valueobjects.NodeID{}
		w.addEvent(events.NewSelectionChanged(valueobjects.NodeID{}, valueobjects.FileID{}, time.Now()))
	}

	w.updatedAt = time.Now()
	w.addEvent(events.NewNodeDeleted(id, node.ProjectPath(), w.updatedAt))
	return node, true
}

// Node resolves a node by identity.
func (w *Workspace) Node(id valueobjects.NodeID) (*entities.Node, bool) {
	node, ok := w.nodes[id]
	return node, ok
}

// HasNode reports whether a node exists
func (w *Workspace) HasNode(id valueobjects.NodeID) bool {
	_, ok := w.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (w *Workspace) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(w.order))
	for _, id := range w.order {
		nodes = append(nodes, w.nodes[id])
	}
	return nodes
}

// NodeCount returns how many nodes the workspace holds
func (w *Workspace) NodeCount() int {
	return len(w.nodes)
}

// SelectedNodeID returns the selected node reference, zero when unset
func (w *Workspace) SelectedNodeID() valueobjects.NodeID {
	return w.selectedNodeID
}

// SelectedNode resolves the current node selection.
func (w *Workspace) SelectedNode() (*entities.Node, bool) {
	if w.selectedNodeID.IsZero() {
		return nil, false
	}
	return w.Node(w.selectedNodeID)
}

// SelectNode moves the node selection. The target must exist; a stale
// id is reported, never applied. Flushing pending edits of the
// previous selection is the caller's contract and happens before this
// is invoked.
func (w *Workspace) SelectNode(id valueobjects.NodeID) error {
	node, ok := w.nodes[id]
	if !ok {
		return pkgerrors.NewNotFoundError("node")
	}
	if w.selectedNodeID.Equals(id) {
		return nil
	}
	w.selectedNodeID = id
	w.updatedAt = time.Now()
	w.addEvent(events.NewSelectionChanged(id, node.SelectedFileID(), w.updatedAt))
	return nil
}

// ClearSelection drops the node selection
func (w *Workspace) ClearSelection() {
	if w.selectedNodeID.IsZero() {
		return
	}
	w.selectedNodeID = valueobjects.NodeID{}
	w.updatedAt = time.Now()
	w.addEvent(events.NewSelectionChanged(valueobjects.NodeID{}, valueobjects.FileID{}, w.updatedAt))
}

// Connect adds a directed connection between two existing nodes.
func (w *Workspace) Connect(fromID, toID valueobjects.NodeID, cfg *config.DomainConfig) error {
	from, ok := w.nodes[fromID]
	if !ok {
		return pkgerrors.NewNotFoundError("source node")
	}
	if _, ok := w.nodes[toID]; !ok {
		return pkgerrors.NewNotFoundError("target node")
	}
	if err := from.ConnectTo(toID, cfg); err != nil {
		return err
	}
	w.updatedAt = time.Now()
	return nil
}

// Disconnect removes a directed connection. Absent connections and
// unknown ids are benign no-ops.
func (w *Workspace) Disconnect(fromID, toID valueobjects.NodeID) bool {
	from, ok := w.nodes[fromID]
	if !ok {
		return false
	}
	if !from.DisconnectFrom(toID) {
		return false
	}
	w.updatedAt = time.Now()
	return true
}

// Canvas returns the pan/zoom state
func (w *Workspace) Canvas() valueobjects.CanvasTransform {
	return w.canvas
}

// SetCanvas updates the pan/zoom state, clamping the scale.
func (w *Workspace) SetCanvas(offset valueobjects.Position, scale float64) {
	next := valueobjects.NewCanvasTransform(offset, scale)
	if next.Equals(w.canvas) {
		return
	}
	w.canvas = next
	w.updatedAt = time.Now()
	w.addEvent(events.NewCanvasTransformed(next, w.updatedAt))
}

// CreatedAt returns when the workspace was created
func (w *Workspace) CreatedAt() time.Time {
	return w.createdAt
}

// UpdatedAt returns when the workspace was last mutated
func (w *Workspace) UpdatedAt() time.Time {
	return w.updatedAt
}

// Validate checks every workspace invariant. Mutations are built so
// this can never fail; it backs tests and checkpoint loading.
func (w *Workspace) Validate() error {
	if len(w.nodes) != len(w.order) {
		return pkgerrors.NewInternalError("node index and order diverged")
	}
	for _, id := range w.order {
		node, ok := w.nodes[id]
		if !ok {
			return pkgerrors.NewInternalError("ordered id " + id.String() + " missing from index")
		}
		if node.FileCount() == 0 {
			return pkgerrors.NewInternalError("node " + id.String() + " has an empty file set")
		}
		if sel := node.SelectedFileID(); !sel.IsZero() {
			if _, ok := node.File(sel); !ok {
				return pkgerrors.NewInternalError("node " + id.String() + " selection does not resolve")
			}
		}
		for _, target := range node.Connections() {
			if target.Equals(id) {
				return pkgerrors.NewInternalError("node " + id.String() + " has a self-loop")
			}
		}
	}
	if !w.selectedNodeID.IsZero() {
		if _, ok := w.nodes[w.selectedNodeID]; !ok {
			return pkgerrors.NewInternalError("workspace selection does not resolve")
		}
	}
	if w.canvas.Scale < valueobjects.MinCanvasScale || w.canvas.Scale > valueobjects.MaxCanvasScale {
		return pkgerrors.NewInternalError("canvas scale out of range")
	}
	return nil
}

// GetUncommittedEvents returns all uncommitted domain events,
// including those raised by the contained nodes.
func (w *Workspace) GetUncommittedEvents() []events.DomainEvent {
	all := make([]events.DomainEvent, len(w.events))
	copy(all, w.events)
	for _, id := range w.order {
		all = append(all, w.nodes[id].GetUncommittedEvents()...)
	}
	return all
}

// MarkEventsAsCommitted clears all uncommitted events
func (w *Workspace) MarkEventsAsCommitted() {
	w.events = []events.DomainEvent{}
	for _, node := range w.nodes {
		node.MarkEventsAsCommitted()
	}
}

func (w *Workspace) addEvent(event events.DomainEvent) {
	w.events = append(w.events, event)
}
