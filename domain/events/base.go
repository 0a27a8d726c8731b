package events

import (
	"time"

	"atelier/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// Node lifecycle events

// NodeCreated is raised when a new project node is created
type NodeCreated struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	Name     string              `json:"name"`
	NodeType string              `json:"node_type"`
	Language string              `json:"language"`
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID valueobjects.NodeID, name, nodeType, language string, ts time.Time) NodeCreated {
	return NodeCreated{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "node.created", Timestamp: ts},
		NodeID:    nodeID,
		Name:      name,
		NodeType:  nodeType,
		Language:  language,
	}
}

// NodeDeleted is raised when a node is removed from the workspace.
// AbandonedPath carries the materialized project root left on disk,
// so a UI can offer cleanup.
type NodeDeleted struct {
	BaseEvent
	NodeID        valueobjects.NodeID `json:"node_id"`
	AbandonedPath string              `json:"abandoned_path,omitempty"`
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(nodeID valueobjects.NodeID, abandonedPath string, ts time.Time) NodeDeleted {
	return NodeDeleted{
		BaseEvent:     BaseEvent{AggregateID: nodeID.String(), EventType: "node.deleted", Timestamp: ts},
		NodeID:        nodeID,
		AbandonedPath: abandonedPath,
	}
}

// NodeRenamed is raised when a node's display label changes
type NodeRenamed struct {
	BaseEvent
	NodeID  valueobjects.NodeID `json:"node_id"`
	OldName string              `json:"old_name"`
	NewName string              `json:"new_name"`
}

// NewNodeRenamed creates a NodeRenamed event
func NewNodeRenamed(nodeID valueobjects.NodeID, oldName, newName string, ts time.Time) NodeRenamed {
	return NodeRenamed{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "node.renamed", Timestamp: ts},
		NodeID:    nodeID,
		OldName:   oldName,
		NewName:   newName,
	}
}

// NodeMoved is raised when a node is dragged to a new canvas position
type NodeMoved struct {
	BaseEvent
	NodeID      valueobjects.NodeID   `json:"node_id"`
	OldPosition valueobjects.Position `json:"old_position"`
	NewPosition valueobjects.Position `json:"new_position"`
}

// NewNodeMoved creates a NodeMoved event
func NewNodeMoved(nodeID valueobjects.NodeID, oldPos, newPos valueobjects.Position, ts time.Time) NodeMoved {
	return NodeMoved{
		BaseEvent:   BaseEvent{AggregateID: nodeID.String(), EventType: "node.moved", Timestamp: ts},
		NodeID:      nodeID,
		OldPosition: oldPos,
		NewPosition: newPos,
	}
}

// NodeMaterialized is raised once the on-disk project structure exists
type NodeMaterialized struct {
	BaseEvent
	NodeID          valueobjects.NodeID `json:"node_id"`
	ProjectPath     string              `json:"project_path"`
	EnvironmentPath string              `json:"environment_path,omitempty"`
}

// NewNodeMaterialized creates a NodeMaterialized event
func NewNodeMaterialized(nodeID valueobjects.NodeID, projectPath, environmentPath string, ts time.Time) NodeMaterialized {
	return NodeMaterialized{
		BaseEvent:       BaseEvent{AggregateID: nodeID.String(), EventType: "node.materialized", Timestamp: ts},
		NodeID:          nodeID,
		ProjectPath:     projectPath,
		EnvironmentPath: environmentPath,
	}
}

// File events

// FileAdded is raised when a file joins a node's collection.
// Regenerated marks the compensating main file created when the last
// file of a node was removed.
type FileAdded struct {
	BaseEvent
	NodeID      valueobjects.NodeID  `json:"node_id"`
	FileID      valueobjects.FileID  `json:"file_id"`
	Path        valueobjects.RelPath `json:"path"`
	Regenerated bool                 `json:"regenerated,omitempty"`
}

// NewFileAdded creates a FileAdded event
func NewFileAdded(nodeID valueobjects.NodeID, fileID valueobjects.FileID, path valueobjects.RelPath, regenerated bool, ts time.Time) FileAdded {
	return FileAdded{
		BaseEvent:   BaseEvent{AggregateID: nodeID.String(), EventType: "file.added", Timestamp: ts},
		NodeID:      nodeID,
		FileID:      fileID,
		Path:        path,
		Regenerated: regenerated,
	}
}

// FileRemoved is raised when a file leaves a node's collection
type FileRemoved struct {
	BaseEvent
	NodeID valueobjects.NodeID  `json:"node_id"`
	FileID valueobjects.FileID  `json:"file_id"`
	Path   valueobjects.RelPath `json:"path"`
}

// NewFileRemoved creates a FileRemoved event
func NewFileRemoved(nodeID valueobjects.NodeID, fileID valueobjects.FileID, path valueobjects.RelPath, ts time.Time) FileRemoved {
	return FileRemoved{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "file.removed", Timestamp: ts},
		NodeID:    nodeID,
		FileID:    fileID,
		Path:      path,
	}
}

// FileContentUpdated is raised when a file's in-memory content changes
type FileContentUpdated struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	FileID valueobjects.FileID `json:"file_id"`
	Size   int                 `json:"size"`
}

// NewFileContentUpdated creates a FileContentUpdated event
func NewFileContentUpdated(nodeID valueobjects.NodeID, fileID valueobjects.FileID, size int, ts time.Time) FileContentUpdated {
	return FileContentUpdated{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "file.content_updated", Timestamp: ts},
		NodeID:    nodeID,
		FileID:    fileID,
		Size:      size,
	}
}

// FileRenamed is raised after a successful in-memory and on-disk rename
type FileRenamed struct {
	BaseEvent
	NodeID  valueobjects.NodeID  `json:"node_id"`
	FileID  valueobjects.FileID  `json:"file_id"`
	OldPath valueobjects.RelPath `json:"old_path"`
	NewPath valueobjects.RelPath `json:"new_path"`
}

// NewFileRenamed creates a FileRenamed event
func NewFileRenamed(nodeID valueobjects.NodeID, fileID valueobjects.FileID, oldPath, newPath valueobjects.RelPath, ts time.Time) FileRenamed {
	return FileRenamed{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "file.renamed", Timestamp: ts},
		NodeID:    nodeID,
		FileID:    fileID,
		OldPath:   oldPath,
		NewPath:   newPath,
	}
}

// Connection events

// NodesConnected is raised when a directed connection is added
type NodesConnected struct {
	BaseEvent
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
}

// NewNodesConnected creates a NodesConnected event
func NewNodesConnected(sourceID, targetID valueobjects.NodeID, ts time.Time) NodesConnected {
	return NodesConnected{
		BaseEvent: BaseEvent{AggregateID: sourceID.String(), EventType: "nodes.connected", Timestamp: ts},
		SourceID:  sourceID,
		TargetID:  targetID,
	}
}

// NodesDisconnected is raised when a directed connection is removed
type NodesDisconnected struct {
	BaseEvent
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
}

// NewNodesDisconnected creates a NodesDisconnected event
func NewNodesDisconnected(sourceID, targetID valueobjects.NodeID, ts time.Time) NodesDisconnected {
	return NodesDisconnected{
		BaseEvent: BaseEvent{AggregateID: sourceID.String(), EventType: "nodes.disconnected", Timestamp: ts},
		SourceID:  sourceID,
		TargetID:  targetID,
	}
}

// Workspace events

// SelectionChanged is raised when the active node or file changes
type SelectionChanged struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	FileID valueobjects.FileID `json:"file_id"`
}

// NewSelectionChanged creates a SelectionChanged event. Zero ids mean
// "nothing selected".
func NewSelectionChanged(nodeID valueobjects.NodeID, fileID valueobjects.FileID, ts time.Time) SelectionChanged {
	return SelectionChanged{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "workspace.selection_changed", Timestamp: ts},
		NodeID:    nodeID,
		FileID:    fileID,
	}
}

// CanvasTransformed is raised when the pan/zoom state changes
type CanvasTransformed struct {
	BaseEvent
	Transform valueobjects.CanvasTransform `json:"transform"`
}

// NewCanvasTransformed creates a CanvasTransformed event
func NewCanvasTransformed(t valueobjects.CanvasTransform, ts time.Time) CanvasTransformed {
	return CanvasTransformed{
		BaseEvent: BaseEvent{AggregateID: "workspace", EventType: "workspace.canvas_transformed", Timestamp: ts},
		Transform: t,
	}
}

// ExternalFileChanged is raised by the drift watcher when something
// outside the engine touches a managed file. Informational only: the
// in-memory content stays authoritative.
type ExternalFileChanged struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Path   string              `json:"path"`
}

// NewExternalFileChanged creates an ExternalFileChanged event
func NewExternalFileChanged(nodeID valueobjects.NodeID, path string, ts time.Time) ExternalFileChanged {
	return ExternalFileChanged{
		BaseEvent: BaseEvent{AggregateID: nodeID.String(), EventType: "file.external_change", Timestamp: ts},
		NodeID:    nodeID,
		Path:      path,
	}
}
