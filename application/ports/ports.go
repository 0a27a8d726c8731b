// Package ports declares the interfaces the application layer needs
// from infrastructure. The domain never sees the implementations.
package ports

import (
	"context"

	"atelier/domain/core/aggregates"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	"atelier/domain/scaffold"
)

// FileSnapshot is an immutable copy of one file taken under the store
// lock. Disk writers only ever see snapshots, never live entities.
type FileSnapshot struct {
	NodeID      valueobjects.NodeID
	FileID      valueobjects.FileID
	ProjectPath string
	Path        valueobjects.RelPath
	Content     string
}

// ProjectLayout is everything the materializer needs to build or
// refresh a node's on-disk tree.
type ProjectLayout struct {
	NodeID      valueobjects.NodeID
	Name        string
	Language    scaffold.Language
	ProjectPath string
	Files       []FileSnapshot
}

// MaterializeResult reports what a full materialization produced.
type MaterializeResult struct {
	ProjectPath     string
	EnvironmentPath string
	RuntimeVersion  string
}

// Materializer translates a node's in-memory file set into an on-disk
// directory tree following the scaffold catalog convention.
type Materializer interface {
	// ProjectRoot derives the stable on-disk root for a node id.
	ProjectRoot(id valueobjects.NodeID) string

	// CreateProjectStructure creates root, scaffold directories, the
	// manifest (only if absent) and every listed file. Idempotent:
	// re-running never destroys or duplicates unlisted files.
	CreateProjectStructure(ctx context.Context, layout ProjectLayout) (MaterializeResult, error)

	// SaveFile writes a single file's content, creating intermediate
	// directories as needed.
	SaveFile(ctx context.Context, snap FileSnapshot) error

	// DeleteFile removes the on-disk counterpart; already-missing
	// files are not an error.
	DeleteFile(ctx context.Context, projectPath string, path valueobjects.RelPath) error

	// RenameFile renames on disk. The caller owns the in-memory
	// rollback when this fails.
	RenameFile(ctx context.Context, projectPath string, oldPath, newPath valueobjects.RelPath) error
}

// FileResolver re-resolves a (node, file) pair against current state
// at write time. A snapshot is taken under the store lock, so a
// debounced write always lands the latest content at the latest path,
// and a deleted file simply fails to resolve.
type FileResolver interface {
	ResolveFile(nodeID valueobjects.NodeID, fileID valueobjects.FileID) (FileSnapshot, bool)
}

// FlushCoordinator serializes and debounces per-file disk writes so
// rapid edits coalesce and the UI event path never waits on I/O.
type FlushCoordinator interface {
	// Schedule records that a file has pending in-memory changes and
	// arms (or re-arms) its debounce timer.
	Schedule(nodeID valueobjects.NodeID, fileID valueobjects.FileID)

	// Flush synchronously writes a file's pending edit, if any.
	// Content is re-resolved at write time, never captured by the
	// caller. Backs the flush-before-switch contract.
	Flush(nodeID valueobjects.NodeID, fileID valueobjects.FileID) error

	// FlushAll synchronously drains every pending write.
	FlushAll() error

	// Cancel drops any pending write for a file. Must be called
	// before the file's deletion so no write-after-delete can occur.
	Cancel(nodeID valueobjects.NodeID, fileID valueobjects.FileID)

	// CancelNode drops every pending write for a node.
	CancelNode(nodeID valueobjects.NodeID)

	// Close drains pending writes and stops the coordinator.
	Close() error
}

// EventBus fans domain events out to in-process subscribers (the SSE
// change feed, the drift watcher, tests).
type EventBus interface {
	Publish(ctx context.Context, event events.DomainEvent)
	PublishBatch(ctx context.Context, batch []events.DomainEvent)

	// Subscribe returns a receive channel and a cancel function. Slow
	// subscribers drop events rather than block publishers.
	Subscribe(buffer int) (<-chan events.DomainEvent, func())
}

// CheckpointStore persists workspace snapshots at defined checkpoints
// and restores them at startup.
type CheckpointStore interface {
	Save(ctx context.Context, ws *aggregates.Workspace) error
	Load(ctx context.Context) (*aggregates.Workspace, bool, error)
	Close() error
}

// DriftWatcher observes materialized project roots and reports
// out-of-band modifications. Informational: in-memory content stays
// authoritative.
type DriftWatcher interface {
	WatchProject(nodeID valueobjects.NodeID, projectPath string) error
	UnwatchProject(nodeID valueobjects.NodeID)
	Close() error
}

// RuntimeProbe detects an installed language runtime version to pin
// into a manifest. Best-effort: a miss falls back to the catalog
// default and never blocks project creation.
type RuntimeProbe interface {
	Version(ctx context.Context, language scaffold.Language) (string, bool)
}
