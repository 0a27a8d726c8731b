// Package services holds the application services that orchestrate the
// domain. WorkspaceStore is the single writer for the workspace
// aggregate; every mutation in the system funnels through it.
package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"atelier/application/ports"
	"atelier/domain/config"
	"atelier/domain/core/aggregates"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

// WorkspaceStore owns the one live Workspace aggregate and serializes
// all mutations behind a single mutex. Domain events are drained under
// the lock and published after it is released, so subscribers never
// run inside the critical section.
type WorkspaceStore struct {
	mu sync.Mutex
	ws *aggregates.Workspace

	cfg          *config.DomainConfig
	materializer ports.Materializer
	bus          ports.EventBus
	flusher      ports.FlushCoordinator
	logger       *zap.Logger
}

// NewWorkspaceStore creates a store around an existing aggregate,
// normally a fresh workspace or one restored from a checkpoint. The
// flush coordinator is attached separately because it needs the store
// as its file resolver.
func NewWorkspaceStore(
	ws *aggregates.Workspace,
	cfg *config.DomainConfig,
	materializer ports.Materializer,
	bus ports.EventBus,
	logger *zap.Logger,
) *WorkspaceStore {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkspaceStore{
		ws:           ws,
		cfg:          cfg,
		materializer: materializer,
		bus:          bus,
		logger:       logger,
	}
}

// AttachFlusher wires the flush coordinator in after construction.
func (s *WorkspaceStore) AttachFlusher(f ports.FlushCoordinator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flusher = f
}

// Read runs fn under the store lock against the live aggregate. fn
// must not retain references past its return; query handlers use this
// to build snapshots.
func (s *WorkspaceStore) Read(fn func(ws *aggregates.Workspace)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.ws)
}

// ResolveFile implements ports.FileResolver. A debounced write calls
// this at fire time so it always lands the latest content at the
// latest path; a deleted file or node simply fails to resolve. Files
// of a node whose disk tree does not exist yet resolve false and are
// rescheduled once materialization completes.
func (s *WorkspaceStore) ResolveFile(nodeID valueobjects.NodeID, fileID valueobjects.FileID) (ports.FileSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.ws.Node(nodeID)
	if !ok {
		return ports.FileSnapshot{}, false
	}
	file, ok := node.File(fileID)
	if !ok {
		return ports.FileSnapshot{}, false
	}
	if node.ProjectPath() == "" {
		return ports.FileSnapshot{}, false
	}
	return ports.FileSnapshot{
		NodeID:      nodeID,
		FileID:      fileID,
		ProjectPath: node.ProjectPath(),
		Path:        file.Path(),
		Content:     file.Content(),
	}, true
}

// CreateNode adds a node under a caller-allocated id and kicks off
// materialization of its disk tree in the background. The node is
// usable immediately; disk writes catch up once the tree exists.
func (s *WorkspaceStore) CreateNode(
	ctx context.Context,
	id valueobjects.NodeID,
	name string,
	nodeType entities.NodeType,
	language scaffold.Language,
	position valueobjects.Position,
) error {
	if language == "" {
		language = entities.DefaultLanguageFor(nodeType)
	}

	node, err := entities.NewNodeWithID(id, name, nodeType, language, position, s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.ws.AddNode(node, s.cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	go s.materialize(context.WithoutCancel(ctx), id)
	return nil
}

// DeleteNode removes a node. Pending disk writes for the node are
// cancelled first so no write can land after the deletion; the
// materialized tree is left on disk and reported via the NodeDeleted
// event. Deleting an unknown id is a benign no-op.
func (s *WorkspaceStore) DeleteNode(ctx context.Context, id valueobjects.NodeID) error {
	if s.flusher != nil {
		s.flusher.CancelNode(id)
	}

	s.mu.Lock()
	node, removed := s.ws.RemoveNode(id)
	drained := s.drainLocked()
	s.mu.Unlock()

	if !removed {
		return nil
	}
	s.logger.Info("node deleted",
		zap.String("node_id", id.String()),
		zap.String("abandoned_path", node.ProjectPath()))
	s.publish(ctx, drained)
	return nil
}

// RenameNode changes a node's display label.
func (s *WorkspaceStore) RenameNode(ctx context.Context, id valueobjects.NodeID, name string) error {
	s.mu.Lock()
	node, ok := s.ws.Node(id)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	if err := node.Rename(name, s.cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// MoveNode updates a node's canvas position.
func (s *WorkspaceStore) MoveNode(ctx context.Context, id valueobjects.NodeID, position valueobjects.Position) error {
	s.mu.Lock()
	node, ok := s.ws.Node(id)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	node.MoveTo(position)
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// SelectNode switches the active node. Pending edits of the previously
// selected file are flushed before the switch so leaving a node never
// loses work.
func (s *WorkspaceStore) SelectNode(ctx context.Context, id valueobjects.NodeID) error {
	prevNode, prevFile, hasPrev := s.selectedFileRef()
	if hasPrev {
		if err := s.flushFile(prevNode, prevFile); err != nil {
			return err
		}
	}

	s.mu.Lock()
	if err := s.ws.SelectNode(id); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// ClearSelection drops the node selection.
func (s *WorkspaceStore) ClearSelection(ctx context.Context) {
	prevNode, prevFile, hasPrev := s.selectedFileRef()
	if hasPrev {
		if err := s.flushFile(prevNode, prevFile); err != nil {
			s.logger.Warn("flush before clearing selection failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.ws.ClearSelection()
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
}

// SelectFile switches the active file within a node, flushing pending
// edits of the file being left first.
func (s *WorkspaceStore) SelectFile(ctx context.Context, nodeID valueobjects.NodeID, fileID valueobjects.FileID) error {
	s.mu.Lock()
	node, ok := s.ws.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	var prevFile valueobjects.FileID
	hasPrev := false
	if cur := node.SelectedFileID(); !cur.IsZero() && !cur.Equals(fileID) {
		prevFile, hasPrev = cur, true
	}
	s.mu.Unlock()

	if hasPrev {
		if err := s.flushFile(nodeID, prevFile); err != nil {
			return err
		}
	}

	s.mu.Lock()
	node, ok = s.ws.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	if err := node.SelectFile(fileID); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// AddFile creates a file in a node under a caller-allocated id and
// schedules its first disk write.
func (s *WorkspaceStore) AddFile(
	ctx context.Context,
	nodeID valueobjects.NodeID,
	fileID valueobjects.FileID,
	path string,
	content string,
) error {
	relPath, err := valueobjects.NewRelPath(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	node, ok := s.ws.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	if _, err := node.AddFileWithID(fileID, relPath, node.Language(), content, s.cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	if s.flusher != nil {
		s.flusher.Schedule(nodeID, fileID)
	}
	s.publish(ctx, drained)
	return nil
}

// RemoveFile deletes a file from a node. The pending write is
// cancelled before the in-memory removal so a stale debounce can never
// recreate the file on disk. Removing the last file regenerates a
// fresh main file in the same mutation.
func (s *WorkspaceStore) RemoveFile(ctx context.Context, nodeID valueobjects.NodeID, fileID valueobjects.FileID) error {
	if s.flusher != nil {
		s.flusher.Cancel(nodeID, fileID)
	}

	s.mu.Lock()
	node, ok := s.ws.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	removed, regenerated, err := node.RemoveFile(fileID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	projectPath := node.ProjectPath()
	removedPath := removed.Path()
	var regeneratedID valueobjects.FileID
	if regenerated != nil {
		regeneratedID = regenerated.ID()
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	if projectPath != "" {
		if err := s.materializer.DeleteFile(ctx, projectPath, removedPath); err != nil {
			// In-memory state already moved on; disk cleanup is best
			// effort and the drift watcher surfaces leftovers.
			s.logger.Warn("disk delete failed",
				zap.String("node_id", nodeID.String()),
				zap.String("path", removedPath.String()),
				zap.Error(err))
		}
	}
	if s.flusher != nil && !regeneratedID.IsZero() {
		s.flusher.Schedule(nodeID, regeneratedID)
	}
	s.publish(ctx, drained)
	return nil
}

// UpdateFileContent replaces a file's in-memory content and arms the
// debounce timer. The call returns before any disk write happens.
func (s *WorkspaceStore) UpdateFileContent(ctx context.Context, nodeID valueobjects.NodeID, fileID valueobjects.FileID, content string) error {
	s.mu.Lock()
	node, ok := s.ws.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	if err := node.UpdateFileContent(fileID, content, s.cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	if s.flusher != nil {
		s.flusher.Schedule(nodeID, fileID)
	}
	s.publish(ctx, drained)
	return nil
}

// RenameFile renames a file in memory and on disk. The store lock is
// held across the disk rename so a failure can roll the in-memory
// state back atomically; in that case the rename's events are
// discarded and the error surfaces to the caller.
func (s *WorkspaceStore) RenameFile(ctx context.Context, nodeID valueobjects.NodeID, fileID valueobjects.FileID, newName string) error {
	s.mu.Lock()
	node, ok := s.ws.Node(nodeID)
	if !ok {
		s.mu.Unlock()
		return pkgerrors.NewNotFoundError("node")
	}
	oldPath, newPath, err := node.RenameFile(fileID, newName)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if oldPath.Equals(newPath) {
		s.mu.Unlock()
		return nil
	}

	if projectPath := node.ProjectPath(); projectPath != "" {
		if err := s.materializer.RenameFile(ctx, projectPath, oldPath, newPath); err != nil {
			node.RestoreFilePath(fileID, oldPath)
			s.drainLocked()
			s.mu.Unlock()
			s.logger.Warn("disk rename failed, rolled back",
				zap.String("node_id", nodeID.String()),
				zap.String("file_id", fileID.String()),
				zap.Error(err))
			return pkgerrors.NewIOError("rename file", err)
		}
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// Connect adds a directed connection between two nodes. Self-loops
// and duplicates are silent no-ops.
func (s *WorkspaceStore) Connect(ctx context.Context, fromID, toID valueobjects.NodeID) error {
	s.mu.Lock()
	if err := s.ws.Connect(fromID, toID, s.cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
	return nil
}

// Disconnect removes a directed connection. Unknown ids and absent
// connections are benign no-ops.
func (s *WorkspaceStore) Disconnect(ctx context.Context, fromID, toID valueobjects.NodeID) {
	s.mu.Lock()
	changed := s.ws.Disconnect(fromID, toID)
	drained := s.drainLocked()
	s.mu.Unlock()

	if changed {
		s.publish(ctx, drained)
	}
}

// SetCanvasTransform updates the pan/zoom state, clamping the scale.
func (s *WorkspaceStore) SetCanvasTransform(ctx context.Context, offset valueobjects.Position, scale float64) {
	s.mu.Lock()
	s.ws.SetCanvas(offset, scale)
	drained := s.drainLocked()
	s.mu.Unlock()

	s.publish(ctx, drained)
}

// drainLocked collects and clears all uncommitted domain events. The
// caller must hold the store lock.
func (s *WorkspaceStore) drainLocked() []events.DomainEvent {
	drained := s.ws.GetUncommittedEvents()
	s.ws.MarkEventsAsCommitted()
	return drained
}

// publish fans drained events out after the lock is released.
func (s *WorkspaceStore) publish(ctx context.Context, batch []events.DomainEvent) {
	if s.bus == nil || len(batch) == 0 {
		return
	}
	s.bus.PublishBatch(ctx, batch)
}

// selectedFileRef returns the identity of the currently selected
// file, if any, for the flush-before-switch path.
func (s *WorkspaceStore) selectedFileRef() (valueobjects.NodeID, valueobjects.FileID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.ws.SelectedNode()
	if !ok {
		return valueobjects.NodeID{}, valueobjects.FileID{}, false
	}
	sel := node.SelectedFileID()
	if sel.IsZero() {
		return valueobjects.NodeID{}, valueobjects.FileID{}, false
	}
	return node.ID(), sel, true
}

// flushFile pushes one file through the coordinator while the store
// lock is free, so the write path can re-enter ResolveFile. The
// coordinator resolves content at write time; an edit racing the
// flush still lands its latest content.
func (s *WorkspaceStore) flushFile(nodeID valueobjects.NodeID, fileID valueobjects.FileID) error {
	if s.flusher == nil {
		return nil
	}
	if err := s.flusher.Flush(nodeID, fileID); err != nil {
		return pkgerrors.NewIOError("flush file", err)
	}
	return nil
}

// materialize builds a node's disk tree in the background and records
// the resulting paths. Runs outside the store lock; the node is
// re-resolved before results are applied so a concurrent deletion
// makes the outcome irrelevant instead of wrong.
func (s *WorkspaceStore) materialize(ctx context.Context, id valueobjects.NodeID) {
	s.mu.Lock()
	node, ok := s.ws.Node(id)
	if !ok {
		s.mu.Unlock()
		return
	}
	layout := ports.ProjectLayout{
		NodeID:      id,
		Name:        node.Name(),
		Language:    node.Language(),
		ProjectPath: s.materializer.ProjectRoot(id),
	}
	for _, f := range node.Files() {
		layout.Files = append(layout.Files, ports.FileSnapshot{
			NodeID:      id,
			FileID:      f.ID(),
			ProjectPath: layout.ProjectPath,
			Path:        f.Path(),
			Content:     f.Content(),
		})
	}
	s.mu.Unlock()

	result, err := s.materializer.CreateProjectStructure(ctx, layout)
	if err != nil {
		s.logger.Error("materialization failed",
			zap.String("node_id", id.String()),
			zap.Error(err))
		return
	}

	s.mu.Lock()
	node, ok = s.ws.Node(id)
	if !ok {
		s.mu.Unlock()
		return
	}
	if err := node.SetProjectPath(result.ProjectPath); err != nil {
		s.mu.Unlock()
		s.logger.Warn("project path already assigned", zap.String("node_id", id.String()))
		return
	}
	if result.EnvironmentPath != "" {
		node.SetEnvironmentPath(result.EnvironmentPath)
	}
	fileIDs := make([]valueobjects.FileID, 0, node.FileCount())
	for _, f := range node.Files() {
		fileIDs = append(fileIDs, f.ID())
	}
	materializedAt := node.UpdatedAt()
	s.mu.Unlock()

	// Edits made while the tree was being built had nowhere to land;
	// reschedule every file now that the project root exists.
	if s.flusher != nil {
		for _, fid := range fileIDs {
			s.flusher.Schedule(id, fid)
		}
	}
	s.publish(ctx, []events.DomainEvent{
		events.NewNodeMaterialized(id, result.ProjectPath, result.EnvironmentPath, materializedAt),
	})
	s.logger.Info("node materialized",
		zap.String("node_id", id.String()),
		zap.String("project_path", result.ProjectPath))
}
