package materialize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"atelier/application/ports"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	pkgerrors "atelier/pkg/errors"
)

// FsnotifyWatcher observes materialized project roots and publishes
// ExternalFileChanged events when something outside the engine touches
// a managed tree. Purely informational: the in-memory content stays
// authoritative and is never reloaded from disk.
type FsnotifyWatcher struct {
	watcher *fsnotify.Watcher
	bus     ports.EventBus
	logger  *zap.Logger

	mu    sync.Mutex
	roots map[string]valueobjects.NodeID

	done chan struct{}
	once sync.Once
}

// NewFsnotifyWatcher creates a drift watcher publishing to bus.
func NewFsnotifyWatcher(bus ports.EventBus, logger *zap.Logger) (*FsnotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, pkgerrors.NewIOError("create fs watcher", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fw := &FsnotifyWatcher{
		watcher: w,
		bus:     bus,
		logger:  logger,
		roots:   make(map[string]valueobjects.NodeID),
		done:    make(chan struct{}),
	}
	go fw.loop()
	return fw, nil
}

// Run subscribes to the event feed and tracks project roots as nodes
// are materialized and deleted. Returns when ctx is cancelled.
func (w *FsnotifyWatcher) Run(ctx context.Context) {
	ch, cancel := w.bus.Subscribe(64)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			switch e := event.(type) {
			case events.NodeMaterialized:
				if err := w.WatchProject(e.NodeID, e.ProjectPath); err != nil {
					w.logger.Warn("watch project failed",
						zap.String("node_id", e.NodeID.String()),
						zap.Error(err))
				}
			case events.NodeDeleted:
				w.UnwatchProject(e.NodeID)
			}
		}
	}
}

// WatchProject starts observing a project root and its existing
// subdirectories.
func (w *FsnotifyWatcher) WatchProject(nodeID valueobjects.NodeID, projectPath string) error {
	w.mu.Lock()
	w.roots[projectPath] = nodeID
	w.mu.Unlock()

	return filepath.WalkDir(projectPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := w.watcher.Add(path); addErr != nil {
				w.logger.Debug("watch add failed", zap.String("path", path), zap.Error(addErr))
			}
		}
		return nil
	})
}

// UnwatchProject stops observing a project root.
func (w *FsnotifyWatcher) UnwatchProject(nodeID valueobjects.NodeID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root, id := range w.roots {
		if id.Equals(nodeID) {
			delete(w.roots, root)
			_ = w.watcher.Remove(root)
		}
	}
}

// Close stops the watcher.
func (w *FsnotifyWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *FsnotifyWatcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if nodeID, root, found := w.resolve(event.Name); found {
				rel, err := filepath.Rel(root, event.Name)
				if err != nil {
					rel = event.Name
				}
				w.bus.Publish(context.Background(),
					events.NewExternalFileChanged(nodeID, rel, time.Now()))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fs watcher error", zap.Error(err))
		}
	}
}

// resolve maps an absolute event path to the node owning it by longest
// root prefix.
func (w *FsnotifyWatcher) resolve(path string) (valueobjects.NodeID, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var (
		bestRoot string
		bestID   valueobjects.NodeID
	)
	for root, id := range w.roots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) || path == root {
			if len(root) > len(bestRoot) {
				bestRoot = root
				bestID = id
			}
		}
	}
	if bestRoot == "" {
		return valueobjects.NodeID{}, "", false
	}
	return bestID, bestRoot, true
}
