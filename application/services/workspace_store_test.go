package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/application/ports"
	"atelier/domain/core/aggregates"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

// fakeMaterializer records disk operations instead of performing them.
type fakeMaterializer struct {
	mu         sync.Mutex
	saved      []ports.FileSnapshot
	deleted    []string
	renamed    [][2]string
	envPath    string
	failRename bool
	failCreate bool
}

func (m *fakeMaterializer) ProjectRoot(id valueobjects.NodeID) string {
	return "/projects/" + id.String()
}

func (m *fakeMaterializer) CreateProjectStructure(ctx context.Context, layout ports.ProjectLayout) (ports.MaterializeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return ports.MaterializeResult{}, errors.New("disk full")
	}
	m.saved = append(m.saved, layout.Files...)
	return ports.MaterializeResult{
		ProjectPath:     layout.ProjectPath,
		EnvironmentPath: m.envPath,
	}, nil
}

func (m *fakeMaterializer) SaveFile(ctx context.Context, snap ports.FileSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, snap)
	return nil
}

func (m *fakeMaterializer) DeleteFile(ctx context.Context, projectPath string, path valueobjects.RelPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, path.String())
	return nil
}

func (m *fakeMaterializer) RenameFile(ctx context.Context, projectPath string, oldPath, newPath valueobjects.RelPath) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRename {
		return errors.New("permission denied")
	}
	m.renamed = append(m.renamed, [2]string{oldPath.String(), newPath.String()})
	return nil
}

func (m *fakeMaterializer) deletedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.deleted...)
}

// fakeFlusher records coordinator calls. Flush re-resolves through the
// source like the real coordinator, so the recorded snapshot carries
// the content current at flush time.
type fakeFlusher struct {
	source ports.FileResolver

	mu          sync.Mutex
	scheduled   []string
	cancelled   []string
	nodeCancels []valueobjects.NodeID
	flushed     []ports.FileSnapshot
	flushErr    error
}

func key(nodeID valueobjects.NodeID, fileID valueobjects.FileID) string {
	return nodeID.String() + "/" + fileID.String()
}

func (f *fakeFlusher) Schedule(nodeID valueobjects.NodeID, fileID valueobjects.FileID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled = append(f.scheduled, key(nodeID, fileID))
}

func (f *fakeFlusher) Flush(nodeID valueobjects.NodeID, fileID valueobjects.FileID) error {
	f.mu.Lock()
	if f.flushErr != nil {
		f.mu.Unlock()
		return f.flushErr
	}
	f.mu.Unlock()

	snap := ports.FileSnapshot{NodeID: nodeID, FileID: fileID}
	if f.source != nil {
		if resolved, ok := f.source.ResolveFile(nodeID, fileID); ok {
			snap = resolved
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = append(f.flushed, snap)
	return nil
}

func (f *fakeFlusher) FlushAll() error { return nil }

func (f *fakeFlusher) Cancel(nodeID valueobjects.NodeID, fileID valueobjects.FileID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, key(nodeID, fileID))
}

func (f *fakeFlusher) CancelNode(nodeID valueobjects.NodeID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodeCancels = append(f.nodeCancels, nodeID)
}

func (f *fakeFlusher) Close() error { return nil }

func (f *fakeFlusher) scheduledKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.scheduled...)
}

func (f *fakeFlusher) flushedSnaps() []ports.FileSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.FileSnapshot{}, f.flushed...)
}

// recordingBus collects published events.
type recordingBus struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (b *recordingBus) Publish(ctx context.Context, event events.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishBatch(ctx context.Context, batch []events.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, batch...)
}

func (b *recordingBus) Subscribe(buffer int) (<-chan events.DomainEvent, func()) {
	ch := make(chan events.DomainEvent)
	return ch, func() {}
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type storeFixture struct {
	store        *WorkspaceStore
	materializer *fakeMaterializer
	flusher      *fakeFlusher
	bus          *recordingBus
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{
		materializer: &fakeMaterializer{},
		flusher:      &fakeFlusher{},
		bus:          &recordingBus{},
	}
	f.store = NewWorkspaceStore(aggregates.NewWorkspace(), nil, f.materializer, f.bus, zap.NewNop())
	f.flusher.source = f.store
	f.store.AttachFlusher(f.flusher)
	return f
}

// createNode creates a node and waits for its background
// materialization to complete.
func (f *storeFixture) createNode(t *testing.T, name string, nodeType entities.NodeType, language scaffold.Language) valueobjects.NodeID {
	t.Helper()
	id := valueobjects.NewNodeID()
	require.NoError(t, f.store.CreateNode(context.Background(), id, name, nodeType, language, valueobjects.Position{}))
	require.Eventually(t, func() bool {
		var path string
		f.store.Read(func(ws *aggregates.Workspace) {
			if node, ok := ws.Node(id); ok {
				path = node.ProjectPath()
			}
		})
		return path != ""
	}, 2*time.Second, 5*time.Millisecond, "node %s never materialized", name)
	return id
}

func (f *storeFixture) node(t *testing.T, id valueobjects.NodeID) *entities.Node {
	t.Helper()
	var node *entities.Node
	f.store.Read(func(ws *aggregates.Workspace) {
		node, _ = ws.Node(id)
	})
	require.NotNil(t, node)
	return node
}

func TestWorkspaceStoreCreateNode(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")

	node := f.node(t, id)
	assert.Equal(t, scaffold.LanguagePython, node.Language(), "empty language falls back to the node type default")
	assert.Equal(t, "/projects/"+id.String(), node.ProjectPath())

	t.Run("files are rescheduled once the tree exists", func(t *testing.T) {
		main := node.MainFile()
		assert.Contains(t, f.flusher.scheduledKeys(), key(id, main.ID()))
	})

	t.Run("events are published", func(t *testing.T) {
		types := f.bus.types()
		assert.Contains(t, types, "node.created")
		assert.Contains(t, types, "node.materialized")
	})
}

func TestWorkspaceStoreResolveFile(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")
	main := f.node(t, id).MainFile()

	snap, ok := f.store.ResolveFile(id, main.ID())
	require.True(t, ok)
	assert.Equal(t, "src/main.py", snap.Path.String())
	assert.Equal(t, main.Content(), snap.Content)

	t.Run("deleted node fails to resolve", func(t *testing.T) {
		require.NoError(t, f.store.DeleteNode(context.Background(), id))
		_, ok := f.store.ResolveFile(id, main.ID())
		assert.False(t, ok)
	})
}

func TestWorkspaceStoreDeleteNode(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")

	require.NoError(t, f.store.DeleteNode(context.Background(), id))

	t.Run("pending writes are cancelled before removal", func(t *testing.T) {
		require.Len(t, f.flusher.nodeCancels, 1)
		assert.True(t, f.flusher.nodeCancels[0].Equals(id))
	})

	t.Run("node is gone", func(t *testing.T) {
		f.store.Read(func(ws *aggregates.Workspace) {
			assert.False(t, ws.HasNode(id))
		})
	})

	t.Run("deleting again is a benign no-op", func(t *testing.T) {
		assert.NoError(t, f.store.DeleteNode(context.Background(), id))
	})
}

func TestWorkspaceStoreFlushBeforeSwitch(t *testing.T) {
	f := newStoreFixture(t)
	first := f.createNode(t, "First", entities.NodeTypeBackend, "")
	second := f.createNode(t, "Second", entities.NodeTypeBackend, "")

	// Creating the second node selected it; go back to the first and
	// edit its main file without waiting for any debounce.
	require.NoError(t, f.store.SelectNode(context.Background(), first))
	main := f.node(t, first).MainFile()
	require.NoError(t, f.store.UpdateFileContent(context.Background(), first, main.ID(), "edited = True\n"))

	require.NoError(t, f.store.SelectNode(context.Background(), second))

	flushed := f.flusher.flushedSnaps()
	require.NotEmpty(t, flushed)
	last := flushed[len(flushed)-1]
	assert.True(t, last.NodeID.Equals(first))
	assert.True(t, last.FileID.Equals(main.ID()))
	assert.Equal(t, "edited = True\n", last.Content, "the flush carries the latest content")

	t.Run("a failed flush blocks the switch", func(t *testing.T) {
		f.flusher.flushErr = errors.New("disk full")
		err := f.store.SelectNode(context.Background(), first)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsIO(err))
		f.store.Read(func(ws *aggregates.Workspace) {
			assert.True(t, ws.SelectedNodeID().Equals(second), "selection must not move when the flush fails")
		})
	})
}

func TestWorkspaceStoreSelectFile(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")
	main := f.node(t, id).MainFile()

	extraID := valueobjects.NewFileID()
	require.NoError(t, f.store.AddFile(context.Background(), id, extraID, "src/util.py", "x = 1\n"))
	require.NoError(t, f.store.UpdateFileContent(context.Background(), id, main.ID(), "dirty\n"))

	require.NoError(t, f.store.SelectFile(context.Background(), id, extraID))

	t.Run("the file being left is flushed", func(t *testing.T) {
		flushed := f.flusher.flushedSnaps()
		require.NotEmpty(t, flushed)
		assert.True(t, flushed[len(flushed)-1].FileID.Equals(main.ID()))
	})

	t.Run("selection moved", func(t *testing.T) {
		assert.True(t, f.node(t, id).SelectedFileID().Equals(extraID))
	})

	t.Run("stale file id is reported, never applied", func(t *testing.T) {
		err := f.store.SelectFile(context.Background(), id, valueobjects.NewFileID())
		assert.True(t, pkgerrors.IsNotFound(err))
		assert.True(t, f.node(t, id).SelectedFileID().Equals(extraID))
	})
}

func TestWorkspaceStoreAddFile(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")

	fileID := valueobjects.NewFileID()
	require.NoError(t, f.store.AddFile(context.Background(), id, fileID, "src/handlers.py", ""))
	assert.Contains(t, f.flusher.scheduledKeys(), key(id, fileID))

	t.Run("escaping paths are rejected", func(t *testing.T) {
		err := f.store.AddFile(context.Background(), id, valueobjects.NewFileID(), "../outside.py", "")
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("unknown node is not found", func(t *testing.T) {
		err := f.store.AddFile(context.Background(), valueobjects.NewNodeID(), valueobjects.NewFileID(), "a.py", "")
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestWorkspaceStoreRemoveFile(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")
	main := f.node(t, id).MainFile()

	t.Run("removing the last file regenerates and schedules main", func(t *testing.T) {
		require.NoError(t, f.store.RemoveFile(context.Background(), id, main.ID()))

		node := f.node(t, id)
		require.Equal(t, 1, node.FileCount())
		fresh := node.MainFile()
		assert.False(t, fresh.ID().Equals(main.ID()))

		assert.Contains(t, f.flusher.cancelled, key(id, main.ID()), "pending write cancelled before removal")
		assert.Contains(t, f.flusher.scheduledKeys(), key(id, fresh.ID()))
		assert.Contains(t, f.materializer.deletedPaths(), "src/main.py")
	})

	t.Run("unknown file is not found", func(t *testing.T) {
		err := f.store.RemoveFile(context.Background(), id, valueobjects.NewFileID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestWorkspaceStoreRenameFile(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")
	main := f.node(t, id).MainFile()

	t.Run("renames in memory and on disk", func(t *testing.T) {
		require.NoError(t, f.store.RenameFile(context.Background(), id, main.ID(), "app.py"))
		assert.Equal(t, "src/app.py", f.node(t, id).MainFile().Path().String())
		require.Len(t, f.materializer.renamed, 1)
		assert.Equal(t, [2]string{"src/main.py", "src/app.py"}, f.materializer.renamed[0])
	})

	t.Run("a failed disk rename rolls back", func(t *testing.T) {
		f.materializer.failRename = true
		f.bus.mu.Lock()
		f.bus.events = nil
		f.bus.mu.Unlock()

		err := f.store.RenameFile(context.Background(), id, main.ID(), "broken.py")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsIO(err))

		node := f.node(t, id)
		file, ok := node.File(main.ID())
		require.True(t, ok)
		assert.Equal(t, "src/app.py", file.Path().String(), "path restored after rollback")
		assert.NotContains(t, f.bus.types(), "file.renamed", "rolled-back renames publish nothing")
	})
}

func TestWorkspaceStoreUpdateFileContent(t *testing.T) {
	f := newStoreFixture(t)
	id := f.createNode(t, "API", entities.NodeTypeBackend, "")
	main := f.node(t, id).MainFile()

	require.NoError(t, f.store.UpdateFileContent(context.Background(), id, main.ID(), "v2\n"))
	assert.Contains(t, f.flusher.scheduledKeys(), key(id, main.ID()))

	snap, ok := f.store.ResolveFile(id, main.ID())
	require.True(t, ok)
	assert.Equal(t, "v2\n", snap.Content)
}

func TestWorkspaceStoreConnections(t *testing.T) {
	f := newStoreFixture(t)
	a := f.createNode(t, "A", entities.NodeTypeBackend, "")
	b := f.createNode(t, "B", entities.NodeTypeWebsite, "")

	require.NoError(t, f.store.Connect(context.Background(), a, b))

	t.Run("deleting an endpoint cascades", func(t *testing.T) {
		require.NoError(t, f.store.DeleteNode(context.Background(), b))
		assert.Empty(t, f.node(t, a).Connections())
	})

	t.Run("self loop is a silent no-op", func(t *testing.T) {
		require.NoError(t, f.store.Connect(context.Background(), a, a))
		assert.Empty(t, f.node(t, a).Connections())
	})
}
