package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/events"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

func newTestWorkspaceNode(t *testing.T, name string) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(name, entities.NodeTypeBackend, scaffold.LanguagePython, valueobjects.Position{}, nil)
	require.NoError(t, err)
	return node
}

func TestWorkspaceAddNode(t *testing.T) {
	ws := NewWorkspace()
	a := newTestWorkspaceNode(t, "A")

	require.NoError(t, ws.AddNode(a, nil))
	assert.Equal(t, 1, ws.NodeCount())
	assert.True(t, ws.SelectedNodeID().Equals(a.ID()), "a freshly added node becomes the selection")

	t.Run("duplicate id is a conflict", func(t *testing.T) {
		err := ws.AddNode(a, nil)
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("insertion order is preserved", func(t *testing.T) {
		b := newTestWorkspaceNode(t, "B")
		require.NoError(t, ws.AddNode(b, nil))
		nodes := ws.Nodes()
		require.Len(t, nodes, 2)
		assert.Equal(t, "A", nodes[0].Name())
		assert.Equal(t, "B", nodes[1].Name())
	})
}

func TestWorkspaceRemoveNode(t *testing.T) {
	t.Run("cascades connection removal", func(t *testing.T) {
		ws := NewWorkspace()
		a := newTestWorkspaceNode(t, "A")
		b := newTestWorkspaceNode(t, "B")
		c := newTestWorkspaceNode(t, "C")
		for _, n := range []*entities.Node{a, b, c} {
			require.NoError(t, ws.AddNode(n, nil))
		}
		require.NoError(t, ws.Connect(a.ID(), b.ID(), nil))
		require.NoError(t, ws.Connect(c.ID(), b.ID(), nil))
		require.NoError(t, ws.Connect(b.ID(), a.ID(), nil))

		removed, ok := ws.RemoveNode(b.ID())
		require.True(t, ok)
		assert.True(t, removed.ID().Equals(b.ID()))
		assert.False(t, a.ConnectedTo(b.ID()))
		assert.False(t, c.ConnectedTo(b.ID()))
		assert.NoError(t, ws.Validate())
	})

	t.Run("clears a selection pointing at the node", func(t *testing.T) {
		ws := NewWorkspace()
		a := newTestWorkspaceNode(t, "A")
		require.NoError(t, ws.AddNode(a, nil))
		require.True(t, ws.SelectedNodeID().Equals(a.ID()))

		_, ok := ws.RemoveNode(a.ID())
		require.True(t, ok)
		assert.True(t, ws.SelectedNodeID().IsZero())
	})

	t.Run("unknown node is a benign no-op", func(t *testing.T) {
		ws := NewWorkspace()
		_, ok := ws.RemoveNode(valueobjects.NewNodeID())
		assert.False(t, ok)
	})
}

func TestWorkspaceSelection(t *testing.T) {
	ws := NewWorkspace()
	a := newTestWorkspaceNode(t, "A")
	b := newTestWorkspaceNode(t, "B")
	require.NoError(t, ws.AddNode(a, nil))
	require.NoError(t, ws.AddNode(b, nil))

	require.NoError(t, ws.SelectNode(a.ID()))
	assert.True(t, ws.SelectedNodeID().Equals(a.ID()))

	t.Run("stale id is reported, never applied", func(t *testing.T) {
		err := ws.SelectNode(valueobjects.NewNodeID())
		assert.True(t, pkgerrors.IsNotFound(err))
		assert.True(t, ws.SelectedNodeID().Equals(a.ID()))
	})

	t.Run("clear drops the selection", func(t *testing.T) {
		ws.ClearSelection()
		assert.True(t, ws.SelectedNodeID().IsZero())
		_, ok := ws.SelectedNode()
		assert.False(t, ok)
	})
}

func TestWorkspaceConnect(t *testing.T) {
	ws := NewWorkspace()
	a := newTestWorkspaceNode(t, "A")
	b := newTestWorkspaceNode(t, "B")
	require.NoError(t, ws.AddNode(a, nil))
	require.NoError(t, ws.AddNode(b, nil))

	require.NoError(t, ws.Connect(a.ID(), b.ID(), nil))
	assert.True(t, a.ConnectedTo(b.ID()))

	t.Run("unknown endpoints are not found", func(t *testing.T) {
		err := ws.Connect(valueobjects.NewNodeID(), b.ID(), nil)
		assert.True(t, pkgerrors.IsNotFound(err))
		err = ws.Connect(a.ID(), valueobjects.NewNodeID(), nil)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("disconnect reports whether anything changed", func(t *testing.T) {
		assert.True(t, ws.Disconnect(a.ID(), b.ID()))
		assert.False(t, ws.Disconnect(a.ID(), b.ID()))
		assert.False(t, ws.Disconnect(valueobjects.NewNodeID(), b.ID()))
	})
}

func TestWorkspaceCanvas(t *testing.T) {
	ws := NewWorkspace()
	assert.Equal(t, 1.0, ws.Canvas().Scale)

	ws.SetCanvas(valueobjects.Position{X: 5, Y: -3}, 9.0)
	assert.Equal(t, valueobjects.MaxCanvasScale, ws.Canvas().Scale)
	assert.Equal(t, 5.0, ws.Canvas().Offset.X)
	assert.NoError(t, ws.Validate())
}

func TestReconstructWorkspace(t *testing.T) {
	a := newTestWorkspaceNode(t, "A")
	b := newTestWorkspaceNode(t, "B")

	t.Run("restores nodes, selection and canvas", func(t *testing.T) {
		ws, err := ReconstructWorkspace(
			[]*entities.Node{a, b},
			b.ID(),
			valueobjects.CanvasTransform{Offset: valueobjects.Position{X: 1}, Scale: 1.5},
		)
		require.NoError(t, err)
		assert.Equal(t, 2, ws.NodeCount())
		assert.True(t, ws.SelectedNodeID().Equals(b.ID()))
		assert.Equal(t, 1.5, ws.Canvas().Scale)
		assert.NoError(t, ws.Validate())
	})

	t.Run("drops a stale selection", func(t *testing.T) {
		ws, err := ReconstructWorkspace([]*entities.Node{a}, valueobjects.NewNodeID(), valueobjects.DefaultCanvasTransform())
		require.NoError(t, err)
		assert.True(t, ws.SelectedNodeID().IsZero())
	})

	t.Run("clamps an out-of-range canvas scale", func(t *testing.T) {
		ws, err := ReconstructWorkspace(nil, valueobjects.NodeID{}, valueobjects.CanvasTransform{Scale: 0})
		require.NoError(t, err)
		assert.NoError(t, ws.Validate())
	})

	t.Run("duplicate ids are rejected", func(t *testing.T) {
		_, err := ReconstructWorkspace([]*entities.Node{a, a}, valueobjects.NodeID{}, valueobjects.DefaultCanvasTransform())
		assert.True(t, pkgerrors.IsConflict(err))
	})
}

func TestWorkspaceEvents(t *testing.T) {
	ws := NewWorkspace()
	a := newTestWorkspaceNode(t, "A")
	require.NoError(t, ws.AddNode(a, nil))

	all := ws.GetUncommittedEvents()
	require.NotEmpty(t, all)

	var types []string
	for _, e := range all {
		types = append(types, e.GetEventType())
	}
	assert.Contains(t, types, "workspace.selection_changed")
	assert.Contains(t, types, "node.created")

	ws.MarkEventsAsCommitted()
	assert.Empty(t, ws.GetUncommittedEvents())

	_, ok := ws.RemoveNode(a.ID())
	require.True(t, ok)
	var sawDeleted bool
	for _, e := range ws.GetUncommittedEvents() {
		if _, isDeleted := e.(events.NodeDeleted); isDeleted {
			sawDeleted = true
		}
	}
	assert.True(t, sawDeleted)
}
