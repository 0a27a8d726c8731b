package handlers

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/application/queries"
	"atelier/application/services"
	"atelier/domain/config"
	"atelier/domain/core/aggregates"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

// queryFixture builds a read-only store around a pre-assembled
// workspace; queries never touch the materializer or the bus.
type queryFixture struct {
	store   *services.WorkspaceStore
	backend *entities.Node
	site    *entities.Node
	extra   *entities.ProjectFile
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	ws := aggregates.NewWorkspace()

	backend, err := entities.NewNode("Backend", entities.NodeTypeBackend, scaffold.LanguagePython, valueobjects.Position{X: 1, Y: 2}, nil)
	require.NoError(t, err)
	site, err := entities.NewNode("Site", entities.NodeTypeWebsite, scaffold.LanguageJavaScript, valueobjects.Position{}, nil)
	require.NoError(t, err)
	require.NoError(t, ws.AddNode(backend, nil))
	require.NoError(t, ws.AddNode(site, nil))

	utilPath, err := valueobjects.NewRelPath("src/util.py")
	require.NoError(t, err)
	extra, err := backend.AddFile(utilPath, backend.Language(), "x = 1\n", nil)
	require.NoError(t, err)

	require.NoError(t, ws.Connect(backend.ID(), site.ID(), nil))
	require.NoError(t, ws.SelectNode(backend.ID()))

	return &queryFixture{
		store:   services.NewWorkspaceStore(ws, nil, nil, nil, nil),
		backend: backend,
		site:    site,
		extra:   extra,
	}
}

func TestGetWorkspaceHandler(t *testing.T) {
	f := newQueryFixture(t)
	h := NewGetWorkspaceHandler(f.store)

	result, err := h.Handle(context.Background(), queries.GetWorkspaceQuery{})
	require.NoError(t, err)
	view, ok := result.(queries.WorkspaceView)
	require.True(t, ok)

	assert.Len(t, view.Nodes, 2)
	assert.Equal(t, "Backend", view.Nodes[0].Name)
	assert.Equal(t, 2, view.Nodes[0].FileCount)
	assert.Equal(t, f.backend.ID().String(), view.SelectedNodeID)

	require.Len(t, view.Connections, 1)
	assert.Equal(t, f.backend.ID().String(), view.Connections[0].SourceID)
	assert.Equal(t, f.site.ID().String(), view.Connections[0].TargetID)

	assert.Equal(t, 2, view.Stats.NodeCount)
	assert.Equal(t, 1, view.Stats.ConnectionCount)
	assert.Equal(t, 3, view.Stats.FileCount)
	assert.Equal(t, 1.0, view.Canvas.Scale)
}

func TestGetNodeHandler(t *testing.T) {
	f := newQueryFixture(t)
	h := NewGetNodeHandler(f.store)

	result, err := h.Handle(context.Background(), queries.GetNodeQuery{NodeID: f.backend.ID().String()})
	require.NoError(t, err)
	view, ok := result.(queries.NodeDetailView)
	require.True(t, ok)

	assert.Equal(t, "Backend", view.Name)
	require.Len(t, view.Files, 2)
	assert.Equal(t, "src/main.py", view.Files[0].Path)
	assert.Equal(t, "main.py", view.Files[0].Name)
	assert.Equal(t, "src/util.py", view.Files[1].Path)
	assert.Equal(t, len("x = 1\n"), view.Files[1].Size)
	assert.Equal(t, []string{f.site.ID().String()}, view.Connections)

	t.Run("unknown node is not found", func(t *testing.T) {
		_, err := h.Handle(context.Background(), queries.GetNodeQuery{NodeID: valueobjects.NewNodeID().String()})
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("malformed id is a validation error", func(t *testing.T) {
		_, err := h.Handle(context.Background(), queries.GetNodeQuery{NodeID: "nope"})
		assert.True(t, pkgerrors.IsValidation(err))
	})
}

func TestGetFileHandler(t *testing.T) {
	f := newQueryFixture(t)
	h := NewGetFileHandler(f.store)

	result, err := h.Handle(context.Background(), queries.GetFileQuery{
		NodeID: f.backend.ID().String(),
		FileID: f.extra.ID().String(),
	})
	require.NoError(t, err)
	view, ok := result.(queries.FileView)
	require.True(t, ok)

	assert.Equal(t, "src/util.py", view.Path)
	assert.Equal(t, "x = 1\n", view.Content)
	assert.Equal(t, "python", view.Language)

	t.Run("unknown file is not found", func(t *testing.T) {
		_, err := h.Handle(context.Background(), queries.GetFileQuery{
			NodeID: f.backend.ID().String(),
			FileID: valueobjects.NewFileID().String(),
		})
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("unknown node is not found", func(t *testing.T) {
		_, err := h.Handle(context.Background(), queries.GetFileQuery{
			NodeID: valueobjects.NewNodeID().String(),
			FileID: f.extra.ID().String(),
		})
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestAssistantContextHandler(t *testing.T) {
	f := newQueryFixture(t)
	cfg := config.DefaultDomainConfig()
	h := NewAssistantContextHandler(f.store, cfg)

	result, err := h.Handle(context.Background(), queries.AssistantContextQuery{NodeID: f.backend.ID().String()})
	require.NoError(t, err)
	doc, ok := result.(queries.AssistantContextResult)
	require.True(t, ok)

	t.Run("the active file carries full content", func(t *testing.T) {
		require.NotNil(t, doc.ActiveFile)
		assert.Equal(t, "src/main.py", doc.ActiveFile.Path)
		assert.Contains(t, doc.ActiveFile.Content, "Hello from Backend")
	})

	t.Run("siblings are listed", func(t *testing.T) {
		require.Len(t, doc.SiblingFiles, 1)
		assert.Equal(t, "src/util.py", doc.SiblingFiles[0].Path)
		assert.False(t, doc.SiblingFiles[0].Truncated)
	})

	t.Run("connection targets contribute their main file", func(t *testing.T) {
		require.Len(t, doc.ConnectedTo, 1)
		site := doc.ConnectedTo[0]
		assert.Equal(t, "Site", site.Name)
		assert.Equal(t, "src/index.js", site.MainFile.Path)
		assert.Contains(t, site.MainFile.Content, "Hello from Site")
		assert.False(t, site.MainFile.Truncated)
	})

	t.Run("an empty node id targets the selection", func(t *testing.T) {
		result, err := h.Handle(context.Background(), queries.AssistantContextQuery{})
		require.NoError(t, err)
		doc := result.(queries.AssistantContextResult)
		assert.Equal(t, f.backend.ID().String(), doc.NodeID)
	})

	t.Run("oversized siblings are truncated", func(t *testing.T) {
		big := strings.Repeat("a", cfg.ContextPrefixBytes+100)
		bigPath, err := valueobjects.NewRelPath("src/big.py")
		require.NoError(t, err)
		_, err = f.backend.AddFile(bigPath, f.backend.Language(), big, nil)
		require.NoError(t, err)

		result, err := h.Handle(context.Background(), queries.AssistantContextQuery{NodeID: f.backend.ID().String()})
		require.NoError(t, err)
		doc := result.(queries.AssistantContextResult)

		var bigFile *queries.ContextFile
		for i := range doc.SiblingFiles {
			if doc.SiblingFiles[i].Path == "src/big.py" {
				bigFile = &doc.SiblingFiles[i]
			}
		}
		require.NotNil(t, bigFile)
		assert.True(t, bigFile.Truncated)
		assert.Len(t, bigFile.Content, cfg.ContextPrefixBytes)
	})

	t.Run("truncation never splits a rune", func(t *testing.T) {
		// Three-byte runes cannot align with the byte cap, so a naive
		// cut would leave a broken trailing sequence.
		wide := strings.Repeat("€", cfg.ContextPrefixBytes)
		require.NoError(t, f.site.UpdateFileContent(f.site.MainFile().ID(), wide, nil))

		result, err := h.Handle(context.Background(), queries.AssistantContextQuery{NodeID: f.backend.ID().String()})
		require.NoError(t, err)
		doc := result.(queries.AssistantContextResult)

		require.Len(t, doc.ConnectedTo, 1)
		main := doc.ConnectedTo[0].MainFile
		assert.True(t, main.Truncated)
		assert.True(t, utf8.ValidString(main.Content))
		assert.Len(t, main.Content, cfg.ContextPrefixBytes-cfg.ContextPrefixBytes%3)
	})
}
