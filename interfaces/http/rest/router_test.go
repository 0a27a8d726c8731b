package rest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/application/commands"
	cmdbus "atelier/application/commands/bus"
	"atelier/application/queries"
	qbus "atelier/application/queries/bus"
	qhandlers "atelier/application/queries/handlers"
	"atelier/application/services"
	"atelier/domain/core/aggregates"
	"atelier/infrastructure/materialize"
	"atelier/infrastructure/messaging"
	"atelier/infrastructure/persistence/flush"
	"atelier/pkg/common"
)

type testServer struct {
	srv   *httptest.Server
	store *services.WorkspaceStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	fs := memfs.New()
	materializer := materialize.NewBillyMaterializer(fs, "/projects", nil, logger)
	eventBus := messaging.NewMemoryEventBus(logger)
	store := services.NewWorkspaceStore(aggregates.NewWorkspace(), nil, materializer, eventBus, logger)
	coordinator := flush.NewCoordinator(materializer, store, 10*time.Millisecond, 1, logger)
	store.AttachFlusher(coordinator)

	commandBus := cmdbus.NewCommandBus()
	registrations := []struct {
		cmd     cmdbus.Command
		handler cmdbus.CommandHandler
	}{
		{commands.CreateNodeCommand{}, commands.NewCreateNodeHandler(store, logger)},
		{commands.DeleteNodeCommand{}, commands.NewDeleteNodeHandler(store, logger)},
		{commands.RenameNodeCommand{}, commands.NewUpdateNodeHandler(store, logger)},
		{commands.MoveNodeCommand{}, commands.NewUpdateNodeHandler(store, logger)},
		{commands.SelectNodeCommand{}, commands.NewSelectionHandler(store, logger)},
		{commands.SelectFileCommand{}, commands.NewSelectionHandler(store, logger)},
		{commands.AddFileCommand{}, commands.NewAddFileHandler(store, logger)},
		{commands.RemoveFileCommand{}, commands.NewRemoveFileHandler(store, logger)},
		{commands.UpdateFileContentCommand{}, commands.NewUpdateFileContentHandler(store, logger)},
		{commands.RenameFileCommand{}, commands.NewRenameFileHandler(store, logger)},
		{commands.ConnectNodesCommand{}, commands.NewConnectionHandler(store, logger)},
		{commands.DisconnectNodesCommand{}, commands.NewConnectionHandler(store, logger)},
		{commands.SetCanvasTransformCommand{}, commands.NewCanvasHandler(store, logger)},
	}
	for _, reg := range registrations {
		require.NoError(t, commandBus.Register(reg.cmd, reg.handler))
	}

	queryBus := qbus.NewQueryBus()
	queryRegistrations := []struct {
		query   qbus.Query
		handler qbus.QueryHandler
	}{
		{queries.GetWorkspaceQuery{}, qhandlers.NewGetWorkspaceHandler(store)},
		{queries.GetNodeQuery{}, qhandlers.NewGetNodeHandler(store)},
		{queries.GetFileQuery{}, qhandlers.NewGetFileHandler(store)},
		{queries.AssistantContextQuery{}, qhandlers.NewAssistantContextHandler(store, nil)},
	}
	for _, reg := range queryRegistrations {
		require.NoError(t, queryBus.Register(reg.query, reg.handler))
	}

	router := NewRouter(commandBus, queryBus, eventBus, logger, false, false)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(func() {
		srv.Close()
		coordinator.Close()
		eventBus.Close()
	})
	return &testServer{srv: srv, store: store}
}

// do sends a JSON request and decodes the standard response envelope
// into out (which may be nil).
func (ts *testServer) do(t *testing.T, method, path string, body, out interface{}) (int, *common.APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope common.APIResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &envelope), "body: %s", raw)
	if out != nil && envelope.Data != nil {
		data, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return resp.StatusCode, &envelope
}

func (ts *testServer) createNode(t *testing.T, name, nodeType string) string {
	t.Helper()
	var created struct {
		ID string `json:"id"`
	}
	status, _ := ts.do(t, http.MethodPost, "/api/v1/nodes", map[string]interface{}{
		"name":      name,
		"node_type": nodeType,
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)

	// Materialization runs in the background; wait for the tree.
	require.Eventually(t, func() bool {
		var detail queries.NodeDetailView
		status, _ := ts.do(t, http.MethodGet, "/api/v1/nodes/"+created.ID, nil, &detail)
		return status == http.StatusOK && detail.ProjectPath != ""
	}, 2*time.Second, 10*time.Millisecond)
	return created.ID
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp, err := ts.srv.Client().Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNodeLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createNode(t, "My Backend", "cloud_backend")

	t.Run("the node shows up in the workspace view", func(t *testing.T) {
		var view queries.WorkspaceView
		status, _ := ts.do(t, http.MethodGet, "/api/v1/workspace", nil, &view)
		require.Equal(t, http.StatusOK, status)
		require.Len(t, view.Nodes, 1)
		assert.Equal(t, "My Backend", view.Nodes[0].Name)
		assert.Equal(t, "python", view.Nodes[0].Language)
		assert.Equal(t, id, view.SelectedNodeID)
	})

	t.Run("rename and move", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPut, "/api/v1/nodes/"+id+"/name", map[string]string{"name": "Renamed"}, nil)
		assert.Equal(t, http.StatusOK, status)
		status, _ = ts.do(t, http.MethodPut, "/api/v1/nodes/"+id+"/position", map[string]float64{"x": 40, "y": 2}, nil)
		assert.Equal(t, http.StatusOK, status)

		var detail queries.NodeDetailView
		status, _ = ts.do(t, http.MethodGet, "/api/v1/nodes/"+id, nil, &detail)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Renamed", detail.Name)
		assert.Equal(t, 40.0, detail.Position.X)
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodDelete, "/api/v1/nodes/"+id, nil, nil)
		assert.Equal(t, http.StatusOK, status)
		status, _ = ts.do(t, http.MethodGet, "/api/v1/nodes/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestCreateNodeValidation(t *testing.T) {
	ts := newTestServer(t)

	status, envelope := ts.do(t, http.MethodPost, "/api/v1/nodes", map[string]string{"node_type": "spaceship"}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION", envelope.Error.Code)
	assert.False(t, envelope.Success)
}

func TestGetNodeErrors(t *testing.T) {
	ts := newTestServer(t)

	status, _ := ts.do(t, http.MethodGet, "/api/v1/nodes/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodGet, "/api/v1/nodes/00000000-0000-0000-0000-000000000001", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFileLifecycle(t *testing.T) {
	ts := newTestServer(t)
	nodeID := ts.createNode(t, "API", "cloud_backend")
	base := "/api/v1/nodes/" + nodeID + "/files"

	var created struct {
		ID string `json:"id"`
	}
	status, _ := ts.do(t, http.MethodPost, base, map[string]string{"path": "src/handlers.py", "content": "x = 1\n"}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)

	t.Run("content round-trips", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPut, base+"/"+created.ID, map[string]string{"content": "x = 2\n"}, nil)
		require.Equal(t, http.StatusOK, status)

		var view queries.FileView
		status, _ = ts.do(t, http.MethodGet, base+"/"+created.ID, nil, &view)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "x = 2\n", view.Content)
	})

	t.Run("rename keeps the directory", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPut, base+"/"+created.ID+"/name", map[string]string{"name": "routes.py"}, nil)
		require.Equal(t, http.StatusOK, status)

		var view queries.FileView
		status, _ = ts.do(t, http.MethodGet, base+"/"+created.ID, nil, &view)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "src/routes.py", view.Path)
	})

	t.Run("conflicting path is rejected", func(t *testing.T) {
		status, envelope := ts.do(t, http.MethodPost, base, map[string]string{"path": "src/routes.py"}, nil)
		assert.Equal(t, http.StatusConflict, status)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "CONFLICT", envelope.Error.Code)
	})

	t.Run("delete", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodDelete, base+"/"+created.ID, nil, nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = ts.do(t, http.MethodGet, base+"/"+created.ID, nil, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestConnectionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createNode(t, "A", "cloud_backend")
	b := ts.createNode(t, "B", "website")
	body := map[string]string{"source_id": a, "target_id": b}

	status, _ := ts.do(t, http.MethodPost, "/api/v1/connections", body, nil)
	require.Equal(t, http.StatusCreated, status)

	var view queries.WorkspaceView
	status, _ = ts.do(t, http.MethodGet, "/api/v1/workspace", nil, &view)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, view.Connections, 1)

	t.Run("self loop succeeds without creating anything", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPost, "/api/v1/connections", map[string]string{"source_id": a, "target_id": a}, nil)
		assert.Equal(t, http.StatusCreated, status)

		var view queries.WorkspaceView
		status, _ = ts.do(t, http.MethodGet, "/api/v1/workspace", nil, &view)
		require.Equal(t, http.StatusOK, status)
		assert.Len(t, view.Connections, 1, "the earlier connection is still the only one")
	})

	t.Run("disconnect", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodDelete, "/api/v1/connections", body, nil)
		require.Equal(t, http.StatusOK, status)
		status, _ = ts.do(t, http.MethodGet, "/api/v1/workspace", nil, &view)
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, view.Connections)
	})
}

func TestCanvasAndSelection(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createNode(t, "A", "custom")

	status, _ := ts.do(t, http.MethodPut, "/api/v1/workspace/canvas", map[string]float64{"offset_x": 5, "scale": 99}, nil)
	require.Equal(t, http.StatusOK, status)

	var view queries.WorkspaceView
	status, _ = ts.do(t, http.MethodGet, "/api/v1/workspace", nil, &view)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2.0, view.Canvas.Scale, "out-of-range zoom is clamped")
	assert.Equal(t, 5.0, view.Canvas.OffsetX)

	t.Run("an empty node id clears the selection", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodPut, "/api/v1/workspace/selection", map[string]string{"node_id": ""}, nil)
		require.Equal(t, http.StatusOK, status)
		var cleared queries.WorkspaceView
		status, _ = ts.do(t, http.MethodGet, "/api/v1/workspace", nil, &cleared)
		require.Equal(t, http.StatusOK, status)
		assert.Empty(t, cleared.SelectedNodeID)

		status, _ = ts.do(t, http.MethodPut, "/api/v1/workspace/selection", map[string]string{"node_id": id}, nil)
		require.Equal(t, http.StatusOK, status)
	})
}

func TestAssistantContextEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createNode(t, "API", "cloud_backend")

	var doc queries.AssistantContextResult
	status, _ := ts.do(t, http.MethodGet, "/api/v1/workspace/context?node_id="+id, nil, &doc)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, doc.ActiveFile)
	assert.Equal(t, "src/main.py", doc.ActiveFile.Path)

	t.Run("without a node id the selection is used", func(t *testing.T) {
		status, _ := ts.do(t, http.MethodGet, "/api/v1/workspace/context", nil, &doc)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, id, doc.NodeID)
	})
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.srv.URL+"/api/v1/events", nil)
	require.NoError(t, err)

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Trigger a mutation and expect its event on the stream.
	go ts.createNode(t, "Streamed", "custom")

	scanner := bufio.NewScanner(resp.Body)
	var sawCreated bool
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") && strings.Contains(line, "node.created") {
			sawCreated = true
			break
		}
	}
	assert.True(t, sawCreated, "expected a node.created event on the stream")
}

func TestErrorEnvelopeShape(t *testing.T) {
	ts := newTestServer(t)
	status, envelope := ts.do(t, http.MethodGet,
		fmt.Sprintf("/api/v1/nodes/%s", "00000000-0000-0000-0000-000000000009"), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
	assert.NotEmpty(t, envelope.Error.Message)
}
