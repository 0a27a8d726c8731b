// Package sqlite persists workspace checkpoints in a single SQLite
// database. A checkpoint is a full snapshot: loading one rebuilds the
// aggregate exactly, including node order and selections.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"atelier/domain/core/aggregates"
	"atelier/domain/core/entities"
	"atelier/domain/core/valueobjects"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS workspace (
	id               INTEGER PRIMARY KEY CHECK (id = 1),
	selected_node_id TEXT NOT NULL DEFAULT '',
	canvas_offset_x  REAL NOT NULL DEFAULT 0,
	canvas_offset_y  REAL NOT NULL DEFAULT 0,
	canvas_scale     REAL NOT NULL DEFAULT 1,
	saved_at         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS nodes (
	id               TEXT PRIMARY KEY,
	ord              INTEGER NOT NULL,
	name             TEXT NOT NULL,
	node_type        TEXT NOT NULL,
	language         TEXT NOT NULL,
	pos_x            REAL NOT NULL,
	pos_y            REAL NOT NULL,
	selected_file_id TEXT NOT NULL DEFAULT '',
	project_path     TEXT NOT NULL DEFAULT '',
	environment_path TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
	id         TEXT PRIMARY KEY,
	node_id    TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
	ord        INTEGER NOT NULL,
	path       TEXT NOT NULL,
	name       TEXT NOT NULL,
	content    TEXT NOT NULL,
	language   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS connections (
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	ord       INTEGER NOT NULL,
	PRIMARY KEY (source_id, target_id)
);
CREATE INDEX IF NOT EXISTS idx_files_node ON files(node_id, ord);
`

// CheckpointStore implements ports.CheckpointStore on SQLite.
type CheckpointStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the checkpoint database at path and applies
// the schema.
func Open(path string, logger *zap.Logger) (*CheckpointStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, pkgerrors.NewIOError("open checkpoint database", err)
	}
	// modernc/sqlite serializes access; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pkgerrors.NewIOError("apply checkpoint schema", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckpointStore{db: db, logger: logger}, nil
}

// Save replaces the stored checkpoint with a full snapshot of ws.
func (s *CheckpointStore) Save(ctx context.Context, ws *aggregates.Workspace) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewIOError("begin checkpoint transaction", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{"DELETE FROM connections", "DELETE FROM files", "DELETE FROM nodes", "DELETE FROM workspace"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return pkgerrors.NewIOError("clear checkpoint", err)
		}
	}

	selected := ""
	if id := ws.SelectedNodeID(); !id.IsZero() {
		selected = id.String()
	}
	canvas := ws.Canvas()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO workspace (id, selected_node_id, canvas_offset_x, canvas_offset_y, canvas_scale, saved_at)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		selected, canvas.Offset.X, canvas.Offset.Y, canvas.Scale, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return pkgerrors.NewIOError("save workspace row", err)
	}

	for ord, node := range ws.Nodes() {
		selectedFile := ""
		if id := node.SelectedFileID(); !id.IsZero() {
			selectedFile = id.String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO nodes (id, ord, name, node_type, language, pos_x, pos_y, selected_file_id, project_path, environment_path, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			node.ID().String(), ord, node.Name(), string(node.Type()), string(node.Language()),
			node.Position().X, node.Position().Y, selectedFile,
			node.ProjectPath(), node.EnvironmentPath(),
			node.CreatedAt().Format(time.RFC3339Nano), node.UpdatedAt().Format(time.RFC3339Nano))
		if err != nil {
			return pkgerrors.NewIOError("save node row", err)
		}

		for fileOrd, file := range node.Files() {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO files (id, node_id, ord, path, name, content, language, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				file.ID().String(), node.ID().String(), fileOrd,
				file.Path().String(), file.Name(), file.Content(), string(file.Language()),
				file.CreatedAt().Format(time.RFC3339Nano), file.UpdatedAt().Format(time.RFC3339Nano))
			if err != nil {
				return pkgerrors.NewIOError("save file row", err)
			}
		}

		for connOrd, target := range node.Connections() {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO connections (source_id, target_id, ord) VALUES (?, ?, ?)`,
				node.ID().String(), target.String(), connOrd)
			if err != nil {
				return pkgerrors.NewIOError("save connection row", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewIOError("commit checkpoint", err)
	}
	s.logger.Debug("checkpoint saved", zap.Int("nodes", ws.NodeCount()))
	return nil
}

// Load rebuilds the workspace from the stored checkpoint. The second
// return value is false when no checkpoint exists.
func (s *CheckpointStore) Load(ctx context.Context) (*aggregates.Workspace, bool, error) {
	var (
		selectedNode string
		offX, offY   float64
		scale        float64
		savedAt      string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT selected_node_id, canvas_offset_x, canvas_offset_y, canvas_scale, saved_at FROM workspace WHERE id = 1`).
		Scan(&selectedNode, &offX, &offY, &scale, &savedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.NewIOError("load workspace row", err)
	}

	nodes, err := s.loadNodes(ctx)
	if err != nil {
		return nil, false, err
	}

	var selectedID valueobjects.NodeID
	if selectedNode != "" {
		if parsed, perr := valueobjects.NewNodeIDFromString(selectedNode); perr == nil {
			selectedID = parsed
		}
	}
	offset, err := valueobjects.NewPosition(offX, offY)
	if err != nil {
		offset = valueobjects.Position{}
	}
	ws, err := aggregates.ReconstructWorkspace(nodes, selectedID, valueobjects.NewCanvasTransform(offset, scale))
	if err != nil {
		return nil, false, err
	}
	return ws, true, nil
}

// Close closes the database.
func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

func (s *CheckpointStore) loadNodes(ctx context.Context) ([]*entities.Node, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, node_type, language, pos_x, pos_y, selected_file_id, project_path, environment_path, created_at, updated_at
		 FROM nodes ORDER BY ord`)
	if err != nil {
		return nil, pkgerrors.NewIOError("load node rows", err)
	}
	defer rows.Close()

	type nodeRow struct {
		id, name, nodeType, language       string
		posX, posY                         float64
		selectedFile, projPath, envPath    string
		createdAt, updatedAt               string
	}
	var nodeRows []nodeRow
	for rows.Next() {
		var r nodeRow
		if err := rows.Scan(&r.id, &r.name, &r.nodeType, &r.language, &r.posX, &r.posY,
			&r.selectedFile, &r.projPath, &r.envPath, &r.createdAt, &r.updatedAt); err != nil {
			return nil, pkgerrors.NewIOError("scan node row", err)
		}
		nodeRows = append(nodeRows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewIOError("iterate node rows", err)
	}

	nodes := make([]*entities.Node, 0, len(nodeRows))
	for _, r := range nodeRows {
		nodeID, err := valueobjects.NewNodeIDFromString(r.id)
		if err != nil {
			return nil, pkgerrors.NewInternalError("checkpoint holds invalid node id " + r.id)
		}
		files, err := s.loadFiles(ctx, r.id)
		if err != nil {
			return nil, err
		}
		connections, err := s.loadConnections(ctx, r.id)
		if err != nil {
			return nil, err
		}

		position, err := valueobjects.NewPosition(r.posX, r.posY)
		if err != nil {
			position = valueobjects.Position{}
		}
		var selectedFile valueobjects.FileID
		if r.selectedFile != "" {
			if parsed, perr := valueobjects.NewFileIDFromString(r.selectedFile); perr == nil {
				selectedFile = parsed
			}
		}

		node, err := entities.ReconstructNode(
			nodeID, r.name, entities.NodeType(r.nodeType), scaffold.Language(r.language),
			position, files, selectedFile, connections,
			r.projPath, r.envPath,
			parseTime(r.createdAt), parseTime(r.updatedAt))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (s *CheckpointStore) loadFiles(ctx context.Context, nodeID string) ([]*entities.ProjectFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, name, content, language, created_at, updated_at
		 FROM files WHERE node_id = ? ORDER BY ord`, nodeID)
	if err != nil {
		return nil, pkgerrors.NewIOError("load file rows", err)
	}
	defer rows.Close()

	var files []*entities.ProjectFile
	for rows.Next() {
		var id, path, name, content, language, createdAt, updatedAt string
		if err := rows.Scan(&id, &path, &name, &content, &language, &createdAt, &updatedAt); err != nil {
			return nil, pkgerrors.NewIOError("scan file row", err)
		}
		fileID, err := valueobjects.NewFileIDFromString(id)
		if err != nil {
			return nil, pkgerrors.NewInternalError("checkpoint holds invalid file id " + id)
		}
		relPath, err := valueobjects.NewRelPath(path)
		if err != nil {
			return nil, err
		}
		file, err := entities.ReconstructProjectFile(fileID, relPath, name, content,
			scaffold.Language(language), parseTime(createdAt), parseTime(updatedAt))
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (s *CheckpointStore) loadConnections(ctx context.Context, nodeID string) ([]valueobjects.NodeID, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT target_id FROM connections WHERE source_id = ? ORDER BY ord`, nodeID)
	if err != nil {
		return nil, pkgerrors.NewIOError("load connection rows", err)
	}
	defer rows.Close()

	var targets []valueobjects.NodeID
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, pkgerrors.NewIOError("scan connection row", err)
		}
		id, err := valueobjects.NewNodeIDFromString(target)
		if err != nil {
			continue
		}
		targets = append(targets, id)
	}
	return targets, rows.Err()
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Now()
	}
	return t
}
