// Package materialize turns in-memory project state into on-disk
// directory trees. The filesystem is abstracted behind go-billy so the
// same code runs against the real disk and an in-memory fs in tests.
package materialize

import (
	"context"
	"errors"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"go.uber.org/zap"

	"atelier/application/ports"
	"atelier/domain/core/valueobjects"
	"atelier/domain/scaffold"
	pkgerrors "atelier/pkg/errors"
)

// BillyMaterializer implements ports.Materializer on a billy
// filesystem.
type BillyMaterializer struct {
	fs     billy.Filesystem
	root   string
	probe  ports.RuntimeProbe
	logger *zap.Logger
}

// NewBillyMaterializer creates a materializer writing under root
// within fs. The probe may be nil, in which case manifests pin the
// catalog's default runtime version.
func NewBillyMaterializer(fs billy.Filesystem, root string, probe ports.RuntimeProbe, logger *zap.Logger) *BillyMaterializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillyMaterializer{fs: fs, root: root, probe: probe, logger: logger}
}

// ProjectRoot derives the stable on-disk root for a node id.
func (m *BillyMaterializer) ProjectRoot(id valueobjects.NodeID) string {
	return m.fs.Join(m.root, id.String())
}

// CreateProjectStructure builds the scaffold tree for a node:
// directories, manifest and every listed file. Re-running refreshes
// listed files but never touches the manifest or unlisted files, so a
// tree the user has grown stays intact.
func (m *BillyMaterializer) CreateProjectStructure(ctx context.Context, layout ports.ProjectLayout) (ports.MaterializeResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.MaterializeResult{}, err
	}

	entry, ok := scaffold.Lookup(layout.Language)
	if !ok {
		return ports.MaterializeResult{}, pkgerrors.NewValidationError("unknown language: " + string(layout.Language))
	}

	root := layout.ProjectPath
	if root == "" {
		root = m.ProjectRoot(layout.NodeID)
	}
	if err := m.fs.MkdirAll(root, 0o755); err != nil {
		return ports.MaterializeResult{}, pkgerrors.NewIOError("create project root", err)
	}
	for _, dir := range entry.Directories {
		if err := m.fs.MkdirAll(m.fs.Join(root, dir), 0o755); err != nil {
			return ports.MaterializeResult{}, pkgerrors.NewIOError("create scaffold directory", err)
		}
	}

	runtime := entry.DefaultRuntime
	if m.probe != nil {
		if v, found := m.probe.Version(ctx, layout.Language); found {
			runtime = v
		}
	}

	if entry.ManifestPath != "" {
		manifestPath := m.fs.Join(root, entry.ManifestPath)
		if _, err := m.fs.Stat(manifestPath); errors.Is(err, os.ErrNotExist) {
			content := entry.Manifest(layout.Name, runtime)
			if err := util.WriteFile(m.fs, manifestPath, []byte(content), 0o644); err != nil {
				return ports.MaterializeResult{}, pkgerrors.NewIOError("write manifest", err)
			}
		}
	}

	environmentPath := ""
	if entry.UsesEnvironment && entry.EnvironmentDir != "" {
		environmentPath = m.fs.Join(root, entry.EnvironmentDir)
		if err := m.fs.MkdirAll(environmentPath, 0o755); err != nil {
			return ports.MaterializeResult{}, pkgerrors.NewIOError("create environment directory", err)
		}
	}

	for _, snap := range layout.Files {
		snap.ProjectPath = root
		if err := m.SaveFile(ctx, snap); err != nil {
			return ports.MaterializeResult{}, err
		}
	}

	m.logger.Debug("project structure materialized",
		zap.String("node_id", layout.NodeID.String()),
		zap.String("root", root))
	return ports.MaterializeResult{
		ProjectPath:     root,
		EnvironmentPath: environmentPath,
		RuntimeVersion:  runtime,
	}, nil
}

// SaveFile writes one file's content, creating intermediate
// directories as needed.
func (m *BillyMaterializer) SaveFile(ctx context.Context, snap ports.FileSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := m.fs.Join(snap.ProjectPath, snap.Path.String())
	if dir := snap.Path.Dir(); dir != "" {
		if err := m.fs.MkdirAll(m.fs.Join(snap.ProjectPath, dir), 0o755); err != nil {
			return pkgerrors.NewIOError("create file directory", err)
		}
	}
	if err := util.WriteFile(m.fs, target, []byte(snap.Content), 0o644); err != nil {
		return pkgerrors.NewIOError("write file", err)
	}
	return nil
}

// DeleteFile removes a file's on-disk counterpart. A file already
// missing from disk is not an error.
func (m *BillyMaterializer) DeleteFile(ctx context.Context, projectPath string, path valueobjects.RelPath) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.fs.Remove(m.fs.Join(projectPath, path.String()))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerrors.NewIOError("delete file", err)
	}
	return nil
}

// RenameFile renames a file on disk. The caller owns the in-memory
// rollback when this fails.
func (m *BillyMaterializer) RenameFile(ctx context.Context, projectPath string, oldPath, newPath valueobjects.RelPath) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := m.fs.Join(projectPath, oldPath.String())
	to := m.fs.Join(projectPath, newPath.String())
	if dir := newPath.Dir(); dir != "" {
		if err := m.fs.MkdirAll(m.fs.Join(projectPath, dir), 0o755); err != nil {
			return pkgerrors.NewIOError("create file directory", err)
		}
	}
	if err := m.fs.Rename(from, to); err != nil {
		return pkgerrors.NewIOError("rename file", err)
	}
	return nil
}
