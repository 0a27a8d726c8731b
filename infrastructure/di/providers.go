// Package di wires the application together: providers for every
// dependency plus a manually assembled Container used by the CLI.
package di

import (
	"context"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"

	"atelier/application/commands"
	cmdbus "atelier/application/commands/bus"
	"atelier/application/ports"
	"atelier/application/queries"
	qbus "atelier/application/queries/bus"
	qhandlers "atelier/application/queries/handlers"
	"atelier/application/services"
	domaincfg "atelier/domain/config"
	"atelier/domain/core/aggregates"
	"atelier/infrastructure/config"
	"atelier/infrastructure/materialize"
	"atelier/infrastructure/messaging"
	"atelier/infrastructure/persistence/flush"
	"atelier/infrastructure/persistence/sqlite"
	"atelier/pkg/observability"
)

// ProvideLogger creates the zap logger for the configured environment
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		zcfg := zap.NewProductionConfig()
		if err := zcfg.Level.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
			return zcfg.Build()
		}
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideDomainConfig supplies the workspace limits
func ProvideDomainConfig() *domaincfg.DomainConfig {
	return domaincfg.DefaultDomainConfig()
}

// ProvideEventBus creates the in-process event bus
func ProvideEventBus(logger *zap.Logger) *messaging.MemoryEventBus {
	return messaging.NewMemoryEventBus(logger)
}

// ProvideRuntimeProbe picks the runtime probe per configuration
func ProvideRuntimeProbe(cfg *config.Config, logger *zap.Logger) ports.RuntimeProbe {
	if cfg.EnableRuntimeProbe {
		return materialize.NewExecProbe(logger)
	}
	return materialize.NopProbe{}
}

// ProvideFilesystem supplies the billy filesystem the materializer
// writes through.
func ProvideFilesystem() billy.Filesystem {
	return osfs.New("/")
}

// ProvideMaterializer creates the disk materializer
func ProvideMaterializer(fs billy.Filesystem, cfg *config.Config, probe ports.RuntimeProbe, logger *zap.Logger) *materialize.BillyMaterializer {
	return materialize.NewBillyMaterializer(fs, cfg.ProjectsRoot, probe, logger)
}

// ProvideCheckpointStore opens the sqlite checkpoint database
func ProvideCheckpointStore(cfg *config.Config, logger *zap.Logger) (*sqlite.CheckpointStore, error) {
	return sqlite.Open(cfg.CheckpointPath, logger)
}

// ProvideWorkspace restores the last checkpoint or starts empty.
func ProvideWorkspace(ctx context.Context, checkpoints *sqlite.CheckpointStore, logger *zap.Logger) (*aggregates.Workspace, error) {
	ws, found, err := checkpoints.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		logger.Info("no checkpoint found, starting with an empty workspace")
		return aggregates.NewWorkspace(), nil
	}
	logger.Info("workspace restored from checkpoint", zap.Int("nodes", ws.NodeCount()))
	return ws, nil
}

// ProvideWorkspaceStore creates the store and attaches the flush
// coordinator; the two reference each other, so the coordinator is
// built against the store's resolver here.
func ProvideWorkspaceStore(
	ws *aggregates.Workspace,
	domainCfg *domaincfg.DomainConfig,
	materializer *materialize.BillyMaterializer,
	eventBus *messaging.MemoryEventBus,
	cfg *config.Config,
	logger *zap.Logger,
) (*services.WorkspaceStore, *flush.Coordinator) {
	store := services.NewWorkspaceStore(ws, domainCfg, materializer, eventBus, logger)
	coordinator := flush.NewCoordinator(materializer, store, cfg.FlushDebounce, cfg.FlushRetryAttempts, logger)
	store.AttachFlusher(coordinator)
	return store, coordinator
}

// ProvideCommandBus registers every command handler
func ProvideCommandBus(store *services.WorkspaceStore, logger *zap.Logger) (*cmdbus.CommandBus, error) {
	b := cmdbus.NewCommandBus()
	pipeline := cmdbus.NewPipeline(cmdbus.LoggingMiddleware(logger))

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
		if err := b.Register(reg.cmd, pipeline.Execute(reg.handler)); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ProvideQueryBus registers every query handler
func ProvideQueryBus(store *services.WorkspaceStore, domainCfg *domaincfg.DomainConfig) (*qbus.QueryBus, error) {
	b := qbus.NewQueryBus()
	metrics := qbus.NewMetricsMiddleware(observability.NewQueryMetrics())

	registrations := []struct {
		query   qbus.Query
		handler qbus.QueryHandler
	}{
		{queries.GetWorkspaceQuery{}, qhandlers.NewGetWorkspaceHandler(store)},
		{queries.GetNodeQuery{}, qhandlers.NewGetNodeHandler(store)},
		{queries.GetFileQuery{}, qhandlers.NewGetFileHandler(store)},
		{queries.AssistantContextQuery{}, qhandlers.NewAssistantContextHandler(store, domainCfg)},
	}
	for _, reg := range registrations {
		if err := b.Register(reg.query, metrics.Wrap(reg.handler)); err != nil {
			return nil, err
		}
	}
	return b, nil
}
