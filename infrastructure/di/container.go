package di

import (
	"context"

	"go.uber.org/zap"

	cmdbus "atelier/application/commands/bus"
	qbus "atelier/application/queries/bus"
	"atelier/application/services"
	"atelier/domain/core/aggregates"
	"atelier/infrastructure/config"
	"atelier/infrastructure/materialize"
	"atelier/infrastructure/messaging"
	"atelier/infrastructure/persistence/flush"
	"atelier/infrastructure/persistence/sqlite"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Store       *services.WorkspaceStore
	Coordinator *flush.Coordinator
	EventBus    *messaging.MemoryEventBus
	Checkpoints *sqlite.CheckpointStore
	Watcher     *materialize.FsnotifyWatcher
	CommandBus  *cmdbus.CommandBus
	QueryBus    *qbus.QueryBus

	watcherCancel context.CancelFunc
}

// NewContainer assembles the full application
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}

	domainCfg := ProvideDomainConfig()
	eventBus := ProvideEventBus(logger)
	probe := ProvideRuntimeProbe(cfg, logger)
	fs := ProvideFilesystem()
	materializer := ProvideMaterializer(fs, cfg, probe, logger)

	checkpoints, err := ProvideCheckpointStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	ws, err := ProvideWorkspace(ctx, checkpoints, logger)
	if err != nil {
		checkpoints.Close()
		return nil, err
	}

	store, coordinator := ProvideWorkspaceStore(ws, domainCfg, materializer, eventBus, cfg, logger)

	commandBus, err := ProvideCommandBus(store, logger)
	if err != nil {
		checkpoints.Close()
		return nil, err
	}
	queryBus, err := ProvideQueryBus(store, domainCfg)
	if err != nil {
		checkpoints.Close()
		return nil, err
	}

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Coordinator: coordinator,
		EventBus:    eventBus,
		Checkpoints: checkpoints,
		CommandBus:  commandBus,
		QueryBus:    queryBus,
	}

	if cfg.EnableDriftWatcher {
		watcher, err := materialize.NewFsnotifyWatcher(eventBus, logger)
		if err != nil {
			logger.Warn("drift watcher unavailable", zap.Error(err))
		} else {
			watcherCtx, cancel := context.WithCancel(context.Background())
			c.Watcher = watcher
			c.watcherCancel = cancel
			go watcher.Run(watcherCtx)
		}
	}

	return c, nil
}

// SaveCheckpoint drains pending writes and snapshots the workspace.
func (c *Container) SaveCheckpoint(ctx context.Context) error {
	if err := c.Coordinator.FlushAll(); err != nil {
		c.Logger.Warn("flush before checkpoint failed", zap.Error(err))
	}
	var saveErr error
	c.Store.Read(func(ws *aggregates.Workspace) {
		saveErr = c.Checkpoints.Save(ctx, ws)
	})
	return saveErr
}

// Shutdown stops everything in dependency order: writes drain, the
// final checkpoint lands, then the infrastructure closes.
func (c *Container) Shutdown(ctx context.Context) {
	if err := c.Coordinator.Close(); err != nil {
		c.Logger.Warn("coordinator close failed", zap.Error(err))
	}
	if err := c.SaveCheckpoint(ctx); err != nil {
		c.Logger.Error("final checkpoint failed", zap.Error(err))
	}
	if c.Watcher != nil {
		c.watcherCancel()
		_ = c.Watcher.Close()
	}
	c.EventBus.Close()
	if err := c.Checkpoints.Close(); err != nil {
		c.Logger.Warn("checkpoint store close failed", zap.Error(err))
	}
	_ = c.Logger.Sync()
}
