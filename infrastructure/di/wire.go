//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"atelier/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideEventBus,
	ProvideRuntimeProbe,
	ProvideFilesystem,
	ProvideMaterializer,
	ProvideCheckpointStore,
	ProvideWorkspace,
	ProvideWorkspaceStore,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
