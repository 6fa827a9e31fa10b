//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/application/navigation"
	"storycanvas/application/ports"
	"storycanvas/application/session"
	"storycanvas/domain/palette"
	"storycanvas/infrastructure/config"
	"storycanvas/infrastructure/realtime"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	CanvasRepo  ports.CanvasRepository
	Hub         *realtime.Hub
	Manager     *session.Manager
	Coordinator *collab.Coordinator
	NavStore    *navigation.Store
	Resolver    *palette.Resolver
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideCanvasRepository,
	ProvideDomainConfig,
	ProvideTemplateRegistry,
	ProvidePaletteResolver,
	ProvideNavigationStore,
	ProvideHub,
	ProvideChannelFactory,
	ProvideSessionManager,
	ProvideCoordinator,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
