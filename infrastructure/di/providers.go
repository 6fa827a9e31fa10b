package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/application/navigation"
	"storycanvas/application/ports"
	"storycanvas/application/session"
	domainconfig "storycanvas/domain/config"
	"storycanvas/domain/palette"
	"storycanvas/domain/templates"
	"storycanvas/infrastructure/config"
	"storycanvas/infrastructure/persistence/dynamodb"
	"storycanvas/infrastructure/persistence/memory"
	"storycanvas/infrastructure/realtime"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideCanvasRepository creates the canvas repository. Development
// runs entirely in memory; everything else hits the DynamoDB table.
func ProvideCanvasRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.CanvasRepository {
	if cfg.IsDevelopment() {
		return memory.NewCanvasRepository()
	}
	return dynamodb.NewCanvasRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideDomainConfig creates the graph limits configuration
func ProvideDomainConfig() *domainconfig.DomainConfig {
	return domainconfig.DefaultDomainConfig()
}

// ProvideTemplateRegistry loads the builtin templates
func ProvideTemplateRegistry() (*templates.Registry, error) {
	return templates.LoadBuiltin()
}

// ProvidePaletteResolver creates the palette resolver with default themes
func ProvidePaletteResolver() *palette.Resolver {
	return palette.NewResolver()
}

// ProvideNavigationStore creates the per-user navigation store
func ProvideNavigationStore() *navigation.Store {
	return navigation.NewStore()
}

// ProvideHub creates the websocket room hub, attaching the Redis bridge
// when a Redis address is configured
func ProvideHub(cfg *config.Config, logger *zap.Logger) *realtime.Hub {
	hub := realtime.NewHub(logger)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		bridge := realtime.NewRedisBridge(client, cfg.RedisChannel, hub, logger)
		hub.SetBridge(bridge)
		bridge.Start(context.Background())
	}
	return hub
}

// ProvideChannelFactory exposes the hub as the realtime channel factory
func ProvideChannelFactory(hub *realtime.Hub) ports.ChannelFactory {
	return hub
}

// ProvideSessionManager creates the canvas session manager
func ProvideSessionManager(
	repo ports.CanvasRepository,
	registry *templates.Registry,
	resolver *palette.Resolver,
	domainCfg *domainconfig.DomainConfig,
	cfg *config.Config,
	logger *zap.Logger,
) *session.Manager {
	return session.NewManager(repo, registry, resolver, domainCfg, cfg.PersistDebounce, logger)
}

// ProvideCoordinator pairs sessions with sync engines
func ProvideCoordinator(
	manager *session.Manager,
	factory ports.ChannelFactory,
	cfg *config.Config,
	logger *zap.Logger,
) *collab.Coordinator {
	return collab.NewCoordinator(manager, factory, cfg.PresenceInterval, logger)
}
