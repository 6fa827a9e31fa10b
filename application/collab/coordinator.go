package collab

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storycanvas/application/ports"
	"storycanvas/application/session"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
)

type engineKey struct {
	storyID  string
	canvasID aggregates.CanvasID
}

// Coordinator pairs every open canvas session with a sync engine, so the
// server participates in each room as an editor in its own right: client
// snapshots land in the authoritative session and REST mutations flow
// back out to the room.
type Coordinator struct {
	manager  *session.Manager
	factory  ports.ChannelFactory
	interval time.Duration
	serverID string
	logger   *zap.Logger

	mu      sync.Mutex
	engines map[engineKey]*SyncEngine
}

// NewCoordinator creates a coordinator around a session manager
func NewCoordinator(manager *session.Manager, factory ports.ChannelFactory, announceInterval time.Duration, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		manager:  manager,
		factory:  factory,
		interval: announceInterval,
		serverID: "server:" + uuid.NewString(),
		logger:   logger,
		engines:  make(map[engineKey]*SyncEngine),
	}
}

// Open returns the session for a canvas with its sync engine running
func (c *Coordinator) Open(ctx context.Context, storyID string, canvasID aggregates.CanvasID, ownerKind entities.NodeKind) (*session.CanvasSession, error) {
	sess, err := c.manager.Open(ctx, storyID, canvasID, ownerKind)
	if err != nil {
		return nil, err
	}

	key := engineKey{storyID: sess.StoryID(), canvasID: sess.CanvasID()}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.engines[key]; ok {
		return sess, nil
	}

	engine, err := NewSyncEngine(sess, c.factory, Config{
		UserID:           c.serverID,
		UserName:         "server",
		AnnounceInterval: c.interval,
	}, c.logger)
	if err != nil {
		return nil, err
	}
	if err := engine.Start(ctx); err != nil {
		return nil, err
	}
	c.engines[key] = engine
	return sess, nil
}

// Close stops the sync engine and flushes the session for one canvas
func (c *Coordinator) Close(ctx context.Context, storyID string, canvasID aggregates.CanvasID) error {
	key := engineKey{storyID: storyID, canvasID: canvasID}
	c.mu.Lock()
	engine, ok := c.engines[key]
	delete(c.engines, key)
	c.mu.Unlock()
	if ok {
		if err := engine.Stop(); err != nil {
			c.logger.Warn("sync engine stop failed", zap.Error(err))
		}
	}
	return c.manager.Close(ctx, storyID, canvasID)
}

// CloseAll stops every engine and flushes every session, for shutdown
func (c *Coordinator) CloseAll(ctx context.Context) error {
	c.mu.Lock()
	engines := make([]*SyncEngine, 0, len(c.engines))
	for _, engine := range c.engines {
		engines = append(engines, engine)
	}
	c.engines = make(map[engineKey]*SyncEngine)
	c.mu.Unlock()

	for _, engine := range engines {
		if err := engine.Stop(); err != nil {
			c.logger.Warn("sync engine stop failed", zap.Error(err))
		}
	}
	return c.manager.CloseAll(ctx)
}

// Manager exposes the underlying session manager
func (c *Coordinator) Manager() *session.Manager {
	return c.manager
}
