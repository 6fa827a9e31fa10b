package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"storycanvas/application/ports"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	"storycanvas/domain/events"
	"storycanvas/domain/palette"
	pkgerrors "storycanvas/pkg/errors"
)

// ChangeListener receives every CanvasChanged event a session emits
type ChangeListener func(event events.CanvasChanged)

// CanvasSession owns one open canvas. All access to the underlying
// aggregate is serialized through the session mutex, so observers see
// each mutation completely applied or not at all. The session also owns
// the debounced persistence of its canvas and fans mutation events out
// to subscribed listeners (the sync engine, the renderer).
type CanvasSession struct {
	mu        sync.Mutex
	canvas    *aggregates.Canvas
	palette   *palette.Palette
	listeners []ChangeListener
	persister *debouncedPersister
	logger    *zap.Logger
}

func newCanvasSession(canvas *aggregates.Canvas, pal *palette.Palette, persister *debouncedPersister, logger *zap.Logger) *CanvasSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CanvasSession{
		canvas:    canvas,
		palette:   pal,
		persister: persister,
		logger:    logger,
	}
}

// StoryID returns the owning story
func (s *CanvasSession) StoryID() string {
	return s.canvas.StoryID()
}

// CanvasID returns the canvas key
func (s *CanvasSession) CanvasID() aggregates.CanvasID {
	return s.canvas.ID()
}

// Subscribe registers a listener for mutation events. Listeners are
// invoked outside the session lock, in registration order.
func (s *CanvasSession) Subscribe(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// AddNode inserts a node into the canvas
func (s *CanvasSession) AddNode(ctx context.Context, node entities.Node, originUserID string) error {
	s.mu.Lock()
	err := s.canvas.AddNode(node, originUserID)
	pending, listeners := s.drainLocked(err == nil)
	s.mu.Unlock()
	dispatch(pending, listeners)
	return err
}

// UpdateNode merges a partial update into a node. Updates addressed to a
// node that no longer exists are logged and swallowed: with last-writer
// wins sync a concurrent delete can legitimately race an edit, and the
// losing edit is not an error.
func (s *CanvasSession) UpdateNode(ctx context.Context, id valueobjects.NodeID, patch entities.NodePatch, originUserID string) error {
	s.mu.Lock()
	err := s.canvas.UpdateNode(id, patch, originUserID)
	pending, listeners := s.drainLocked(err == nil)
	s.mu.Unlock()
	dispatch(pending, listeners)
	if pkgerrors.IsNotFound(err) {
		s.logger.Warn("update for missing node ignored",
			zap.String("canvas_id", s.canvas.ID().String()),
			zap.String("node_id", id.String()),
		)
		return nil
	}
	return err
}

// DeleteNode removes a node and its dependents. Deleting an already
// missing node is a no-op, same rationale as UpdateNode.
func (s *CanvasSession) DeleteNode(ctx context.Context, id valueobjects.NodeID, originUserID string) error {
	s.mu.Lock()
	err := s.canvas.DeleteNode(id, originUserID)
	pending, listeners := s.drainLocked(err == nil)
	s.mu.Unlock()
	dispatch(pending, listeners)
	if pkgerrors.IsNotFound(err) {
		s.logger.Warn("delete for missing node ignored",
			zap.String("canvas_id", s.canvas.ID().String()),
			zap.String("node_id", id.String()),
		)
		return nil
	}
	return err
}

// AddConnection inserts a connection into the canvas
func (s *CanvasSession) AddConnection(ctx context.Context, conn entities.Connection, originUserID string) error {
	s.mu.Lock()
	err := s.canvas.AddConnection(conn, originUserID)
	pending, listeners := s.drainLocked(err == nil)
	s.mu.Unlock()
	dispatch(pending, listeners)
	return err
}

// DeleteConnection removes a connection. Missing connections are ignored.
func (s *CanvasSession) DeleteConnection(ctx context.Context, id valueobjects.ConnectionID, originUserID string) error {
	s.mu.Lock()
	err := s.canvas.DeleteConnection(id, originUserID)
	pending, listeners := s.drainLocked(err == nil)
	s.mu.Unlock()
	dispatch(pending, listeners)
	if pkgerrors.IsNotFound(err) {
		s.logger.Warn("delete for missing connection ignored",
			zap.String("canvas_id", s.canvas.ID().String()),
			zap.String("connection_id", id.String()),
		)
		return nil
	}
	return err
}

// ApplyRemoteSnapshot replaces the whole graph with state received from
// another editor and schedules persistence of the new state
func (s *CanvasSession) ApplyRemoteSnapshot(ctx context.Context, nodes []entities.Node, connections []entities.Connection, originUserID string) {
	s.mu.Lock()
	s.canvas.ApplyRemoteSnapshot(nodes, connections, originUserID)
	pending, listeners := s.drainLocked(true)
	s.mu.Unlock()
	dispatch(pending, listeners)
}

// SetPalette stores the canvas-scoped palette and schedules persistence
func (s *CanvasSession) SetPalette(pal *palette.Palette) {
	s.mu.Lock()
	s.palette = pal
	s.persister.schedule(s.snapshotFn())
	s.mu.Unlock()
}

// Palette returns the canvas-scoped palette, if one is set
func (s *CanvasSession) Palette() *palette.Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette
}

// Snapshot returns the current persisted form of the canvas
func (s *CanvasSession) Snapshot() *ports.GraphSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Flush writes any pending state immediately
func (s *CanvasSession) Flush(ctx context.Context) error {
	return s.persister.flush(ctx)
}

// Close flushes pending state and stops the session's persister
func (s *CanvasSession) Close(ctx context.Context) error {
	return s.persister.close(ctx)
}

// drainLocked collects uncommitted events, schedules persistence when the
// mutation succeeded, and returns what must happen after the lock drops
func (s *CanvasSession) drainLocked(mutated bool) ([]events.CanvasChanged, []ChangeListener) {
	if !mutated {
		return nil, nil
	}
	raw := s.canvas.GetUncommittedEvents()
	s.canvas.MarkEventsAsCommitted()

	pending := make([]events.CanvasChanged, 0, len(raw))
	for _, e := range raw {
		if ce, ok := e.(events.CanvasChanged); ok {
			pending = append(pending, ce)
		}
	}

	s.persister.schedule(s.snapshotFn())

	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	return pending, listeners
}

func (s *CanvasSession) snapshotLocked() *ports.GraphSnapshot {
	nodes, connections := s.canvas.Snapshot()
	return &ports.GraphSnapshot{
		StoryID:     s.canvas.StoryID(),
		CanvasID:    s.canvas.ID(),
		Nodes:       nodes,
		Connections: connections,
		Palette:     s.palette,
		Version:     int64(s.canvas.Version()),
		UpdatedAt:   s.canvas.UpdatedAt().UnixMilli(),
	}
}

// snapshotFn defers snapshot capture to persist time, so the write that
// lands after the debounce window reflects the latest state
func (s *CanvasSession) snapshotFn() func() *ports.GraphSnapshot {
	return func() *ports.GraphSnapshot {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.snapshotLocked()
	}
}

func dispatch(pending []events.CanvasChanged, listeners []ChangeListener) {
	for _, event := range pending {
		for _, listener := range listeners {
			listener(event)
		}
	}
}
