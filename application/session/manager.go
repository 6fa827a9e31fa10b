package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"storycanvas/application/ports"
	"storycanvas/domain/config"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/palette"
	"storycanvas/domain/templates"
	pkgerrors "storycanvas/pkg/errors"
	"storycanvas/pkg/utils"
)

// DefaultPersistDebounce is the quiet period before an edited canvas is
// written back
const DefaultPersistDebounce = 2 * time.Second

type sessionKey struct {
	storyID  string
	canvasID aggregates.CanvasID
}

// Manager opens and tracks canvas sessions. One session exists per
// (story, canvas) pair; concurrent opens of the same canvas share it.
// The manager also owns the per-story forest, so id uniqueness holds
// across every canvas of a story, not just within one.
type Manager struct {
	repo     ports.CanvasRepository
	registry *templates.Registry
	resolver *palette.Resolver
	cfg      *config.DomainConfig
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*CanvasSession
	forests  map[string]*aggregates.Forest
}

// NewManager creates a session manager
func NewManager(
	repo ports.CanvasRepository,
	registry *templates.Registry,
	resolver *palette.Resolver,
	cfg *config.DomainConfig,
	debounce time.Duration,
	logger *zap.Logger,
) *Manager {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if debounce <= 0 {
		debounce = DefaultPersistDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		repo:     repo,
		registry: registry,
		resolver: resolver,
		cfg:      cfg,
		debounce: debounce,
		logger:   logger,
		sessions: make(map[sessionKey]*CanvasSession),
		forests:  make(map[string]*aggregates.Forest),
	}
}

// Open returns the session for a canvas, creating it on first access.
// A canvas with persisted state loads that state, even when the saved
// graph is empty; only a canvas that has never been saved is seeded from
// its template. ownerKind is the kind of the folder node that links the
// canvas, used as the last template lookup fallback.
func (m *Manager) Open(ctx context.Context, storyID string, canvasID aggregates.CanvasID, ownerKind entities.NodeKind) (*CanvasSession, error) {
	if storyID == "" {
		return nil, pkgerrors.NewValidationError("storyID cannot be empty")
	}
	if canvasID == "" {
		canvasID = aggregates.RootCanvasID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{storyID: storyID, canvasID: canvasID}
	if sess, ok := m.sessions[key]; ok {
		return sess, nil
	}

	canvas, err := aggregates.NewCanvas(storyID, canvasID, m.forestForLocked(storyID), m.cfg)
	if err != nil {
		return nil, err
	}

	var pal *palette.Palette
	snapshot, err := m.repo.Load(ctx, storyID, canvasID)
	switch {
	case err == nil:
		if err := canvas.LoadSnapshot(snapshot.Nodes, snapshot.Connections); err != nil {
			return nil, err
		}
		pal = snapshot.Palette
	case pkgerrors.IsNotFound(err):
		if err := m.seedLocked(ctx, canvas, ownerKind); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if pal != nil && m.resolver != nil {
		m.resolver.SetFolderPalette(canvasID.String(), *pal)
	}

	persister := newDebouncedPersister(m.repo, m.debounce, m.logger)
	sess := newCanvasSession(canvas, pal, persister, m.logger)
	m.sessions[key] = sess

	m.logger.Info("canvas session opened",
		zap.String("story_id", storyID),
		zap.String("canvas_id", canvasID.String()),
		zap.Int("nodes", len(canvas.Nodes())),
	)
	return sess, nil
}

// seedLocked fills a never-saved canvas from its template, persisting the
// instantiated graphs immediately so a reload finds saved state and never
// instantiates twice. A template miss leaves the canvas empty, which is
// also persisted so emptiness is remembered.
func (m *Manager) seedLocked(ctx context.Context, canvas *aggregates.Canvas, ownerKind entities.NodeKind) error {
	storyID := canvas.StoryID()

	tpl, ok := m.registry.Resolve(canvas.ID(), ownerKind)
	if !ok {
		return m.repo.Save(ctx, emptySnapshot(storyID, canvas.ID()))
	}

	inst, err := templates.Instantiate(tpl)
	if err != nil {
		return err
	}
	if err := canvas.LoadSnapshot(inst.Nodes, inst.Connections); err != nil {
		return err
	}

	// Sub-canvas graphs are persisted up front under their derived
	// identities; opening one later takes the load path, not this one.
	for subID, graph := range inst.SubCanvases {
		snap := &ports.GraphSnapshot{
			StoryID:     storyID,
			CanvasID:    subID,
			Nodes:       graph.Nodes,
			Connections: graph.Connections,
			Version:     1,
			UpdatedAt:   utils.NowMillis(),
		}
		if err := m.repo.Save(ctx, snap); err != nil {
			return err
		}
	}

	nodes, connections := canvas.Snapshot()
	if err := m.repo.Save(ctx, &ports.GraphSnapshot{
		StoryID:     storyID,
		CanvasID:    canvas.ID(),
		Nodes:       nodes,
		Connections: connections,
		Version:     int64(canvas.Version()),
		UpdatedAt:   canvas.UpdatedAt().UnixMilli(),
	}); err != nil {
		return err
	}

	m.logger.Info("canvas instantiated from template",
		zap.String("story_id", storyID),
		zap.String("canvas_id", canvas.ID().String()),
		zap.String("template_id", tpl.ID),
		zap.String("suffix", inst.Suffix),
		zap.Int("sub_canvases", len(inst.SubCanvases)),
	)
	return nil
}

// Close flushes and removes one session. The canvas's ids are released
// from the story forest so a later Open can load the saved state back.
func (m *Manager) Close(ctx context.Context, storyID string, canvasID aggregates.CanvasID) error {
	m.mu.Lock()
	key := sessionKey{storyID: storyID, canvasID: canvasID}
	sess, ok := m.sessions[key]
	delete(m.sessions, key)
	if forest, have := m.forests[storyID]; have && ok {
		forest.ReleaseCanvas(canvasID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return sess.Close(ctx)
}

// CloseAll flushes every open session, for shutdown
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*CanvasSession, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[sessionKey]*CanvasSession)
	m.forests = make(map[string]*aggregates.Forest)
	m.mu.Unlock()

	var firstErr error
	for _, sess := range sessions {
		if err := sess.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListCanvases returns every canvas id saved under a story
func (m *Manager) ListCanvases(ctx context.Context, storyID string) ([]aggregates.CanvasID, error) {
	return m.repo.ListByStory(ctx, storyID)
}

func (m *Manager) forestForLocked(storyID string) *aggregates.Forest {
	forest, ok := m.forests[storyID]
	if !ok {
		forest = aggregates.NewForest()
		m.forests[storyID] = forest
	}
	return forest
}

func emptySnapshot(storyID string, canvasID aggregates.CanvasID) *ports.GraphSnapshot {
	return &ports.GraphSnapshot{
		StoryID:     storyID,
		CanvasID:    canvasID,
		Nodes:       []entities.Node{},
		Connections: []entities.Connection{},
		Version:     1,
		UpdatedAt:   utils.NowMillis(),
	}
}
