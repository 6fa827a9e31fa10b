package collab

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"storycanvas/application/ports"
	"storycanvas/application/session"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/events"
	pkgerrors "storycanvas/pkg/errors"
	"storycanvas/pkg/utils"
)

// DefaultAnnounceInterval is how often presence is re-announced
const DefaultAnnounceInterval = 15 * time.Second

// A peer silent for this many announce intervals is considered gone
const staleIntervals = 3

// snapshotEvent names the broadcast channel event carrying graph state
const snapshotEvent = "canvas.snapshot"

// Cursor colors assigned to participants, picked by user id hash
var presenceColors = []string{
	"#e45858", "#3a86c8", "#53a548", "#c8963a", "#8c5fc8", "#c85fa0",
}

// Config identifies the local participant
type Config struct {
	UserID           string
	UserName         string
	AnnounceInterval time.Duration
}

// snapshotMessage is the wire form of a whole-canvas broadcast
type snapshotMessage struct {
	StoryID      string                `json:"storyId"`
	CanvasID     string                `json:"canvasId"`
	OriginUserID string                `json:"originUserId"`
	SentAt       int64                 `json:"sentAt"`
	Nodes        []entities.Node       `json:"nodes"`
	Connections  []entities.Connection `json:"connections"`
}

// SyncEngine keeps one open canvas in step with other editors. It stays
// dormant while the local user is alone: nothing is broadcast and no
// remote state is applied until presence reports a second participant.
// Conflict resolution is last-writer-wins at whole-snapshot granularity;
// every local mutation ships the full post-mutation graph, and every
// accepted remote snapshot replaces the local graph outright.
type SyncEngine struct {
	sess      *session.CanvasSession
	presence  ports.PresenceChannel
	broadcast ports.BroadcastChannel
	cfg       Config
	logger    *zap.Logger
	joinedAt  int64

	mu       sync.Mutex
	active   bool
	cursor   *ports.Point
	lastSeen map[string]time.Time
	started  bool
	done     chan struct{}
}

// NewSyncEngine wires a sync engine to a canvas session through the
// realtime channels of the canvas's room
func NewSyncEngine(sess *session.CanvasSession, factory ports.ChannelFactory, cfg Config, logger *zap.Logger) (*SyncEngine, error) {
	if sess == nil {
		return nil, pkgerrors.NewValidationError("session cannot be nil")
	}
	if cfg.UserID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = DefaultAnnounceInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	storyID := sess.StoryID()
	canvasID := sess.CanvasID().String()

	presence, err := factory.Presence(storyID, canvasID)
	if err != nil {
		return nil, err
	}
	broadcast, err := factory.Broadcast(storyID, canvasID)
	if err != nil {
		presence.Close()
		return nil, err
	}

	e := &SyncEngine{
		sess:      sess,
		presence:  presence,
		broadcast: broadcast,
		cfg:       cfg,
		logger:    logger,
		joinedAt:  utils.NowMillis(),
		lastSeen:  make(map[string]time.Time),
		done:      make(chan struct{}),
	}

	presence.OnSync(e.onPresenceSync)
	broadcast.On(snapshotEvent, e.onRemoteSnapshot)
	sess.Subscribe(e.onLocalChange)
	return e, nil
}

// Start announces the local user and begins the heartbeat loop
func (e *SyncEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = true
	e.mu.Unlock()

	if err := e.announce(ctx); err != nil {
		return err
	}
	go e.heartbeatLoop()
	return nil
}

// Stop closes the realtime channels and halts the heartbeat
func (e *SyncEngine) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	close(e.done)
	e.mu.Unlock()

	perr := e.presence.Close()
	berr := e.broadcast.Close()
	if perr != nil {
		return perr
	}
	return berr
}

// Active reports whether the engine is broadcasting and applying changes
func (e *SyncEngine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Peers returns the ids of the other participants currently seen
func (e *SyncEngine) Peers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.lastSeen))
	for id := range e.lastSeen {
		if id != e.cfg.UserID {
			out = append(out, id)
		}
	}
	return out
}

// UpdateCursor records the local cursor position and re-announces, so
// peers see it on the next presence sync
func (e *SyncEngine) UpdateCursor(ctx context.Context, p ports.Point) error {
	e.mu.Lock()
	e.cursor = &p
	e.mu.Unlock()
	return e.announce(ctx)
}

func (e *SyncEngine) announce(ctx context.Context) error {
	e.mu.Lock()
	cursor := e.cursor
	e.mu.Unlock()
	return e.presence.Track(ctx, ports.PresenceState{
		UserID:   e.cfg.UserID,
		Name:     e.cfg.UserName,
		Color:    ColorFor(e.cfg.UserID),
		Cursor:   cursor,
		LastSeen: utils.NowMillis(),
		JoinedAt: e.joinedAt,
	})
}

func (e *SyncEngine) heartbeatLoop() {
	ticker := time.NewTicker(e.cfg.AnnounceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.AnnounceInterval)
			if err := e.announce(ctx); err != nil {
				e.logger.Warn("presence announce failed", zap.Error(err))
			}
			cancel()
			e.evictStale()
		}
	}
}

// onPresenceSync refreshes the roster and flips the engine between
// dormant and active as the participant count crosses two
func (e *SyncEngine) onPresenceSync(states []ports.PresenceState) {
	now := time.Now()
	e.mu.Lock()
	for _, st := range states {
		e.lastSeen[st.UserID] = now
	}
	e.recomputeActiveLocked()
	e.mu.Unlock()
}

// evictStale drops peers that stopped announcing without leaving, such
// as a closed laptop. Staleness is measured against the announce
// interval rather than wall-clock absolutes.
func (e *SyncEngine) evictStale() {
	cutoff := time.Now().Add(-time.Duration(staleIntervals) * e.cfg.AnnounceInterval)
	e.mu.Lock()
	for id, seen := range e.lastSeen {
		if id == e.cfg.UserID {
			continue
		}
		if seen.Before(cutoff) {
			delete(e.lastSeen, id)
			e.logger.Info("evicted stale peer", zap.String("user_id", id))
		}
	}
	e.recomputeActiveLocked()
	e.mu.Unlock()
}

func (e *SyncEngine) recomputeActiveLocked() {
	count := len(e.lastSeen)
	if _, ok := e.lastSeen[e.cfg.UserID]; !ok {
		count++
	}
	wasActive := e.active
	e.active = count >= 2
	if e.active != wasActive {
		if e.active {
			e.logger.Info("sync activated", zap.Int("participants", count))
		} else {
			e.logger.Info("sync dormant, editing solo")
		}
	}
}

// onLocalChange broadcasts the full snapshot carried by a local mutation
// event. Remote-flagged events are the result of applying someone else's
// snapshot and are never re-broadcast.
func (e *SyncEngine) onLocalChange(event events.CanvasChanged) {
	if event.Remote {
		return
	}
	e.mu.Lock()
	active := e.active
	e.mu.Unlock()
	if !active {
		return
	}

	payload, err := json.Marshal(snapshotMessage{
		StoryID:      event.StoryID,
		CanvasID:     event.CanvasID,
		OriginUserID: e.cfg.UserID,
		SentAt:       utils.NowMillis(),
		Nodes:        event.Nodes,
		Connections:  event.Connections,
	})
	if err != nil {
		e.logger.Error("snapshot marshal failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.broadcast.Send(ctx, snapshotEvent, payload); err != nil {
		e.logger.Warn("snapshot broadcast failed",
			zap.String("canvas_id", event.CanvasID),
			zap.Error(err),
		)
	}
}

// onRemoteSnapshot applies a snapshot received from the room. The local
// user's own broadcasts come back through the channel and are suppressed
// by origin id; applying them would wipe edits made since the send.
func (e *SyncEngine) onRemoteSnapshot(payload []byte) {
	var msg snapshotMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		e.logger.Warn("discarding malformed snapshot payload", zap.Error(err))
		return
	}
	if msg.OriginUserID == e.cfg.UserID {
		return
	}

	e.mu.Lock()
	e.lastSeen[msg.OriginUserID] = time.Now()
	e.recomputeActiveLocked()
	active := e.active
	e.mu.Unlock()
	if !active {
		return
	}

	e.sess.ApplyRemoteSnapshot(context.Background(), msg.Nodes, msg.Connections, msg.OriginUserID)
	e.logger.Debug("applied remote snapshot",
		zap.String("canvas_id", msg.CanvasID),
		zap.String("origin", msg.OriginUserID),
		zap.Int("nodes", len(msg.Nodes)),
	)
}

// ColorFor picks a stable cursor color for a user id
func ColorFor(userID string) string {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return presenceColors[int(h.Sum32())%len(presenceColors)]
}
