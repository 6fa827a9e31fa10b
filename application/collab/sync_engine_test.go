package collab

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycanvas/application/ports"
	"storycanvas/application/session"
	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	"storycanvas/domain/events"
	"storycanvas/domain/templates"
	"storycanvas/infrastructure/persistence/memory"
)

// fakeRoom is an in-process ports.ChannelFactory: every channel it hands
// out shares one roster and one broadcast bus, delivered synchronously.
type fakeRoom struct {
	mu       sync.Mutex
	roster   map[string]ports.PresenceState
	syncFns  []func([]ports.PresenceState)
	eventFns map[string][]func([]byte)
	sends    int
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{
		roster:   make(map[string]ports.PresenceState),
		eventFns: make(map[string][]func([]byte)),
	}
}

func (r *fakeRoom) Presence(storyID, canvasID string) (ports.PresenceChannel, error) {
	return &fakePresence{room: r}, nil
}

func (r *fakeRoom) Broadcast(storyID, canvasID string) (ports.BroadcastChannel, error) {
	return &fakeBroadcast{room: r}, nil
}

func (r *fakeRoom) sendCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sends
}

func (r *fakeRoom) stateOf(userID string) (ports.PresenceState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.roster[userID]
	return st, ok
}

func (r *fakeRoom) track(state ports.PresenceState) {
	r.mu.Lock()
	r.roster[state.UserID] = state
	states := make([]ports.PresenceState, 0, len(r.roster))
	for _, st := range r.roster {
		states = append(states, st)
	}
	handlers := make([]func([]ports.PresenceState), len(r.syncFns))
	copy(handlers, r.syncFns)
	r.mu.Unlock()

	for _, h := range handlers {
		h(states)
	}
}

func (r *fakeRoom) publish(event string, payload []byte) {
	r.mu.Lock()
	r.sends++
	handlers := make([]func([]byte), len(r.eventFns[event]))
	copy(handlers, r.eventFns[event])
	r.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

type fakePresence struct{ room *fakeRoom }

func (p *fakePresence) Track(ctx context.Context, state ports.PresenceState) error {
	p.room.track(state)
	return nil
}

func (p *fakePresence) OnSync(handler func([]ports.PresenceState)) {
	p.room.mu.Lock()
	p.room.syncFns = append(p.room.syncFns, handler)
	p.room.mu.Unlock()
}

func (p *fakePresence) Close() error { return nil }

type fakeBroadcast struct{ room *fakeRoom }

func (b *fakeBroadcast) Send(ctx context.Context, event string, payload []byte) error {
	b.room.publish(event, payload)
	return nil
}

func (b *fakeBroadcast) On(event string, handler func([]byte)) {
	b.room.mu.Lock()
	b.room.eventFns[event] = append(b.room.eventFns[event], handler)
	b.room.mu.Unlock()
}

func (b *fakeBroadcast) Close() error { return nil }

func openTestSession(t *testing.T) *session.CanvasSession {
	t.Helper()
	mgr := session.NewManager(memory.NewCanvasRepository(), templates.NewRegistry(), nil, nil, time.Hour, nil)
	sess, err := mgr.Open(context.Background(), "story-1", aggregates.RootCanvasID, "")
	require.NoError(t, err)
	return sess
}

func startEngine(t *testing.T, room *fakeRoom, sess *session.CanvasSession, userID string) *SyncEngine {
	t.Helper()
	engine, err := NewSyncEngine(sess, room, Config{UserID: userID, UserName: userID}, nil)
	require.NoError(t, err)
	require.NoError(t, engine.Start(context.Background()))
	t.Cleanup(func() { engine.Stop() })
	return engine
}

func testNode(id string) entities.Node {
	return entities.Node{
		ID: valueobjects.MustNodeID(id), Kind: entities.KindText,
		Width: 100, Height: 50,
	}
}

func TestEngineStaysDormantWhenAlone(t *testing.T) {
	room := newFakeRoom()
	sess := openTestSession(t)
	engine := startEngine(t, room, sess, "u1")

	assert.False(t, engine.Active())
	assert.Empty(t, engine.Peers())

	require.NoError(t, sess.AddNode(context.Background(), testNode("solo-idea"), "u1"))
	assert.Zero(t, room.sendCount(), "solo edits are never broadcast")
}

func TestEngineActivatesAtTwoParticipants(t *testing.T) {
	room := newFakeRoom()
	engineA := startEngine(t, room, openTestSession(t), "u1")

	assert.False(t, engineA.Active())

	engineB := startEngine(t, room, openTestSession(t), "u2")

	assert.True(t, engineA.Active(), "the first joiner sees the second via presence sync")
	assert.True(t, engineB.Active())
	assert.Equal(t, []string{"u2"}, engineA.Peers())
}

func TestLocalEditReachesTheOtherSession(t *testing.T) {
	room := newFakeRoom()
	sessA := openTestSession(t)
	sessB := openTestSession(t)
	startEngine(t, room, sessA, "u1")
	startEngine(t, room, sessB, "u2")

	require.NoError(t, sessA.AddNode(context.Background(), testNode("twist"), "u1"))

	snap := sessB.Snapshot()
	require.Len(t, snap.Nodes, 1, "the full snapshot replaced the receiving graph")
	assert.Equal(t, "twist", snap.Nodes[0].ID.String())
}

func TestOwnBroadcastIsNotReapplied(t *testing.T) {
	room := newFakeRoom()
	sessA := openTestSession(t)
	sessB := openTestSession(t)
	startEngine(t, room, sessA, "u1")
	startEngine(t, room, sessB, "u2")

	var remoteOnA []events.CanvasChanged
	sessA.Subscribe(func(e events.CanvasChanged) {
		if e.Remote {
			remoteOnA = append(remoteOnA, e)
		}
	})

	require.NoError(t, sessA.AddNode(context.Background(), testNode("twist"), "u1"))
	assert.Empty(t, remoteOnA, "the echo of u1's own broadcast is suppressed by origin id")

	require.NoError(t, sessB.AddNode(context.Background(), testNode("counter-twist"), "u2"))
	require.Len(t, remoteOnA, 1, "peers' snapshots still come through")
}

func TestAppliedSnapshotIsNotRebroadcast(t *testing.T) {
	room := newFakeRoom()
	sessA := openTestSession(t)
	sessB := openTestSession(t)
	startEngine(t, room, sessA, "u1")
	startEngine(t, room, sessB, "u2")

	require.NoError(t, sessA.AddNode(context.Background(), testNode("twist"), "u1"))

	// One send from u1's edit; applying it at u2 emits a remote-flagged
	// event that must not loop back onto the wire.
	assert.Equal(t, 1, room.sendCount())
}

func TestLastWriterWins(t *testing.T) {
	room := newFakeRoom()
	sessA := openTestSession(t)
	sessB := openTestSession(t)
	startEngine(t, room, sessA, "u1")
	startEngine(t, room, sessB, "u2")

	require.NoError(t, sessA.AddNode(context.Background(), testNode("version-a"), "u1"))
	require.NoError(t, sessB.AddNode(context.Background(), testNode("version-b"), "u2"))

	// B received A's snapshot before adding its own node, so B's final
	// graph holds both; that whole graph then replaced A's.
	snapA := sessA.Snapshot()
	snapB := sessB.Snapshot()
	require.Len(t, snapB.Nodes, 2)
	require.Len(t, snapA.Nodes, 2, "the later writer's whole graph wins everywhere")
}

func TestAnnounceCarriesPresenceMetadata(t *testing.T) {
	room := newFakeRoom()
	engine := startEngine(t, room, openTestSession(t), "u1")

	st, ok := room.stateOf("u1")
	require.True(t, ok)
	assert.Positive(t, st.LastSeen)
	assert.Positive(t, st.JoinedAt)
	assert.NotEmpty(t, st.Color)
	assert.Nil(t, st.Cursor, "no cursor until one is reported")

	require.NoError(t, engine.UpdateCursor(context.Background(), ports.Point{X: 120, Y: -40}))

	st, ok = room.stateOf("u1")
	require.True(t, ok)
	require.NotNil(t, st.Cursor)
	assert.Equal(t, 120.0, st.Cursor.X)
	assert.Equal(t, -40.0, st.Cursor.Y)
}

func TestColorForIsStable(t *testing.T) {
	assert.Equal(t, ColorFor("u1"), ColorFor("u1"))
	assert.Contains(t, presenceColors, ColorFor("anyone"))
}
