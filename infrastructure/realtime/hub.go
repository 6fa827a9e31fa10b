package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"storycanvas/application/ports"
)

// Envelope is the wire frame exchanged with websocket clients and
// relayed across instances. Event routes the payload; presence frames
// and canvas frames share the same pipe.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Reserved envelope events for presence bookkeeping
const (
	eventPresenceTrack = "presence.track"
	eventPresenceSync  = "presence.sync"
)

type roomKey struct {
	storyID  string
	canvasID string
}

// room is the fanout domain for one canvas. Everything addressed to the
// room reaches its local subscribers, its websocket clients, and, when a
// bridge is attached, the same room on other instances. Handlers are
// keyed by registration id so closing a channel removes exactly the
// handlers it registered.
type room struct {
	key roomKey

	mu                sync.Mutex
	nextHandlerID     int
	clients           map[*Client]bool
	roster            map[string]ports.PresenceState
	presenceHandlers  map[int]func([]ports.PresenceState)
	broadcastHandlers map[string]map[int]func([]byte)
}

func newRoom(key roomKey) *room {
	return &room{
		key:               key,
		clients:           make(map[*Client]bool),
		roster:            make(map[string]ports.PresenceState),
		presenceHandlers:  make(map[int]func([]ports.PresenceState)),
		broadcastHandlers: make(map[string]map[int]func([]byte)),
	}
}

// emptyLocked reports whether nothing local consumes the room anymore
func (r *room) emptyLocked() bool {
	if len(r.clients) > 0 || len(r.presenceHandlers) > 0 {
		return false
	}
	for _, handlers := range r.broadcastHandlers {
		if len(handlers) > 0 {
			return false
		}
	}
	return true
}

// Hub owns all canvas rooms on this instance and hands out the realtime
// channels the sync engine runs on. It implements ports.ChannelFactory.
type Hub struct {
	mu     sync.Mutex
	rooms  map[roomKey]*room
	bridge Bridge
	logger *zap.Logger
}

// Bridge relays room traffic to other instances. Publish must not echo
// back to the publishing instance.
type Bridge interface {
	Publish(ctx context.Context, storyID, canvasID string, env Envelope) error
}

// NewHub creates a hub with no rooms
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[roomKey]*room),
		logger: logger,
	}
}

// SetBridge attaches a cross-instance relay. Must be called before any
// room sees traffic.
func (h *Hub) SetBridge(b Bridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// Presence returns the presence channel for a canvas room
func (h *Hub) Presence(storyID, canvasID string) (ports.PresenceChannel, error) {
	return &presenceChannel{hub: h, room: h.roomFor(storyID, canvasID)}, nil
}

// Broadcast returns the broadcast channel for a canvas room
func (h *Hub) Broadcast(storyID, canvasID string) (ports.BroadcastChannel, error) {
	return &broadcastChannel{hub: h, room: h.roomFor(storyID, canvasID)}, nil
}

func (h *Hub) roomFor(storyID, canvasID string) *room {
	key := roomKey{storyID: storyID, canvasID: canvasID}
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[key]
	if !ok {
		r = newRoom(key)
		h.rooms[key] = r
		h.logger.Debug("room created",
			zap.String("story_id", storyID),
			zap.String("canvas_id", canvasID),
		)
	}
	return r
}

// register attaches a websocket client to its room
func (h *Hub) register(c *Client) {
	r := h.roomFor(c.storyID, c.canvasID)
	r.mu.Lock()
	r.clients[c] = true
	r.mu.Unlock()
	c.room = r
}

// unregister detaches a client and drops its presence entry
func (h *Hub) unregister(c *Client) {
	r := c.room
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.clients, c)
	_, present := r.roster[c.userID]
	if present {
		delete(r.roster, c.userID)
	}
	r.mu.Unlock()
	if present {
		h.syncPresence(r)
	}
	h.maybeDropRoom(r)
}

// maybeDropRoom deletes a room nobody local listens to, so open/close
// cycles of a canvas do not accumulate rooms forever
func (h *Hub) maybeDropRoom(r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.Lock()
	empty := r.emptyLocked()
	r.mu.Unlock()
	if empty {
		delete(h.rooms, r.key)
	}
}

// dispatch routes a frame arriving from a websocket client or from the
// bridge. fromBridge frames are not re-published to the bridge.
func (h *Hub) dispatch(r *room, env Envelope, fromBridge bool) {
	if env.Event == eventPresenceTrack {
		var state ports.PresenceState
		if err := json.Unmarshal(env.Payload, &state); err != nil {
			h.logger.Warn("discarding malformed presence frame", zap.Error(err))
			return
		}
		h.track(r, state, fromBridge)
		return
	}
	h.publish(r, env, fromBridge)
}

// track records one participant and fans the updated roster out
func (h *Hub) track(r *room, state ports.PresenceState, fromBridge bool) {
	r.mu.Lock()
	r.roster[state.UserID] = state
	r.mu.Unlock()
	h.syncPresence(r)
	if !fromBridge {
		h.relay(r, Envelope{Event: eventPresenceTrack, Payload: mustMarshal(state)})
	}
}

// syncPresence pushes the full roster to subscribers and clients
func (h *Hub) syncPresence(r *room) {
	r.mu.Lock()
	roster := make([]ports.PresenceState, 0, len(r.roster))
	for _, st := range r.roster {
		roster = append(roster, st)
	}
	handlers := make([]func([]ports.PresenceState), 0, len(r.presenceHandlers))
	for _, handler := range r.presenceHandlers {
		handlers = append(handlers, handler)
	}
	clients := r.clientsLocked()
	r.mu.Unlock()

	for _, handler := range handlers {
		handler(roster)
	}
	frame := Envelope{Event: eventPresenceSync, Payload: mustMarshal(roster)}
	for _, c := range clients {
		c.send(frame)
	}
}

// publish delivers a payload to every subscriber and client of the room
func (h *Hub) publish(r *room, env Envelope, fromBridge bool) {
	r.mu.Lock()
	handlers := make([]func([]byte), 0, len(r.broadcastHandlers[env.Event]))
	for _, handler := range r.broadcastHandlers[env.Event] {
		handlers = append(handlers, handler)
	}
	clients := r.clientsLocked()
	r.mu.Unlock()

	for _, handler := range handlers {
		handler(env.Payload)
	}
	for _, c := range clients {
		c.send(env)
	}
	if !fromBridge {
		h.relay(r, env)
	}
}

func (h *Hub) relay(r *room, env Envelope) {
	h.mu.Lock()
	bridge := h.bridge
	h.mu.Unlock()
	if bridge == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), bridgePublishTimeout)
	defer cancel()
	if err := bridge.Publish(ctx, r.key.storyID, r.key.canvasID, env); err != nil {
		h.logger.Warn("bridge publish failed",
			zap.String("canvas_id", r.key.canvasID),
			zap.Error(err),
		)
	}
}

// DispatchRemote injects a frame received from another instance
func (h *Hub) DispatchRemote(storyID, canvasID string, env Envelope) {
	h.dispatch(h.roomFor(storyID, canvasID), env, true)
}

func (r *room) clientsLocked() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c)
	}
	return out
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// presenceChannel adapts a room to ports.PresenceChannel
type presenceChannel struct {
	hub  *Hub
	room *room

	mu  sync.Mutex
	ids []int
}

func (p *presenceChannel) Track(ctx context.Context, state ports.PresenceState) error {
	p.hub.track(p.room, state, false)
	return nil
}

func (p *presenceChannel) OnSync(handler func(states []ports.PresenceState)) {
	p.room.mu.Lock()
	id := p.room.nextHandlerID
	p.room.nextHandlerID++
	p.room.presenceHandlers[id] = handler
	p.room.mu.Unlock()

	p.mu.Lock()
	p.ids = append(p.ids, id)
	p.mu.Unlock()
}

// Close removes every handler this channel registered. A closed
// channel's subscriber receives no further roster syncs.
func (p *presenceChannel) Close() error {
	p.mu.Lock()
	ids := p.ids
	p.ids = nil
	p.mu.Unlock()

	p.room.mu.Lock()
	for _, id := range ids {
		delete(p.room.presenceHandlers, id)
	}
	p.room.mu.Unlock()
	p.hub.maybeDropRoom(p.room)
	return nil
}

type broadcastReg struct {
	event string
	id    int
}

// broadcastChannel adapts a room to ports.BroadcastChannel
type broadcastChannel struct {
	hub  *Hub
	room *room

	mu   sync.Mutex
	regs []broadcastReg
}

func (b *broadcastChannel) Send(ctx context.Context, event string, payload []byte) error {
	b.hub.publish(b.room, Envelope{Event: event, Payload: payload}, false)
	return nil
}

func (b *broadcastChannel) On(event string, handler func(payload []byte)) {
	b.room.mu.Lock()
	id := b.room.nextHandlerID
	b.room.nextHandlerID++
	if b.room.broadcastHandlers[event] == nil {
		b.room.broadcastHandlers[event] = make(map[int]func([]byte))
	}
	b.room.broadcastHandlers[event][id] = handler
	b.room.mu.Unlock()

	b.mu.Lock()
	b.regs = append(b.regs, broadcastReg{event: event, id: id})
	b.mu.Unlock()
}

// Close removes every handler this channel registered
func (b *broadcastChannel) Close() error {
	b.mu.Lock()
	regs := b.regs
	b.regs = nil
	b.mu.Unlock()

	b.room.mu.Lock()
	for _, reg := range regs {
		delete(b.room.broadcastHandlers[reg.event], reg.id)
	}
	b.room.mu.Unlock()
	b.hub.maybeDropRoom(b.room)
	return nil
}
