package ports

import "context"

// Point is a cursor position in canvas coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PresenceState describes one participant on a shared canvas. Cursor is
// nil until the participant first reports a position; LastSeen is
// refreshed by every announce in unix milliseconds.
type PresenceState struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Cursor   *Point `json:"cursor,omitempty"`
	LastSeen int64  `json:"lastSeen"`
	JoinedAt int64  `json:"joinedAt"`
}

// PresenceChannel tracks which users are present on a canvas. Track
// announces the local user; OnSync fires whenever the membership set
// changes, with the full roster.
type PresenceChannel interface {
	Track(ctx context.Context, state PresenceState) error
	OnSync(handler func(states []PresenceState))
	Close() error
}

// BroadcastChannel carries canvas payloads between participants.
// Handlers registered with On receive every payload published to the
// channel, including ones sent by the local user; echo filtering is the
// subscriber's job.
type BroadcastChannel interface {
	Send(ctx context.Context, event string, payload []byte) error
	On(event string, handler func(payload []byte))
	Close() error
}

// ChannelFactory creates the realtime channels for one canvas room.
// Rooms are keyed by story and canvas so different canvases of the same
// story do not share traffic.
type ChannelFactory interface {
	Presence(storyID, canvasID string) (PresenceChannel, error)
	Broadcast(storyID, canvasID string) (BroadcastChannel, error)
}
