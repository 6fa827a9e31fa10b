package events

import (
	"time"

	"storycanvas/domain/core/entities"
)

// Change reasons carried on CanvasChanged events
const (
	ReasonNodeAdded         = "node_added"
	ReasonNodeUpdated       = "node_updated"
	ReasonNodeDeleted       = "node_deleted"
	ReasonConnectionAdded   = "connection_added"
	ReasonConnectionDeleted = "connection_deleted"
	ReasonRemoteSnapshot    = "remote_snapshot"
	ReasonInstantiated      = "instantiated"
)

// CanvasChanged is raised by every mutation of a canvas graph. It carries
// the full post-mutation snapshot: the sync engine broadcasts whole
// snapshots rather than diffs, and the culler recomputes from the same
// event, so one uniform shape serves both consumers.
type CanvasChanged struct {
	BaseEvent
	StoryID      string                `json:"story_id"`
	CanvasID     string                `json:"canvas_id"`
	Reason       string                `json:"reason"`
	OriginUserID string                `json:"origin_user_id,omitempty"`
	Remote       bool                  `json:"remote"`
	Nodes        []entities.Node       `json:"nodes"`
	Connections  []entities.Connection `json:"connections"`
}

// NewCanvasChanged creates a CanvasChanged event
func NewCanvasChanged(
	storyID, canvasID, reason, originUserID string,
	remote bool,
	nodes []entities.Node,
	connections []entities.Connection,
	timestamp time.Time,
) CanvasChanged {
	return CanvasChanged{
		BaseEvent: BaseEvent{
			AggregateID: canvasID,
			EventType:   "canvas.changed",
			Timestamp:   timestamp,
			Version:     1,
		},
		StoryID:      storyID,
		CanvasID:     canvasID,
		Reason:       reason,
		OriginUserID: originUserID,
		Remote:       remote,
		Nodes:        nodes,
		Connections:  connections,
	}
}
