package ports

import (
	"context"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/palette"
)

// GraphSnapshot is the persisted form of one canvas: the full node and
// connection sets plus the canvas-scoped palette, if any
type GraphSnapshot struct {
	StoryID     string                `json:"storyId"`
	CanvasID    aggregates.CanvasID   `json:"canvasId"`
	Nodes       []entities.Node       `json:"nodes"`
	Connections []entities.Connection `json:"connections"`
	Palette     *palette.Palette      `json:"palette,omitempty"`
	Version     int64                 `json:"version"`
	UpdatedAt   int64                 `json:"updatedAt"`
}

// CanvasRepository defines the interface for canvas persistence.
// Snapshots are written whole; there is no per-node update path.
type CanvasRepository interface {
	// Load retrieves the snapshot for one canvas. Returns a not-found
	// error when the canvas has never been saved.
	Load(ctx context.Context, storyID string, canvasID aggregates.CanvasID) (*GraphSnapshot, error)

	// Save persists a snapshot, replacing any previous version
	Save(ctx context.Context, snapshot *GraphSnapshot) error

	// Delete removes a canvas snapshot
	Delete(ctx context.Context, storyID string, canvasID aggregates.CanvasID) error

	// ListByStory returns every canvas id saved under a story
	ListByStory(ctx context.Context, storyID string) ([]aggregates.CanvasID, error)
}
