package memory

import (
	"context"
	"sort"
	"sync"

	"storycanvas/application/ports"
	"storycanvas/domain/core/aggregates"
	pkgerrors "storycanvas/pkg/errors"
)

// CanvasRepository is an in-memory ports.CanvasRepository used in
// development mode and in tests, where a DynamoDB table is not available
type CanvasRepository struct {
	mu    sync.RWMutex
	items map[string]map[aggregates.CanvasID]*ports.GraphSnapshot
}

// NewCanvasRepository creates an empty in-memory repository
func NewCanvasRepository() *CanvasRepository {
	return &CanvasRepository{
		items: make(map[string]map[aggregates.CanvasID]*ports.GraphSnapshot),
	}
}

// Save stores a deep-enough copy of the snapshot
func (r *CanvasRepository) Save(ctx context.Context, snapshot *ports.GraphSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	story, ok := r.items[snapshot.StoryID]
	if !ok {
		story = make(map[aggregates.CanvasID]*ports.GraphSnapshot)
		r.items[snapshot.StoryID] = story
	}
	story[snapshot.CanvasID] = copySnapshot(snapshot)
	return nil
}

// Load retrieves the snapshot for one canvas
func (r *CanvasRepository) Load(ctx context.Context, storyID string, canvasID aggregates.CanvasID) (*ports.GraphSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if story, ok := r.items[storyID]; ok {
		if snap, ok := story[canvasID]; ok {
			return copySnapshot(snap), nil
		}
	}
	return nil, pkgerrors.NewNotFoundError("canvas " + canvasID.String())
}

// Delete removes a canvas snapshot
func (r *CanvasRepository) Delete(ctx context.Context, storyID string, canvasID aggregates.CanvasID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if story, ok := r.items[storyID]; ok {
		delete(story, canvasID)
	}
	return nil
}

// ListByStory returns every canvas id saved under a story, sorted
func (r *CanvasRepository) ListByStory(ctx context.Context, storyID string) ([]aggregates.CanvasID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	story := r.items[storyID]
	ids := make([]aggregates.CanvasID, 0, len(story))
	for id := range story {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func copySnapshot(in *ports.GraphSnapshot) *ports.GraphSnapshot {
	out := *in
	out.Nodes = append(in.Nodes[:0:0], in.Nodes...)
	out.Connections = append(in.Connections[:0:0], in.Connections...)
	if in.Palette != nil {
		pal := *in.Palette
		out.Palette = &pal
	}
	return &out
}
