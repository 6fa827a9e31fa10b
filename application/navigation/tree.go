package navigation

import (
	"sync"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/valueobjects"
	pkgerrors "storycanvas/pkg/errors"
)

// Crumb is one breadcrumb entry: the canvas it leads to and the folder
// node that was entered to get there
type Crumb struct {
	CanvasID aggregates.CanvasID `json:"canvasId"`
	FolderID valueobjects.NodeID `json:"folderId"`
	Title    string              `json:"title"`
}

// Tree tracks which canvas of a story is active and the breadcrumb trail
// back to the root. The root canvas is always the implicit first entry;
// it never appears in the trail itself.
type Tree struct {
	mu     sync.Mutex
	active aggregates.CanvasID
	trail  []Crumb
}

// NewTree creates a navigation tree positioned at the root canvas
func NewTree() *Tree {
	return &Tree{active: aggregates.RootCanvasID}
}

// Active returns the currently active canvas
func (t *Tree) Active() aggregates.CanvasID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Breadcrumb returns a copy of the trail from the root to the active
// canvas, excluding the root
func (t *Tree) Breadcrumb() []Crumb {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Crumb, len(t.trail))
	copy(out, t.trail)
	return out
}

// NavigateInto descends into the canvas linked by a folder node.
// Entering the already active canvas is a no-op, and a canvas already on
// the trail is activated without pushing a second crumb; only a canvas
// new to the path grows the trail.
func (t *Tree) NavigateInto(canvasID aggregates.CanvasID, folderID valueobjects.NodeID, title string) error {
	if canvasID == "" {
		return pkgerrors.NewValidationError("canvas id cannot be empty")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if canvasID == t.active {
		return nil
	}
	for _, crumb := range t.trail {
		if crumb.CanvasID == canvasID {
			t.active = canvasID
			return nil
		}
	}
	t.trail = append(t.trail, Crumb{CanvasID: canvasID, FolderID: folderID, Title: title})
	t.active = canvasID
	return nil
}

// NavigateToBreadcrumb jumps to an entry in the trail. Index -1 returns
// to the root and clears the trail; the last index is the current canvas
// and is a no-op; anything in between truncates the trail below it.
// Out-of-range indices are rejected.
func (t *Tree) NavigateToBreadcrumb(index int) (aggregates.CanvasID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < -1 || index >= len(t.trail) {
		return "", pkgerrors.NewValidationError("breadcrumb index out of range")
	}
	if index == -1 {
		t.trail = t.trail[:0]
		t.active = aggregates.RootCanvasID
		return t.active, nil
	}
	if index == len(t.trail)-1 {
		return t.active, nil
	}
	t.trail = t.trail[:index+1]
	t.active = t.trail[index].CanvasID
	return t.active, nil
}

// Reset returns to the root canvas, clearing the trail
func (t *Tree) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trail = t.trail[:0]
	t.active = aggregates.RootCanvasID
}

// Depth returns how many folders deep the active canvas is
func (t *Tree) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.trail)
}
