package aggregates

import (
	"sync"

	pkgerrors "storycanvas/pkg/errors"
)

// Forest tracks every node and connection id across all canvases of one
// story. Node ids must be unique across the whole forest, not just within
// a canvas, because templates clone the same placeholders into many
// canvases; the forest is the single registry that enforces this.
type Forest struct {
	mu     sync.Mutex
	owners map[string]CanvasID
}

// NewForest creates an empty forest id registry
func NewForest() *Forest {
	return &Forest{owners: make(map[string]CanvasID)}
}

// Claim registers an id for the owning canvas. Fails with a duplicate id
// error when the id is already registered anywhere in the forest.
func (f *Forest) Claim(id string, owner CanvasID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.owners[id]; exists {
		return pkgerrors.NewDuplicateIDError(id)
	}
	f.owners[id] = owner
	return nil
}

// Release removes an id from the registry
func (f *Forest) Release(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.owners, id)
}

// Has reports whether the id is registered anywhere in the forest
func (f *Forest) Has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, exists := f.owners[id]
	return exists
}

// ReplaceCanvas atomically swaps the id set owned by one canvas. Used
// when a remote snapshot overwrites a canvas wholesale: the incoming ids
// win unconditionally for that canvas, matching last-writer-wins.
func (f *Forest) ReplaceCanvas(owner CanvasID, ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, o := range f.owners {
		if o == owner {
			delete(f.owners, id)
		}
	}
	for _, id := range ids {
		f.owners[id] = owner
	}
}

// ReleaseCanvas drops every id owned by the canvas
func (f *Forest) ReleaseCanvas(owner CanvasID) {
	f.ReplaceCanvas(owner, nil)
}
