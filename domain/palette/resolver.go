package palette

import "sync"

// Context names the navigation state a palette is resolved for
type Context struct {
	CanvasID   string
	StoryID    string
	Appearance Appearance
}

// Resolver determines the active color theme for a navigation context.
// Precedence runs most to least specific: a palette scoped to the current
// folder/canvas, then one scoped to the story, then the global default
// for the light/dark preference.
//
// Resolve is a pure lookup. Applying the palette to a rendering surface
// or notifying listeners is the caller's responsibility.
type Resolver struct {
	mu       sync.RWMutex
	folder   map[string]Palette
	project  map[string]Palette
	defaults map[Appearance]Palette
}

// NewResolver creates a resolver seeded with the engine's default themes
func NewResolver() *Resolver {
	return &Resolver{
		folder:  make(map[string]Palette),
		project: make(map[string]Palette),
		defaults: map[Appearance]Palette{
			AppearanceLight: Generate(HSL{H: 210, S: 0.35, L: 0.92}, 0),
			AppearanceDark:  Generate(HSL{H: 222, S: 0.30, L: 0.16}, 0),
		},
	}
}

// SetFolderPalette scopes a palette to one canvas
func (r *Resolver) SetFolderPalette(canvasID string, p Palette) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folder[canvasID] = p
}

// ClearFolderPalette removes a canvas-scoped palette
func (r *Resolver) ClearFolderPalette(canvasID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.folder, canvasID)
}

// SetProjectPalette scopes a palette to one story
func (r *Resolver) SetProjectPalette(storyID string, p Palette) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.project[storyID] = p
}

// SetDefault replaces the global default for an appearance
func (r *Resolver) SetDefault(a Appearance, p Palette) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults[a] = p
}

// Resolve returns the effective palette for the context
func (r *Resolver) Resolve(ctx Context) Palette {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.folder[ctx.CanvasID]; ok {
		return p
	}
	if p, ok := r.project[ctx.StoryID]; ok {
		return p
	}
	a := ctx.Appearance
	if a == "" {
		a = AppearanceLight
	}
	return r.defaults[a]
}
