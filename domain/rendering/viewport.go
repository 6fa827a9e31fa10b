package rendering

import (
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
)

// DefaultBuffer is the screen-space margin, in pixels, added around the
// visible area so nodes entering the view during a pan are already drawn
const DefaultBuffer = 300.0

// Viewport describes the visible window onto a canvas. Offsets are the
// canvas-space translation applied before scaling, so the world-space
// origin of the view sits at (-OffsetX, -OffsetY). Width and Height are
// screen pixels. Buffer is a screen-space margin in pixels: zero means
// no margin, a negative value selects DefaultBuffer.
type Viewport struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Scale   float64 `json:"scale"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Buffer  float64 `json:"buffer"`
}

// WorldRect returns the visible region in canvas coordinates, expanded
// by the buffer. Both the view extent and the buffer grow as the scale
// shrinks: a zoomed-out view covers more world space per pixel.
func (v Viewport) WorldRect() valueobjects.Rect {
	scale := v.Scale
	if scale <= 0 {
		scale = 1
	}
	buffer := v.Buffer
	if buffer < 0 {
		buffer = DefaultBuffer
	}
	visible := valueobjects.Rect{
		X:      -v.OffsetX,
		Y:      -v.OffsetY,
		Width:  v.Width / scale,
		Height: v.Height / scale,
	}
	return visible.Expand(buffer / scale)
}

// CullResult holds the subset of a canvas worth rendering for one frame
type CullResult struct {
	Nodes       []entities.Node
	Connections []entities.Connection
	Tier        DetailTier
}

// Cull selects the nodes whose bounds intersect the buffered viewport
// and the connections with both endpoints among them. A connection with
// only one visible endpoint is dropped; drawing half an edge reads as a
// rendering glitch. Nodes touching the buffered boundary are kept.
func Cull(nodes []entities.Node, connections []entities.Connection, v Viewport, interacting bool) CullResult {
	world := v.WorldRect()

	visible := make(map[valueobjects.NodeID]bool, len(nodes))
	kept := make([]entities.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Bounds().Intersects(world) {
			visible[n.ID] = true
			kept = append(kept, n)
		}
	}

	keptConns := make([]entities.Connection, 0, len(connections))
	for _, c := range connections {
		if visible[c.From] && visible[c.To] {
			keptConns = append(keptConns, c)
		}
	}

	return CullResult{
		Nodes:       kept,
		Connections: keptConns,
		Tier:        DetailFor(v.Scale, interacting),
	}
}
