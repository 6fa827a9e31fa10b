package entities

import (
	"encoding/json"

	"storycanvas/domain/core/valueobjects"
	pkgerrors "storycanvas/pkg/errors"
)

// NodeKind enumerates the kinds of content a node can carry. The kind
// decides which payload type is meaningful and how the node renders.
type NodeKind string

const (
	KindText      NodeKind = "text"
	KindCharacter NodeKind = "character"
	KindEvent     NodeKind = "event"
	KindLocation  NodeKind = "location"
	KindFolder    NodeKind = "folder"
	KindImage     NodeKind = "image"
	KindList      NodeKind = "list"
	KindTable     NodeKind = "table"
)

// Kinds lists every valid node kind
func Kinds() []NodeKind {
	return []NodeKind{
		KindText, KindCharacter, KindEvent, KindLocation,
		KindFolder, KindImage, KindList, KindTable,
	}
}

// IsValid reports whether the kind is one of the known kinds
func (k NodeKind) IsValid() bool {
	switch k {
	case KindText, KindCharacter, KindEvent, KindLocation,
		KindFolder, KindImage, KindList, KindTable:
		return true
	}
	return false
}

// Node is a positioned, typed unit of content on a canvas.
//
// The engine validates structural fields only; Content is carried opaquely
// on live graphs and decoded into a typed payload where the schema matters
// (template load, see DecodePayload).
type Node struct {
	ID     valueobjects.NodeID `json:"id"`
	Kind   NodeKind            `json:"kind"`
	X      float64             `json:"x"`
	Y      float64             `json:"y"`
	Width  float64             `json:"width"`
	Height float64             `json:"height"`
	Title  string              `json:"title,omitempty"`

	// Content is the kind-specific payload. Schema-free by design at the
	// store boundary; validated at template-load time.
	Content json.RawMessage `json:"content,omitempty"`

	// ParentID is a weak back-reference to an owning list/container node
	// in the same canvas. Not ownership.
	ParentID valueobjects.NodeID `json:"parentId,omitempty"`

	// ChildIDs is the ordered display-containment sequence of a
	// list/container node.
	ChildIDs []valueobjects.NodeID `json:"childIds,omitempty"`

	// LinkedCanvasID makes a folder node a door into a child canvas.
	// At most one canvas with that identity may exist in the forest.
	LinkedCanvasID string `json:"linkedCanvasId,omitempty"`
}

// ValidateStructure checks the structural fields the engine owns. Domain
// content is deliberately not inspected here.
func (n *Node) ValidateStructure() error {
	if n.ID.IsZero() {
		return pkgerrors.NewValidationError("node id cannot be empty")
	}
	if !n.Kind.IsValid() {
		return pkgerrors.NewValidationError("unknown node kind: " + string(n.Kind))
	}
	if n.Width < 0 || n.Height < 0 {
		return pkgerrors.NewValidationError("node dimensions cannot be negative")
	}
	if n.LinkedCanvasID != "" && n.Kind != KindFolder {
		return pkgerrors.NewValidationError("only folder nodes may link a canvas")
	}
	return nil
}

// Bounds returns the node's axis-aligned bounding box
func (n *Node) Bounds() valueobjects.Rect {
	return valueobjects.Rect{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}
}

// IsFolder reports whether the node is a navigational door into a child canvas
func (n *Node) IsFolder() bool {
	return n.Kind == KindFolder
}

// IsContainer reports whether the node may own children by display containment
func (n *Node) IsContainer() bool {
	return n.Kind == KindList
}

// HasChild reports whether id appears in the node's ChildIDs
func (n *Node) HasChild(id valueobjects.NodeID) bool {
	for _, c := range n.ChildIDs {
		if c.Equals(id) {
			return true
		}
	}
	return false
}

// RemoveChild drops id from ChildIDs, preserving order of the rest
func (n *Node) RemoveChild(id valueobjects.NodeID) {
	kept := n.ChildIDs[:0]
	for _, c := range n.ChildIDs {
		if !c.Equals(id) {
			kept = append(kept, c)
		}
	}
	n.ChildIDs = kept
}

// Clone returns a deep copy of the node
func (n *Node) Clone() Node {
	out := *n
	if n.ChildIDs != nil {
		out.ChildIDs = make([]valueobjects.NodeID, len(n.ChildIDs))
		copy(out.ChildIDs, n.ChildIDs)
	}
	if n.Content != nil {
		out.Content = make(json.RawMessage, len(n.Content))
		copy(out.Content, n.Content)
	}
	return out
}

// NodePatch is a partial update applied by the store's update operation.
// Nil fields are left untouched.
type NodePatch struct {
	X              *float64              `json:"x,omitempty"`
	Y              *float64              `json:"y,omitempty"`
	Width          *float64              `json:"width,omitempty"`
	Height         *float64              `json:"height,omitempty"`
	Title          *string               `json:"title,omitempty"`
	Content        json.RawMessage       `json:"content,omitempty"`
	ParentID       *valueobjects.NodeID  `json:"parentId,omitempty"`
	ChildIDs       []valueobjects.NodeID `json:"childIds,omitempty"`
	LinkedCanvasID *string               `json:"linkedCanvasId,omitempty"`
}

// Apply merges the patch into the node
func (p NodePatch) Apply(n *Node) {
	if p.X != nil {
		n.X = *p.X
	}
	if p.Y != nil {
		n.Y = *p.Y
	}
	if p.Width != nil {
		n.Width = *p.Width
	}
	if p.Height != nil {
		n.Height = *p.Height
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = p.Content
	}
	if p.ParentID != nil {
		n.ParentID = *p.ParentID
	}
	if p.ChildIDs != nil {
		n.ChildIDs = p.ChildIDs
	}
	if p.LinkedCanvasID != nil {
		n.LinkedCanvasID = *p.LinkedCanvasID
	}
}
