package templates

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	pkgerrors "storycanvas/pkg/errors"
)

// Graph is one instantiated node/connection set
type Graph struct {
	Nodes       []entities.Node
	Connections []entities.Connection
}

// Instantiation is the result of cloning a template: the graph for the
// canvas being opened plus the graphs of every sub-canvas (nested folders
// included, flattened), keyed by their freshly derived canvas identities
// for the caller to persist.
type Instantiation struct {
	Suffix string
	Graph
	SubCanvases map[aggregates.CanvasID]Graph
}

// NewSuffix generates an instantiation-scoped suffix: a ULID, which is a
// millisecond timestamp plus a random component, so suffixes are
// monotonic-enough and never collide across instantiations.
func NewSuffix() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// Instantiate clones a template into a live, collision-free graph
func Instantiate(tpl *Template) (*Instantiation, error) {
	return InstantiateWithSuffix(tpl, NewSuffix())
}

// InstantiateWithSuffix clones a template using a caller-supplied suffix.
// Every placeholder node and connection id in the template is remapped to
// placeholder-id + "-" + suffix; childIds, parentId and connection
// endpoints are rewritten through the same table. linkedCanvasId is
// remapped to a new canvas identity so instantiating the same template
// twice never aliases two folders onto the same child canvas.
func InstantiateWithSuffix(tpl *Template, suffix string) (*Instantiation, error) {
	if tpl == nil {
		return nil, pkgerrors.NewValidationError("template cannot be nil")
	}
	if suffix == "" {
		return nil, pkgerrors.NewValidationError("instantiation suffix cannot be empty")
	}

	result := &Instantiation{
		Suffix:      suffix,
		SubCanvases: make(map[aggregates.CanvasID]Graph),
	}

	result.Nodes = make([]entities.Node, 0, len(tpl.Nodes))
	for i := range tpl.Nodes {
		node := tpl.Nodes[i].Clone()
		node.ID = node.ID.WithSuffix(suffix)
		if !node.ParentID.IsZero() {
			node.ParentID = node.ParentID.WithSuffix(suffix)
		}
		for j := range node.ChildIDs {
			node.ChildIDs[j] = node.ChildIDs[j].WithSuffix(suffix)
		}
		if node.LinkedCanvasID != "" {
			node.LinkedCanvasID = node.LinkedCanvasID + "-" + suffix
		}
		result.Nodes = append(result.Nodes, node)
	}

	result.Connections = make([]entities.Connection, 0, len(tpl.Connections))
	for i := range tpl.Connections {
		conn := tpl.Connections[i]
		conn.ID = conn.ID.WithSuffix(suffix)
		conn.From = conn.From.WithSuffix(suffix)
		conn.To = conn.To.WithSuffix(suffix)
		result.Connections = append(result.Connections, conn)
	}

	// Each folder node whose template-local canvas key names a declared
	// sub-template gets that sub-template instantiated under the folder's
	// remapped canvas identity. Sub-templates recurse with their own
	// suffixes. An empty sub-template is skipped, not an error: templates
	// may declare folders with no pre-built content.
	for i := range tpl.Nodes {
		src := &tpl.Nodes[i]
		if src.LinkedCanvasID == "" {
			continue
		}
		sub, ok := tpl.SubCanvases[src.LinkedCanvasID]
		if !ok || sub == nil || len(sub.Nodes) == 0 {
			continue
		}
		subInst, err := InstantiateWithSuffix(sub, NewSuffix())
		if err != nil {
			return nil, err
		}
		newCanvasID := aggregates.CanvasID(src.LinkedCanvasID + "-" + suffix)
		result.SubCanvases[newCanvasID] = subInst.Graph
		for nestedID, nestedGraph := range subInst.SubCanvases {
			result.SubCanvases[nestedID] = nestedGraph
		}
	}

	return result, nil
}

// danglingRefs lists connection endpoints that do not resolve within the
// graph. Every instantiated graph must have none; exercised by tests.
func (g Graph) danglingRefs() []valueobjects.NodeID {
	present := make(map[valueobjects.NodeID]bool, len(g.Nodes))
	for i := range g.Nodes {
		present[g.Nodes[i].ID] = true
	}
	var dangling []valueobjects.NodeID
	for i := range g.Connections {
		if !present[g.Connections[i].From] {
			dangling = append(dangling, g.Connections[i].From)
		}
		if !present[g.Connections[i].To] {
			dangling = append(dangling, g.Connections[i].To)
		}
	}
	return dangling
}
