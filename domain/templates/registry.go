package templates

import (
	"sort"
	"strings"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
)

// Registry maps canvas identities to the templates that seed them. The
// mapping is explicit and resolved at authoring time: an exact canvas id
// binding, a registered id-prefix tag, or a node-kind fallback. Lookup
// order is exact match, then longest matching prefix, then the owning
// node's kind; a miss is not an error, the canvas simply opens empty.
type Registry struct {
	exact    map[string]*Template
	prefixes []prefixBinding
	kinds    map[entities.NodeKind]*Template
}

type prefixBinding struct {
	prefix string
	tpl    *Template
}

// NewRegistry creates an empty template registry
func NewRegistry() *Registry {
	return &Registry{
		exact: make(map[string]*Template),
		kinds: make(map[entities.NodeKind]*Template),
	}
}

// BindExact binds a template to one canvas id
func (r *Registry) BindExact(canvasID string, tpl *Template) {
	r.exact[canvasID] = tpl
}

// BindPrefix binds a template to every canvas id carrying the prefix tag.
// Longer prefixes win over shorter ones.
func (r *Registry) BindPrefix(prefix string, tpl *Template) {
	r.prefixes = append(r.prefixes, prefixBinding{prefix: prefix, tpl: tpl})
	sort.SliceStable(r.prefixes, func(i, j int) bool {
		return len(r.prefixes[i].prefix) > len(r.prefixes[j].prefix)
	})
}

// BindKind binds a fallback template to the declared kind of the folder
// node that owns the canvas
func (r *Registry) BindKind(kind entities.NodeKind, tpl *Template) {
	r.kinds[kind] = tpl
}

// Resolve finds the template for a canvas being opened without persisted
// state. ownerKind is the kind of the folder node that links the canvas;
// pass an empty kind when the canvas has no owning node.
func (r *Registry) Resolve(canvasID aggregates.CanvasID, ownerKind entities.NodeKind) (*Template, bool) {
	id := canvasID.String()
	if tpl, ok := r.exact[id]; ok {
		return tpl, true
	}
	for _, b := range r.prefixes {
		if strings.HasPrefix(id, b.prefix) {
			return b.tpl, true
		}
	}
	if tpl, ok := r.kinds[ownerKind]; ok {
		return tpl, true
	}
	return nil, false
}
