package templates

import (
	"encoding/json"

	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	pkgerrors "storycanvas/pkg/errors"
)

// Template is an immutable blueprint used to seed a canvas's initial
// content. Template ids are placeholders: they are never inserted into a
// live graph directly, only cloned through the instantiator with a
// collision-free suffix.
//
// SubCanvases maps template-local canvas keys (the values of folder
// nodes' linkedCanvasId fields) to nested blueprints, recursively.
type Template struct {
	ID          string                `json:"id"`
	Nodes       []entities.Node       `json:"nodes"`
	Connections []entities.Connection `json:"connections"`
	SubCanvases map[string]*Template  `json:"subCanvases,omitempty"`
}

// Parse decodes and validates a template. Payloads are validated against
// their kind's schema here, at load time, so a malformed blueprint is
// rejected before it can ever seed a canvas.
func Parse(data []byte) (*Template, error) {
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, pkgerrors.NewValidationError("malformed template: " + err.Error())
	}
	if err := tpl.Validate(); err != nil {
		return nil, pkgerrors.Wrap(err, "template "+tpl.ID)
	}
	return &tpl, nil
}

// Validate checks the blueprint's structure and every payload schema,
// recursing into sub-templates
func (t *Template) Validate() error {
	if t.ID == "" {
		return pkgerrors.NewValidationError("template id cannot be empty")
	}

	seen := make(map[valueobjects.NodeID]*entities.Node, len(t.Nodes))
	for i := range t.Nodes {
		node := &t.Nodes[i]
		if err := node.ValidateStructure(); err != nil {
			return err
		}
		if _, dup := seen[node.ID]; dup {
			return pkgerrors.NewDuplicateIDError(node.ID.String())
		}
		seen[node.ID] = node
		if _, err := entities.DecodePayload(node.Kind, node.Content); err != nil {
			return pkgerrors.Wrap(err, "node "+node.ID.String())
		}
	}

	for i := range t.Nodes {
		node := &t.Nodes[i]
		if !node.ParentID.IsZero() {
			parent, ok := seen[node.ParentID]
			if !ok {
				return pkgerrors.NewDanglingReferenceError(node.ParentID.String())
			}
			if !parent.HasChild(node.ID) {
				return pkgerrors.NewValidationError(
					"template parent " + node.ParentID.String() + " does not list child " + node.ID.String())
			}
		}
		for _, childID := range node.ChildIDs {
			if _, ok := seen[childID]; !ok {
				return pkgerrors.NewDanglingReferenceError(childID.String())
			}
		}
	}

	connSeen := make(map[valueobjects.ConnectionID]bool, len(t.Connections))
	for i := range t.Connections {
		conn := &t.Connections[i]
		if err := conn.ValidateStructure(); err != nil {
			return err
		}
		if connSeen[conn.ID] {
			return pkgerrors.NewDuplicateIDError(conn.ID.String())
		}
		connSeen[conn.ID] = true
		if _, ok := seen[conn.From]; !ok {
			return pkgerrors.NewDanglingReferenceError(conn.From.String())
		}
		if _, ok := seen[conn.To]; !ok {
			return pkgerrors.NewDanglingReferenceError(conn.To.String())
		}
	}

	for key, sub := range t.SubCanvases {
		if sub == nil {
			continue
		}
		if err := sub.Validate(); err != nil {
			return pkgerrors.Wrap(err, "sub-canvas "+key)
		}
	}
	return nil
}
