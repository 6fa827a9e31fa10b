package entities

import (
	"storycanvas/domain/core/valueobjects"
	pkgerrors "storycanvas/pkg/errors"
)

// Connection is a directed, typed edge between two nodes of the same
// canvas. Type is an open tag (leads-to, conflicts-with, relates-to, ...)
// with no engine-level semantics; the renderer decides what it means.
type Connection struct {
	ID   valueobjects.ConnectionID `json:"id"`
	From valueobjects.NodeID       `json:"from"`
	To   valueobjects.NodeID       `json:"to"`
	Type string                    `json:"type,omitempty"`
}

// ValidateStructure checks the structural fields of a connection
func (c *Connection) ValidateStructure() error {
	if c.ID.IsZero() {
		return pkgerrors.NewValidationError("connection id cannot be empty")
	}
	if c.From.IsZero() || c.To.IsZero() {
		return pkgerrors.NewValidationError("connection endpoints cannot be empty")
	}
	return nil
}

// References reports whether the connection touches the given node
func (c *Connection) References(id valueobjects.NodeID) bool {
	return c.From.Equals(id) || c.To.Equals(id)
}
