package valueobjects

import "errors"

// NodeID is a value object identifying a node. Node ids are unique across
// the entire canvas forest of a story, not just within one canvas, because
// templates are cloned into many canvases and ids must never collide.
type NodeID struct {
	value string
}

// NewNodeIDFromString creates a NodeID from an existing string
func NewNodeIDFromString(id string) (NodeID, error) {
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	return NodeID{value: id}, nil
}

// MustNodeID creates a NodeID and panics on an empty value. For use with
// ids that are known-good by construction (template placeholders, tests).
func MustNodeID(id string) NodeID {
	nid, err := NewNodeIDFromString(id)
	if err != nil {
		panic(err)
	}
	return nid
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// WithSuffix derives a new NodeID by appending an instantiation suffix
func (id NodeID) WithSuffix(suffix string) NodeID {
	return NodeID{value: id.value + "-" + suffix}
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NodeID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}

// ConnectionID identifies a connection. Canvas-scoped uniqueness would be
// sufficient, but connection ids are globally unique anyway to keep
// snapshot merging uniform with node ids.
type ConnectionID struct {
	value string
}

// NewConnectionIDFromString creates a ConnectionID from an existing string
func NewConnectionIDFromString(id string) (ConnectionID, error) {
	if id == "" {
		return ConnectionID{}, errors.New("connection ID cannot be empty")
	}
	return ConnectionID{value: id}, nil
}

// MustConnectionID creates a ConnectionID and panics on an empty value
func MustConnectionID(id string) ConnectionID {
	cid, err := NewConnectionIDFromString(id)
	if err != nil {
		panic(err)
	}
	return cid
}

// String returns the string representation of the ConnectionID
func (id ConnectionID) String() string {
	return id.value
}

// Equals checks if two ConnectionIDs are equal
func (id ConnectionID) Equals(other ConnectionID) bool {
	return id.value == other.value
}

// IsZero checks if the ConnectionID is the zero value
func (id ConnectionID) IsZero() bool {
	return id.value == ""
}

// WithSuffix derives a new ConnectionID by appending an instantiation suffix
func (id ConnectionID) WithSuffix(suffix string) ConnectionID {
	return ConnectionID{value: id.value + "-" + suffix}
}

// MarshalJSON implements json.Marshaler
func (id ConnectionID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ConnectionID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ConnectionID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
