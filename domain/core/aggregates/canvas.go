package aggregates

import (
	"sort"
	"time"

	"storycanvas/domain/config"
	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	"storycanvas/domain/events"
	pkgerrors "storycanvas/pkg/errors"
)

// CanvasID is the canvasType key addressing one canvas within a story
type CanvasID string

// String returns the string representation
func (id CanvasID) String() string {
	return string(id)
}

// RootCanvasID is the implicit root of every story's navigation tree
const RootCanvasID CanvasID = "main"

// Canvas is the aggregate root for one node/connection graph. It is the
// single source of truth for that graph: all mutations go through it,
// every mutation is atomic with respect to the others, and every mutation
// records a CanvasChanged event consumed by the culler and the sync
// engine.
type Canvas struct {
	id          CanvasID
	storyID     string
	nodes       map[valueobjects.NodeID]*entities.Node
	connections map[valueobjects.ConnectionID]*entities.Connection
	forest      *Forest
	cfg         *config.DomainConfig
	updatedAt   time.Time
	version     int
	events      []events.DomainEvent
}

// NewCanvas creates an empty canvas registered against the story's forest
func NewCanvas(storyID string, id CanvasID, forest *Forest, cfg *config.DomainConfig) (*Canvas, error) {
	if storyID == "" {
		return nil, pkgerrors.NewValidationError("storyID cannot be empty")
	}
	if id == "" {
		return nil, pkgerrors.NewValidationError("canvas id cannot be empty")
	}
	if forest == nil {
		forest = NewForest()
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Canvas{
		id:          id,
		storyID:     storyID,
		nodes:       make(map[valueobjects.NodeID]*entities.Node),
		connections: make(map[valueobjects.ConnectionID]*entities.Connection),
		forest:      forest,
		cfg:         cfg,
		updatedAt:   time.Now(),
		version:     1,
		events:      []events.DomainEvent{},
	}, nil
}

// ID returns the canvas key
func (c *Canvas) ID() CanvasID {
	return c.id
}

// StoryID returns the owning story
func (c *Canvas) StoryID() string {
	return c.storyID
}

// UpdatedAt returns when the canvas last changed
func (c *Canvas) UpdatedAt() time.Time {
	return c.updatedAt
}

// Version returns the mutation counter
func (c *Canvas) Version() int {
	return c.version
}

// AddNode inserts a node. Fails with a duplicate id error if the id
// already exists anywhere in the forest.
func (c *Canvas) AddNode(node entities.Node, originUserID string) error {
	if err := node.ValidateStructure(); err != nil {
		return err
	}
	if len(c.nodes) >= c.cfg.MaxNodesPerCanvas {
		return pkgerrors.NewConflictError("maximum nodes reached for canvas")
	}

	if !node.ParentID.IsZero() {
		parent, ok := c.nodes[node.ParentID]
		if !ok {
			return pkgerrors.NewDanglingReferenceError(node.ParentID.String())
		}
		if !parent.IsContainer() {
			return pkgerrors.NewValidationError("parent node is not a container")
		}
	}

	if err := c.forest.Claim(node.ID.String(), c.id); err != nil {
		return err
	}

	stored := node.Clone()
	c.nodes[node.ID] = &stored

	// Keep the parent's childIds consistent with the back-reference.
	if !node.ParentID.IsZero() {
		parent := c.nodes[node.ParentID]
		if !parent.HasChild(node.ID) {
			parent.ChildIDs = append(parent.ChildIDs, node.ID)
		}
	}

	c.touch(events.ReasonNodeAdded, originUserID)
	return nil
}

// UpdateNode merges a partial update into an existing node. A missing id
// is signaled with a not found error; callers recover by logging, never
// by surfacing a hard failure.
func (c *Canvas) UpdateNode(id valueobjects.NodeID, patch entities.NodePatch, originUserID string) error {
	node, ok := c.nodes[id]
	if !ok {
		return pkgerrors.NewNotFoundError("node " + id.String())
	}

	// Reparenting keeps both sides of the parent/child relation in sync.
	if patch.ParentID != nil && !patch.ParentID.Equals(node.ParentID) {
		newParentID := *patch.ParentID
		if !newParentID.IsZero() {
			newParent, ok := c.nodes[newParentID]
			if !ok {
				return pkgerrors.NewDanglingReferenceError(newParentID.String())
			}
			if !newParent.IsContainer() {
				return pkgerrors.NewValidationError("parent node is not a container")
			}
		}
		if !node.ParentID.IsZero() {
			if oldParent, ok := c.nodes[node.ParentID]; ok {
				oldParent.RemoveChild(id)
			}
		}
		if !newParentID.IsZero() {
			newParent := c.nodes[newParentID]
			if !newParent.HasChild(id) {
				newParent.ChildIDs = append(newParent.ChildIDs, id)
			}
		}
	}

	patch.Apply(node)
	if err := node.ValidateStructure(); err != nil {
		return err
	}

	c.touch(events.ReasonNodeUpdated, originUserID)
	return nil
}

// DeleteNode removes a node and cascades: connections referencing it are
// pruned, its children lose their parent back-reference, and its own
// parent's childIds drop its id.
func (c *Canvas) DeleteNode(id valueobjects.NodeID, originUserID string) error {
	node, ok := c.nodes[id]
	if !ok {
		return pkgerrors.NewNotFoundError("node " + id.String())
	}

	for connID, conn := range c.connections {
		if conn.References(id) {
			delete(c.connections, connID)
			c.forest.Release(connID.String())
		}
	}

	for _, childID := range node.ChildIDs {
		if child, ok := c.nodes[childID]; ok && child.ParentID.Equals(id) {
			child.ParentID = valueobjects.NodeID{}
		}
	}

	if !node.ParentID.IsZero() {
		if parent, ok := c.nodes[node.ParentID]; ok {
			parent.RemoveChild(id)
		}
	}

	delete(c.nodes, id)
	c.forest.Release(id.String())

	c.touch(events.ReasonNodeDeleted, originUserID)
	return nil
}

// AddConnection inserts a directed edge. Both endpoints must resolve to
// nodes present in this canvas; otherwise the mutation is rejected at the
// store boundary.
func (c *Canvas) AddConnection(conn entities.Connection, originUserID string) error {
	if err := conn.ValidateStructure(); err != nil {
		return err
	}
	if len(c.connections) >= c.cfg.MaxConnectionsPerCanvas {
		return pkgerrors.NewConflictError("maximum connections reached for canvas")
	}
	if !c.cfg.AllowSelfConnections && conn.From.Equals(conn.To) {
		return pkgerrors.NewValidationError("cannot connect node to itself")
	}
	if _, ok := c.nodes[conn.From]; !ok {
		return pkgerrors.NewDanglingReferenceError(conn.From.String())
	}
	if _, ok := c.nodes[conn.To]; !ok {
		return pkgerrors.NewDanglingReferenceError(conn.To.String())
	}
	if !c.cfg.AllowDuplicateEdges {
		for _, existing := range c.connections {
			if existing.From.Equals(conn.From) && existing.To.Equals(conn.To) && existing.Type == conn.Type {
				return pkgerrors.NewConflictError("connection already exists")
			}
		}
	}

	if err := c.forest.Claim(conn.ID.String(), c.id); err != nil {
		return err
	}

	stored := conn
	c.connections[conn.ID] = &stored

	c.touch(events.ReasonConnectionAdded, originUserID)
	return nil
}

// DeleteConnection removes a connection by id
func (c *Canvas) DeleteConnection(id valueobjects.ConnectionID, originUserID string) error {
	if _, ok := c.connections[id]; !ok {
		return pkgerrors.NewNotFoundError("connection " + id.String())
	}
	delete(c.connections, id)
	c.forest.Release(id.String())

	c.touch(events.ReasonConnectionDeleted, originUserID)
	return nil
}

// Node returns a copy of the node with the given id
func (c *Canvas) Node(id valueobjects.NodeID) (entities.Node, bool) {
	node, ok := c.nodes[id]
	if !ok {
		return entities.Node{}, false
	}
	return node.Clone(), true
}

// HasNode reports whether a node exists in this canvas
func (c *Canvas) HasNode(id valueobjects.NodeID) bool {
	_, ok := c.nodes[id]
	return ok
}

// Nodes returns copies of all nodes, ordered by id for determinism
func (c *Canvas) Nodes() []entities.Node {
	out := make([]entities.Node, 0, len(c.nodes))
	for _, node := range c.nodes {
		out = append(out, node.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Connections returns copies of all connections, ordered by id
func (c *Canvas) Connections() []entities.Connection {
	out := make([]entities.Connection, 0, len(c.connections))
	for _, conn := range c.connections {
		out = append(out, *conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Snapshot returns the full current graph
func (c *Canvas) Snapshot() ([]entities.Node, []entities.Connection) {
	return c.Nodes(), c.Connections()
}

// LoadSnapshot seeds the canvas from persisted or instantiated state.
// It claims every id against the forest and does not emit a change event;
// loading is not an edit.
func (c *Canvas) LoadSnapshot(nodes []entities.Node, connections []entities.Connection) error {
	claimed := make([]string, 0, len(nodes)+len(connections))
	rollback := func() {
		for _, id := range claimed {
			c.forest.Release(id)
		}
	}

	for i := range nodes {
		if err := nodes[i].ValidateStructure(); err != nil {
			rollback()
			return err
		}
		if err := c.forest.Claim(nodes[i].ID.String(), c.id); err != nil {
			rollback()
			return err
		}
		claimed = append(claimed, nodes[i].ID.String())
	}
	for i := range connections {
		if err := connections[i].ValidateStructure(); err != nil {
			rollback()
			return err
		}
		if err := c.forest.Claim(connections[i].ID.String(), c.id); err != nil {
			rollback()
			return err
		}
		claimed = append(claimed, connections[i].ID.String())
	}

	for i := range nodes {
		stored := nodes[i].Clone()
		c.nodes[stored.ID] = &stored
	}
	for i := range connections {
		stored := connections[i]
		c.connections[stored.ID] = &stored
	}

	c.updatedAt = time.Now()
	return nil
}

// ApplyRemoteSnapshot overwrites the whole graph with a snapshot received
// from another editor. Last-writer-wins at whole-canvas granularity:
// there is no node-level merge, the incoming state replaces everything.
// The emitted event is flagged remote so the sync engine does not
// re-broadcast it.
func (c *Canvas) ApplyRemoteSnapshot(nodes []entities.Node, connections []entities.Connection, originUserID string) {
	c.nodes = make(map[valueobjects.NodeID]*entities.Node, len(nodes))
	c.connections = make(map[valueobjects.ConnectionID]*entities.Connection, len(connections))

	ids := make([]string, 0, len(nodes)+len(connections))
	for i := range nodes {
		stored := nodes[i].Clone()
		c.nodes[stored.ID] = &stored
		ids = append(ids, stored.ID.String())
	}
	for i := range connections {
		stored := connections[i]
		c.connections[stored.ID] = &stored
		ids = append(ids, stored.ID.String())
	}
	c.forest.ReplaceCanvas(c.id, ids)

	c.updatedAt = time.Now()
	c.version++
	c.addEvent(events.NewCanvasChanged(
		c.storyID, c.id.String(), events.ReasonRemoteSnapshot, originUserID, true,
		c.Nodes(), c.Connections(), c.updatedAt,
	))
}

// Validate checks the structural invariants of the graph: no dangling
// connection endpoints and bidirectional parent/child consistency.
func (c *Canvas) Validate() error {
	for _, conn := range c.connections {
		if _, ok := c.nodes[conn.From]; !ok {
			return pkgerrors.NewDanglingReferenceError(conn.From.String())
		}
		if _, ok := c.nodes[conn.To]; !ok {
			return pkgerrors.NewDanglingReferenceError(conn.To.String())
		}
	}
	for id, node := range c.nodes {
		for _, childID := range node.ChildIDs {
			child, ok := c.nodes[childID]
			if !ok {
				return pkgerrors.NewDanglingReferenceError(childID.String())
			}
			if !child.ParentID.Equals(id) {
				return pkgerrors.NewValidationError(
					"child " + childID.String() + " does not reference parent " + id.String())
			}
		}
		if !node.ParentID.IsZero() {
			parent, ok := c.nodes[node.ParentID]
			if !ok {
				return pkgerrors.NewDanglingReferenceError(node.ParentID.String())
			}
			if !parent.HasChild(id) {
				return pkgerrors.NewValidationError(
					"parent " + node.ParentID.String() + " does not list child " + id.String())
			}
		}
	}
	return nil
}

// GetUncommittedEvents returns all uncommitted domain events
func (c *Canvas) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

// MarkEventsAsCommitted clears the uncommitted events
func (c *Canvas) MarkEventsAsCommitted() {
	c.events = []events.DomainEvent{}
}

func (c *Canvas) touch(reason, originUserID string) {
	c.updatedAt = time.Now()
	c.version++
	c.addEvent(events.NewCanvasChanged(
		c.storyID, c.id.String(), reason, originUserID, false,
		c.Nodes(), c.Connections(), c.updatedAt,
	))
}

func (c *Canvas) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}
