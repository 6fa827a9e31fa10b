package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
	"storycanvas/domain/events"
	pkgerrors "storycanvas/pkg/errors"
)

func testNode(id string, kind entities.NodeKind) entities.Node {
	return entities.Node{
		ID:     valueobjects.MustNodeID(id),
		Kind:   kind,
		X:      10,
		Y:      20,
		Width:  100,
		Height: 80,
	}
}

func testConnection(id, from, to string) entities.Connection {
	return entities.Connection{
		ID:   valueobjects.MustConnectionID(id),
		From: valueobjects.MustNodeID(from),
		To:   valueobjects.MustNodeID(to),
		Type: "relates-to",
	}
}

func TestCanvasAddNode(t *testing.T) {
	forest := NewForest()
	canvas, err := NewCanvas("story-1", RootCanvasID, forest, nil)
	require.NoError(t, err)

	t.Run("adds a valid node", func(t *testing.T) {
		require.NoError(t, canvas.AddNode(testNode("hero", entities.KindCharacter), "u1"))
		assert.True(t, canvas.HasNode(valueobjects.MustNodeID("hero")))
		assert.True(t, forest.Has("hero"))
	})

	t.Run("rejects a duplicate id in the same canvas", func(t *testing.T) {
		err := canvas.AddNode(testNode("hero", entities.KindText), "u1")
		assert.True(t, pkgerrors.IsDuplicateID(err))
	})

	t.Run("rejects a duplicate id across canvases of the forest", func(t *testing.T) {
		other, err := NewCanvas("story-1", CanvasID("characters-x"), forest, nil)
		require.NoError(t, err)
		err = other.AddNode(testNode("hero", entities.KindCharacter), "u1")
		assert.True(t, pkgerrors.IsDuplicateID(err))
	})

	t.Run("rejects a parent that is not a container", func(t *testing.T) {
		child := testNode("sidekick", entities.KindCharacter)
		child.ParentID = valueobjects.MustNodeID("hero")
		err := canvas.AddNode(child, "u1")
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("rejects a missing parent", func(t *testing.T) {
		child := testNode("orphan", entities.KindText)
		child.ParentID = valueobjects.MustNodeID("no-such-list")
		err := canvas.AddNode(child, "u1")
		assert.True(t, pkgerrors.IsDanglingReference(err))
	})

	t.Run("keeps parent childIds in sync", func(t *testing.T) {
		require.NoError(t, canvas.AddNode(testNode("timeline", entities.KindList), "u1"))
		event := testNode("beat-1", entities.KindEvent)
		event.ParentID = valueobjects.MustNodeID("timeline")
		require.NoError(t, canvas.AddNode(event, "u1"))

		parent, ok := canvas.Node(valueobjects.MustNodeID("timeline"))
		require.True(t, ok)
		assert.True(t, parent.HasChild(valueobjects.MustNodeID("beat-1")))
		require.NoError(t, canvas.Validate())
	})
}

func TestCanvasConnections(t *testing.T) {
	canvas, err := NewCanvas("story-1", RootCanvasID, NewForest(), nil)
	require.NoError(t, err)
	require.NoError(t, canvas.AddNode(testNode("a", entities.KindText), "u1"))
	require.NoError(t, canvas.AddNode(testNode("b", entities.KindText), "u1"))

	t.Run("rejects dangling endpoints", func(t *testing.T) {
		err := canvas.AddConnection(testConnection("c1", "a", "ghost"), "u1")
		assert.True(t, pkgerrors.IsDanglingReference(err))
	})

	t.Run("rejects self connections", func(t *testing.T) {
		err := canvas.AddConnection(testConnection("c1", "a", "a"), "u1")
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("adds a valid connection", func(t *testing.T) {
		require.NoError(t, canvas.AddConnection(testConnection("c1", "a", "b"), "u1"))
		assert.Len(t, canvas.Connections(), 1)
	})

	t.Run("delete is idempotent through not found", func(t *testing.T) {
		require.NoError(t, canvas.DeleteConnection(valueobjects.MustConnectionID("c1"), "u1"))
		err := canvas.DeleteConnection(valueobjects.MustConnectionID("c1"), "u1")
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestCanvasDeleteNodeCascades(t *testing.T) {
	forest := NewForest()
	canvas, err := NewCanvas("story-1", RootCanvasID, forest, nil)
	require.NoError(t, err)

	require.NoError(t, canvas.AddNode(testNode("timeline", entities.KindList), "u1"))
	beat := testNode("beat-1", entities.KindEvent)
	beat.ParentID = valueobjects.MustNodeID("timeline")
	require.NoError(t, canvas.AddNode(beat, "u1"))
	require.NoError(t, canvas.AddNode(testNode("hero", entities.KindCharacter), "u1"))
	require.NoError(t, canvas.AddConnection(testConnection("c1", "hero", "beat-1"), "u1"))

	require.NoError(t, canvas.DeleteNode(valueobjects.MustNodeID("beat-1"), "u1"))

	assert.False(t, canvas.HasNode(valueobjects.MustNodeID("beat-1")))
	assert.Empty(t, canvas.Connections(), "referencing connections must be pruned")
	assert.False(t, forest.Has("beat-1"), "deleted ids become claimable again")
	assert.False(t, forest.Has("c1"))

	parent, ok := canvas.Node(valueobjects.MustNodeID("timeline"))
	require.True(t, ok)
	assert.False(t, parent.HasChild(valueobjects.MustNodeID("beat-1")))
	require.NoError(t, canvas.Validate())
}

func TestCanvasDeleteContainerClearsChildren(t *testing.T) {
	canvas, err := NewCanvas("story-1", RootCanvasID, NewForest(), nil)
	require.NoError(t, err)

	require.NoError(t, canvas.AddNode(testNode("timeline", entities.KindList), "u1"))
	beat := testNode("beat-1", entities.KindEvent)
	beat.ParentID = valueobjects.MustNodeID("timeline")
	require.NoError(t, canvas.AddNode(beat, "u1"))

	require.NoError(t, canvas.DeleteNode(valueobjects.MustNodeID("timeline"), "u1"))

	child, ok := canvas.Node(valueobjects.MustNodeID("beat-1"))
	require.True(t, ok)
	assert.True(t, child.ParentID.IsZero(), "children outlive their container without a parent")
	require.NoError(t, canvas.Validate())
}

func TestCanvasUpdateNode(t *testing.T) {
	canvas, err := NewCanvas("story-1", RootCanvasID, NewForest(), nil)
	require.NoError(t, err)
	require.NoError(t, canvas.AddNode(testNode("hero", entities.KindCharacter), "u1"))

	t.Run("applies partial updates", func(t *testing.T) {
		x := 500.0
		title := "Protagonist"
		require.NoError(t, canvas.UpdateNode(valueobjects.MustNodeID("hero"), entities.NodePatch{X: &x, Title: &title}, "u1"))
		node, ok := canvas.Node(valueobjects.MustNodeID("hero"))
		require.True(t, ok)
		assert.Equal(t, 500.0, node.X)
		assert.Equal(t, 20.0, node.Y, "unpatched fields stay put")
		assert.Equal(t, "Protagonist", node.Title)
	})

	t.Run("missing node yields not found", func(t *testing.T) {
		err := canvas.UpdateNode(valueobjects.MustNodeID("ghost"), entities.NodePatch{}, "u1")
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("reparenting updates both containers", func(t *testing.T) {
		require.NoError(t, canvas.AddNode(testNode("list-a", entities.KindList), "u1"))
		require.NoError(t, canvas.AddNode(testNode("list-b", entities.KindList), "u1"))

		listA := valueobjects.MustNodeID("list-a")
		require.NoError(t, canvas.UpdateNode(valueobjects.MustNodeID("hero"), entities.NodePatch{ParentID: &listA}, "u1"))

		listB := valueobjects.MustNodeID("list-b")
		require.NoError(t, canvas.UpdateNode(valueobjects.MustNodeID("hero"), entities.NodePatch{ParentID: &listB}, "u1"))

		a, _ := canvas.Node(listA)
		b, _ := canvas.Node(listB)
		assert.False(t, a.HasChild(valueobjects.MustNodeID("hero")))
		assert.True(t, b.HasChild(valueobjects.MustNodeID("hero")))
		require.NoError(t, canvas.Validate())
	})
}

func TestCanvasEvents(t *testing.T) {
	canvas, err := NewCanvas("story-1", RootCanvasID, NewForest(), nil)
	require.NoError(t, err)

	require.NoError(t, canvas.AddNode(testNode("hero", entities.KindCharacter), "u1"))

	raised := canvas.GetUncommittedEvents()
	require.Len(t, raised, 1)
	changed, ok := raised[0].(events.CanvasChanged)
	require.True(t, ok)
	assert.Equal(t, events.ReasonNodeAdded, changed.Reason)
	assert.Equal(t, "u1", changed.OriginUserID)
	assert.False(t, changed.Remote)
	assert.Len(t, changed.Nodes, 1, "events carry the full snapshot")

	canvas.MarkEventsAsCommitted()
	assert.Empty(t, canvas.GetUncommittedEvents())
}

func TestCanvasLoadSnapshotEmitsNoEvents(t *testing.T) {
	canvas, err := NewCanvas("story-1", RootCanvasID, NewForest(), nil)
	require.NoError(t, err)

	nodes := []entities.Node{testNode("a", entities.KindText), testNode("b", entities.KindText)}
	conns := []entities.Connection{testConnection("c1", "a", "b")}
	require.NoError(t, canvas.LoadSnapshot(nodes, conns))

	assert.Empty(t, canvas.GetUncommittedEvents(), "loading is not an edit")
	assert.Len(t, canvas.Nodes(), 2)
	assert.Len(t, canvas.Connections(), 1)
}

func TestCanvasApplyRemoteSnapshot(t *testing.T) {
	forest := NewForest()
	canvas, err := NewCanvas("story-1", RootCanvasID, forest, nil)
	require.NoError(t, err)
	require.NoError(t, canvas.AddNode(testNode("local-only", entities.KindText), "u1"))
	canvas.MarkEventsAsCommitted()

	canvas.ApplyRemoteSnapshot(
		[]entities.Node{testNode("remote-a", entities.KindText)},
		nil,
		"u2",
	)

	assert.False(t, canvas.HasNode(valueobjects.MustNodeID("local-only")), "last writer wins wholesale")
	assert.True(t, canvas.HasNode(valueobjects.MustNodeID("remote-a")))
	assert.False(t, forest.Has("local-only"))
	assert.True(t, forest.Has("remote-a"))

	raised := canvas.GetUncommittedEvents()
	require.Len(t, raised, 1)
	changed := raised[0].(events.CanvasChanged)
	assert.True(t, changed.Remote, "remote applies must not re-broadcast")
	assert.Equal(t, events.ReasonRemoteSnapshot, changed.Reason)
}
