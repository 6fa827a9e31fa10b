package rendering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycanvas/domain/core/entities"
	"storycanvas/domain/core/valueobjects"
)

func placedNode(id string, x, y float64) entities.Node {
	return entities.Node{
		ID:     valueobjects.MustNodeID(id),
		Kind:   entities.KindText,
		X:      x,
		Y:      y,
		Width:  100,
		Height: 60,
	}
}

func connect(id, from, to string) entities.Connection {
	return entities.Connection{
		ID:   valueobjects.MustConnectionID(id),
		From: valueobjects.MustNodeID(from),
		To:   valueobjects.MustNodeID(to),
		Type: "relates-to",
	}
}

func TestWorldRect(t *testing.T) {
	t.Run("buffer grows as the view zooms out", func(t *testing.T) {
		atFull := Viewport{Scale: 1, Width: 600, Height: 400, Buffer: 300}.WorldRect()
		zoomedOut := Viewport{Scale: 0.5, Width: 600, Height: 400, Buffer: 300}.WorldRect()

		assert.InDelta(t, 1200.0, atFull.Width, 0.001, "600 visible plus 300 buffer per side")
		assert.InDelta(t, 2400.0, zoomedOut.Width, 0.001, "same pixels cover twice the world")
	})

	t.Run("offsets translate the visible origin", func(t *testing.T) {
		rect := Viewport{OffsetX: -1000, OffsetY: -200, Scale: 1, Width: 600, Height: 400, Buffer: 300}.WorldRect()
		assert.InDelta(t, 700.0, rect.X, 0.001)
		assert.InDelta(t, -100.0, rect.Y, 0.001)
	})

	t.Run("non-positive scale falls back to 1", func(t *testing.T) {
		rect := Viewport{Scale: 0, Width: 600, Height: 400, Buffer: 300}.WorldRect()
		assert.InDelta(t, 1200.0, rect.Width, 0.001)
	})

	t.Run("zero buffer means no margin", func(t *testing.T) {
		rect := Viewport{Scale: 1, Width: 600, Height: 400}.WorldRect()
		assert.InDelta(t, 600.0, rect.Width, 0.001)
		assert.InDelta(t, 0.0, rect.X, 0.001)
	})

	t.Run("negative buffer selects the default", func(t *testing.T) {
		rect := Viewport{Scale: 1, Width: 600, Height: 400, Buffer: -1}.WorldRect()
		assert.InDelta(t, 1200.0, rect.Width, 0.001)
	})
}

func TestCull(t *testing.T) {
	nodes := []entities.Node{
		placedNode("near", 0, 0),
		placedNode("mid", 500, 0),
		placedNode("far", 1000, 0),
	}
	conns := []entities.Connection{
		connect("near-mid", "near", "mid"),
		connect("mid-far", "mid", "far"),
	}
	vp := Viewport{Scale: 1, Width: 600, Height: 400, Buffer: 300}

	result := Cull(nodes, conns, vp, false)

	visible := make(map[string]bool)
	for _, n := range result.Nodes {
		visible[n.ID.String()] = true
	}
	assert.True(t, visible["near"])
	assert.True(t, visible["mid"])
	assert.False(t, visible["far"], "outside the buffered viewport")

	require.Len(t, result.Connections, 1, "an edge with one hidden endpoint is dropped")
	assert.Equal(t, "near-mid", result.Connections[0].ID.String())
	assert.Equal(t, DetailFull, result.Tier)
}

func TestCullWithZeroBuffer(t *testing.T) {
	nodes := []entities.Node{
		placedNode("near", 0, 0),
		placedNode("mid", 500, 0),
		placedNode("far", 1000, 0),
	}
	vp := Viewport{Scale: 1, Width: 600, Height: 400}

	result := Cull(nodes, nil, vp, false)

	require.Len(t, result.Nodes, 2, "an unbuffered view keeps exactly the visible span")
	assert.Equal(t, "mid", result.Nodes[1].ID.String(), "touching the right edge still counts")
}

func TestCullBoundaryTouchCounts(t *testing.T) {
	// Buffered world rect ends at x=900; a node starting exactly there
	// still renders.
	nodes := []entities.Node{placedNode("edge", 900, 0)}
	vp := Viewport{Scale: 1, Width: 600, Height: 400, Buffer: 300}

	result := Cull(nodes, nil, vp, false)
	require.Len(t, result.Nodes, 1)
}

func TestCullZoomedOutSeesMore(t *testing.T) {
	nodes := []entities.Node{placedNode("far", 1000, 0)}

	atFull := Cull(nodes, nil, Viewport{Scale: 1, Width: 600, Height: 400, Buffer: 300}, false)
	assert.Empty(t, atFull.Nodes)

	zoomedOut := Cull(nodes, nil, Viewport{Scale: 0.5, Width: 600, Height: 400, Buffer: 300}, false)
	assert.Len(t, zoomedOut.Nodes, 1)
}

func TestDetailFor(t *testing.T) {
	assert.Equal(t, DetailFull, DetailFor(1.0, false))
	assert.Equal(t, DetailFull, DetailFor(0.5, false))
	assert.Equal(t, DetailTitleOnly, DetailFor(0.4, false))
	assert.Equal(t, DetailHidden, DetailFor(0.2, false))
	assert.Equal(t, DetailHidden, DetailFor(1.0, true), "interaction forces the cheapest tier")
}

func TestThrottler(t *testing.T) {
	now := time.Unix(0, 0)
	th := NewThrottler(100 * time.Millisecond)
	th.now = func() time.Time { return now }

	assert.True(t, th.Allow(), "first call always passes")
	assert.False(t, th.Allow(), "second call within the interval is suppressed")

	now = now.Add(150 * time.Millisecond)
	assert.True(t, th.Allow())
}
