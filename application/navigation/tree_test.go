package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/valueobjects"
)

func descend(t *testing.T, tree *Tree) {
	t.Helper()
	require.NoError(t, tree.NavigateInto("characters-abc", valueobjects.MustNodeID("cast"), "Cast"))
	require.NoError(t, tree.NavigateInto("villains-def", valueobjects.MustNodeID("villains"), "Villains"))
	require.NoError(t, tree.NavigateInto("henchmen-ghi", valueobjects.MustNodeID("henchmen"), "Henchmen"))
}

func TestTreeStartsAtRoot(t *testing.T) {
	tree := NewTree()
	assert.Equal(t, aggregates.RootCanvasID, tree.Active())
	assert.Empty(t, tree.Breadcrumb())
	assert.Zero(t, tree.Depth())
}

func TestNavigateInto(t *testing.T) {
	tree := NewTree()
	descend(t, tree)

	assert.Equal(t, aggregates.CanvasID("henchmen-ghi"), tree.Active())
	assert.Equal(t, 3, tree.Depth())

	trail := tree.Breadcrumb()
	require.Len(t, trail, 3)
	assert.Equal(t, "Cast", trail[0].Title)
	assert.Equal(t, aggregates.CanvasID("villains-def"), trail[1].CanvasID)

	assert.Error(t, tree.NavigateInto("", valueobjects.MustNodeID("x"), "nowhere"))
}

func TestNavigateIntoActiveCanvasIsANoOp(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.NavigateInto("characters-abc", valueobjects.MustNodeID("cast"), "Cast"))
	require.NoError(t, tree.NavigateInto("characters-abc", valueobjects.MustNodeID("cast"), "Cast"))

	assert.Equal(t, 1, tree.Depth(), "re-entering the active canvas must not stack crumbs")
	assert.Equal(t, aggregates.CanvasID("characters-abc"), tree.Active())
}

func TestNavigateIntoCanvasAlreadyOnTrail(t *testing.T) {
	tree := NewTree()
	require.NoError(t, tree.NavigateInto("characters-abc", valueobjects.MustNodeID("cast"), "Cast"))
	require.NoError(t, tree.NavigateInto("villains-def", valueobjects.MustNodeID("villains"), "Villains"))

	require.NoError(t, tree.NavigateInto("characters-abc", valueobjects.MustNodeID("cast"), "Cast"))

	assert.Equal(t, 2, tree.Depth(), "a canvas already on the trail is activated, not re-appended")
	assert.Equal(t, aggregates.CanvasID("characters-abc"), tree.Active())
}

func TestNavigateToBreadcrumb(t *testing.T) {
	t.Run("minus one returns to the root", func(t *testing.T) {
		tree := NewTree()
		descend(t, tree)

		canvasID, err := tree.NavigateToBreadcrumb(-1)
		require.NoError(t, err)
		assert.Equal(t, aggregates.RootCanvasID, canvasID)
		assert.Empty(t, tree.Breadcrumb())
	})

	t.Run("last index is a no-op", func(t *testing.T) {
		tree := NewTree()
		descend(t, tree)

		canvasID, err := tree.NavigateToBreadcrumb(2)
		require.NoError(t, err)
		assert.Equal(t, aggregates.CanvasID("henchmen-ghi"), canvasID)
		assert.Equal(t, 3, tree.Depth())
	})

	t.Run("middle index truncates the trail below it", func(t *testing.T) {
		tree := NewTree()
		descend(t, tree)

		canvasID, err := tree.NavigateToBreadcrumb(0)
		require.NoError(t, err)
		assert.Equal(t, aggregates.CanvasID("characters-abc"), canvasID)
		require.Len(t, tree.Breadcrumb(), 1)

		// Descending again from the truncation point works normally.
		require.NoError(t, tree.NavigateInto("allies-jkl", valueobjects.MustNodeID("allies"), "Allies"))
		assert.Equal(t, 2, tree.Depth())
	})

	t.Run("out of range is rejected", func(t *testing.T) {
		tree := NewTree()
		descend(t, tree)

		_, err := tree.NavigateToBreadcrumb(3)
		assert.Error(t, err)
		_, err = tree.NavigateToBreadcrumb(-2)
		assert.Error(t, err)
		assert.Equal(t, aggregates.CanvasID("henchmen-ghi"), tree.Active(), "a rejected jump changes nothing")
	})
}

func TestReset(t *testing.T) {
	tree := NewTree()
	descend(t, tree)
	tree.Reset()
	assert.Equal(t, aggregates.RootCanvasID, tree.Active())
	assert.Zero(t, tree.Depth())
}

func TestStoreScopesTreesPerUserAndStory(t *testing.T) {
	store := NewStore()

	a := store.TreeFor("u1", "story-1")
	require.NoError(t, a.NavigateInto("characters-abc", valueobjects.MustNodeID("cast"), "Cast"))

	assert.Same(t, a, store.TreeFor("u1", "story-1"))

	b := store.TreeFor("u2", "story-1")
	assert.Equal(t, aggregates.RootCanvasID, b.Active(), "navigation is per user")

	c := store.TreeFor("u1", "story-2")
	assert.Equal(t, aggregates.RootCanvasID, c.Active(), "navigation is per story")
}
