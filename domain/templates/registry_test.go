package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storycanvas/domain/core/aggregates"
	"storycanvas/domain/core/entities"
)

func TestRegistryResolveOrder(t *testing.T) {
	exact := &Template{ID: "exact"}
	short := &Template{ID: "short-prefix"}
	long := &Template{ID: "long-prefix"}
	byKind := &Template{ID: "by-kind"}

	reg := NewRegistry()
	reg.BindExact("main", exact)
	reg.BindPrefix("char", short)
	reg.BindPrefix("characters", long)
	reg.BindKind(entities.KindCharacter, byKind)

	t.Run("exact match wins", func(t *testing.T) {
		tpl, ok := reg.Resolve(aggregates.CanvasID("main"), entities.KindCharacter)
		require.True(t, ok)
		assert.Equal(t, "exact", tpl.ID)
	})

	t.Run("longest prefix wins over shorter", func(t *testing.T) {
		tpl, ok := reg.Resolve(aggregates.CanvasID("characters-abc"), "")
		require.True(t, ok)
		assert.Equal(t, "long-prefix", tpl.ID)
	})

	t.Run("shorter prefix still matches", func(t *testing.T) {
		tpl, ok := reg.Resolve(aggregates.CanvasID("char-xyz"), "")
		require.True(t, ok)
		assert.Equal(t, "short-prefix", tpl.ID)
	})

	t.Run("kind fallback when no id binding matches", func(t *testing.T) {
		tpl, ok := reg.Resolve(aggregates.CanvasID("unrelated-123"), entities.KindCharacter)
		require.True(t, ok)
		assert.Equal(t, "by-kind", tpl.ID)
	})

	t.Run("miss opens the canvas empty", func(t *testing.T) {
		_, ok := reg.Resolve(aggregates.CanvasID("unrelated-123"), entities.KindText)
		assert.False(t, ok)
	})
}

func TestLoadBuiltin(t *testing.T) {
	reg, err := LoadBuiltin()
	require.NoError(t, err)

	tpl, ok := reg.Resolve(aggregates.RootCanvasID, "")
	require.True(t, ok, "the root canvas always has a template")
	assert.Equal(t, "main", tpl.ID)
	assert.NotEmpty(t, tpl.Nodes)
	assert.Contains(t, tpl.SubCanvases, "characters")

	charTpl, ok := reg.Resolve(aggregates.CanvasID("characters-01ABC"), "")
	require.True(t, ok)
	assert.Equal(t, "characters", charTpl.ID)

	kindTpl, ok := reg.Resolve(aggregates.CanvasID("whatever"), entities.KindCharacter)
	require.True(t, ok)
	assert.Equal(t, "characters", kindTpl.ID)
}
