package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	base := HSL{H: 30, S: 0.6, L: 0.5}

	t.Run("main carries the adjusted base hue", func(t *testing.T) {
		pal := Generate(base, 0)
		assert.InDelta(t, 30.0, pal.Main.H, 0.001)
		assert.InDelta(t, 0.6, pal.Main.S, 0.001)

		shifted := Generate(base, 45)
		assert.InDelta(t, 75.0, shifted.Main.H, 0.001)
	})

	t.Run("hue adjustment wraps around the wheel", func(t *testing.T) {
		pal := Generate(HSL{H: 350, S: 0.5, L: 0.5}, 30)
		assert.InDelta(t, 20.0, pal.Main.H, 0.001)
	})

	t.Run("complementary sits near the opposite hue", func(t *testing.T) {
		pal := Generate(base, 0)
		diff := angularDistance(pal.Main.H, pal.Complementary.H)
		assert.Greater(t, diff, 130.0, "complementary stays on the far side of the wheel")
	})

	t.Run("warm base complementary is nudged toward purple", func(t *testing.T) {
		// Base hue 30 puts the raw complement at 210; the nudge pulls it
		// toward 280.
		pal := Generate(base, 0)
		assert.Greater(t, pal.Complementary.H, 210.0)
		assert.Less(t, pal.Complementary.H, 280.0)
	})

	t.Run("cool base complementary is nudged toward green", func(t *testing.T) {
		// Base hue 210 puts the raw complement at 30; the nudge pulls it
		// toward 120.
		pal := Generate(HSL{H: 210, S: 0.5, L: 0.5}, 0)
		assert.Greater(t, pal.Accent.H, 0.0)
		assert.Greater(t, pal.Complementary.H, 30.0)
		assert.Less(t, pal.Complementary.H, 120.0)
	})

	t.Run("accent uses the fixed offset", func(t *testing.T) {
		pal := Generate(base, 0)
		assert.InDelta(t, 170.0, pal.Accent.H, 0.001)
	})

	t.Run("saturation and lightness are clamped", func(t *testing.T) {
		pal := Generate(HSL{H: 10, S: 1.8, L: -0.2}, 0)
		assert.Equal(t, 1.0, pal.Main.S)
		assert.Equal(t, 0.0, pal.Main.L)
	})
}

func TestVariantSwapsSurfaceAndText(t *testing.T) {
	pal := Generate(HSL{H: 200, S: 0.4, L: 0.7}, 0)

	light := pal.Variant(AppearanceLight)
	dark := pal.Variant(AppearanceDark)

	assert.Equal(t, pal.Main, light.Surface)
	assert.Equal(t, pal.Complementary, light.Text)
	assert.Equal(t, pal.Complementary, dark.Surface)
	assert.Equal(t, pal.Main, dark.Text)
	assert.Equal(t, light.Accent, dark.Accent)
}

func TestResolverPrecedence(t *testing.T) {
	r := NewResolver()

	folderPal := Generate(HSL{H: 10, S: 0.5, L: 0.5}, 0)
	projectPal := Generate(HSL{H: 120, S: 0.5, L: 0.5}, 0)

	ctx := Context{CanvasID: "characters-abc", StoryID: "story-1", Appearance: AppearanceLight}

	t.Run("global default when nothing is scoped", func(t *testing.T) {
		def := r.Resolve(ctx)
		assert.NotZero(t, def.Main.H)
	})

	t.Run("project palette overrides the default", func(t *testing.T) {
		r.SetProjectPalette("story-1", projectPal)
		assert.Equal(t, projectPal, r.Resolve(ctx))
	})

	t.Run("folder palette overrides the project palette", func(t *testing.T) {
		r.SetFolderPalette("characters-abc", folderPal)
		assert.Equal(t, folderPal, r.Resolve(ctx))
	})

	t.Run("clearing the folder palette falls back to project", func(t *testing.T) {
		r.ClearFolderPalette("characters-abc")
		assert.Equal(t, projectPal, r.Resolve(ctx))
	})

	t.Run("other stories are unaffected", func(t *testing.T) {
		other := r.Resolve(Context{CanvasID: "main", StoryID: "story-2", Appearance: AppearanceDark})
		require.NotEqual(t, projectPal, other)
	})
}

func angularDistance(a, b float64) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 180 {
		d = 360 - d
	}
	return d
}
