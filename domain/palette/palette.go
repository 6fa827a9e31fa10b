package palette

import "math"

// Appearance selects the light or dark rendering of a palette
type Appearance string

const (
	AppearanceLight Appearance = "light"
	AppearanceDark  Appearance = "dark"
)

// HSL is a color in hue/saturation/lightness space. Hue is in degrees
// [0,360); saturation and lightness are fractions [0,1].
type HSL struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	L float64 `json:"l"`
}

// Palette is a harmonious 3-role color theme derived from one base color
type Palette struct {
	Main          HSL `json:"main"`
	Complementary HSL `json:"complementary"`
	Accent        HSL `json:"accent"`
}

// Roles assigns palette colors to rendering roles. Light and dark
// variants swap which derived color plays surface versus text.
type Roles struct {
	Surface HSL `json:"surface"`
	Text    HSL `json:"text"`
	Accent  HSL `json:"accent"`
}

// Fixed derivation offsets. The complementary color sits opposite the
// base, nudged toward purple for warm bases and toward green for cool
// ones; the accent approximates a classic opposite-wheel accent.
const (
	accentOffset  = 140.0
	nudgeFraction = 0.2
	purpleHue     = 280.0
	greenHue      = 120.0
)

// Generate derives a palette from a base color and a hue-adjustment
// slider value (degrees added to the base hue before derivation)
func Generate(base HSL, hueAdjust float64) Palette {
	h := wrapHue(base.H + hueAdjust)
	main := HSL{H: h, S: clamp01(base.S), L: clamp01(base.L)}

	comp := wrapHue(h + 180)
	if comp >= 180 && comp < 330 {
		comp = shiftToward(comp, purpleHue, nudgeFraction)
	} else {
		comp = shiftToward(comp, greenHue, nudgeFraction)
	}

	return Palette{
		Main:          main,
		Complementary: HSL{H: comp, S: main.S, L: main.L},
		Accent:        HSL{H: wrapHue(h + accentOffset), S: main.S, L: main.L},
	}
}

// Variant returns the role assignment for the requested appearance
func (p Palette) Variant(a Appearance) Roles {
	if a == AppearanceDark {
		return Roles{Surface: p.Complementary, Text: p.Main, Accent: p.Accent}
	}
	return Roles{Surface: p.Main, Text: p.Complementary, Accent: p.Accent}
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// shiftToward moves a hue a fixed fraction of the shorter angular
// distance to the target hue
func shiftToward(h, target, fraction float64) float64 {
	delta := math.Mod(target-h+540, 360) - 180
	return wrapHue(h + delta*fraction)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
