package renderer

import (
	"hash/fnv"
	"image/color"
	"strings"

	"github.com/raventerm/termengine/grid"
)

// Theme is the engine's color scheme. Background/Foreground/Cursor/
// Selection drive the grid itself; the remaining fields color the
// row-state overlays (search highlights, IME preedit) the renderer paints
// on top.
type Theme struct {
	Name string

	Background [4]float32
	Foreground [4]float32
	Cursor     [4]float32
	Selection  [4]float32

	SearchMatch   [4]float32
	SearchCurrent [4]float32
	Preedit       [4]float32
	PreeditCaret  [4]float32
}

// DefaultTheme returns the default color theme.
func DefaultTheme() Theme {
	return ThemeByName("raven-blue")
}

// ThemeByName returns a theme for a known theme name.
func ThemeByName(name string) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "crow-black":
		return Theme{
			Name:       "crow-black",
			Background: [4]float32{0.020, 0.020, 0.020, 1.0}, // #050505
			Foreground: [4]float32{0.902, 0.902, 0.902, 1.0}, // #e6e6e6
			Cursor:     [4]float32{0.965, 0.965, 0.965, 1.0}, // #f6f6f6
			Selection:  [4]float32{0.702, 0.702, 0.702, 0.35},

			SearchMatch:   [4]float32{0.843, 0.729, 0.490, 0.35},
			SearchCurrent: [4]float32{0.843, 0.729, 0.490, 0.60},
			Preedit:       [4]float32{0.902, 0.902, 0.902, 1.0},
			PreeditCaret:  [4]float32{0.702, 0.702, 0.702, 0.50},
		}
	case "magpie-black-white-grey", "magpie-black-and-white-grey":
		return Theme{
			Name:       "magpie-black-white-grey",
			Background: [4]float32{0.067, 0.067, 0.067, 1.0}, // #111111
			Foreground: [4]float32{0.961, 0.961, 0.961, 1.0}, // #f5f5f5
			Cursor:     [4]float32{1.000, 1.000, 1.000, 1.0}, // #ffffff
			Selection:  [4]float32{0.816, 0.816, 0.816, 0.35},

			SearchMatch:   [4]float32{0.906, 0.788, 0.545, 0.35},
			SearchCurrent: [4]float32{0.906, 0.788, 0.545, 0.60},
			Preedit:       [4]float32{0.961, 0.961, 0.961, 1.0},
			PreeditCaret:  [4]float32{0.816, 0.816, 0.816, 0.50},
		}
	case "catppuccin-mocha", "catppuccin", "catpuccin":
		return Theme{
			Name:       "catppuccin-mocha",
			Background: [4]float32{0.118, 0.118, 0.180, 1.0}, // #1e1e2e
			Foreground: [4]float32{0.804, 0.839, 0.957, 1.0}, // #cdd6f4
			Cursor:     [4]float32{0.961, 0.761, 0.906, 1.0}, // #f5c2e7
			Selection:  [4]float32{0.537, 0.706, 0.980, 0.35},

			SearchMatch:   [4]float32{0.980, 0.886, 0.686, 0.35}, // #f9e2af
			SearchCurrent: [4]float32{0.980, 0.886, 0.686, 0.60},
			Preedit:       [4]float32{0.804, 0.839, 0.957, 1.0},
			PreeditCaret:  [4]float32{0.961, 0.761, 0.906, 0.50},
		}
	case "raven-blue":
		fallthrough
	default:
		return Theme{
			Name:       "raven-blue",
			Background: [4]float32{0.051, 0.063, 0.102, 1.0}, // #0d101a
			Foreground: [4]float32{0.910, 0.929, 0.969, 1.0}, // #e8edf7
			Cursor:     [4]float32{0.635, 0.878, 0.780, 1.0}, // #a2e0c7
			Selection:  [4]float32{0.455, 0.714, 1.0, 0.35},

			SearchMatch:   [4]float32{0.906, 0.788, 0.545, 0.35},
			SearchCurrent: [4]float32{0.906, 0.788, 0.545, 0.60},
			Preedit:       [4]float32{0.910, 0.929, 0.969, 1.0},
			PreeditCaret:  [4]float32{0.455, 0.714, 1.0, 0.50},
		}
	}
}

// ID returns a stable 64-bit identifier for the theme, mixed into every
// row's state hash so a theme switch can never serve a stale composition.
func (t Theme) ID() uint64 {
	h := fnv.New64a()
	h.Write([]byte(t.Name))
	return h.Sum64()
}

// colorToRGBA converts a grid.Color to RGBA under this theme.
func (t Theme) colorToRGBA(c grid.Color, isBackground bool) [4]float32 {
	switch c.Type {
	case grid.ColorDefault:
		if isBackground {
			return t.Background
		}
		return t.Foreground
	case grid.ColorIndexed:
		return indexedColor(c.Index)
	case grid.ColorRGB:
		return [4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1.0}
	}
	return t.Foreground
}

// indexedColor returns the RGB color for an indexed color (0-255).
func indexedColor(index uint8) [4]float32 {
	// Standard 16 colors
	standard := [][4]float32{
		{0.043, 0.059, 0.078, 1.0}, // 0: Black
		{0.820, 0.412, 0.412, 1.0}, // 1: Red
		{0.498, 0.737, 0.549, 1.0}, // 2: Green
		{0.843, 0.729, 0.490, 1.0}, // 3: Yellow
		{0.533, 0.643, 0.831, 1.0}, // 4: Blue
		{0.773, 0.525, 0.753, 1.0}, // 5: Magenta
		{0.498, 0.773, 0.784, 1.0}, // 6: Cyan
		{0.831, 0.847, 0.871, 1.0}, // 7: White
		{0.294, 0.322, 0.388, 1.0}, // 8: Bright Black
		{0.878, 0.478, 0.478, 1.0}, // 9: Bright Red
		{0.604, 0.843, 0.659, 1.0}, // 10: Bright Green
		{0.906, 0.788, 0.545, 1.0}, // 11: Bright Yellow
		{0.647, 0.749, 0.941, 1.0}, // 12: Bright Blue
		{0.847, 0.627, 0.831, 1.0}, // 13: Bright Magenta
		{0.604, 0.843, 0.863, 1.0}, // 14: Bright Cyan
		{0.945, 0.953, 0.961, 1.0}, // 15: Bright White
	}

	if index < 16 {
		return standard[index]
	}

	// 216 color cube (indices 16-231)
	if index < 232 {
		idx := index - 16
		red := (idx / 36) % 6
		green := (idx / 6) % 6
		blue := idx % 6
		return [4]float32{
			float32(red) * 51 / 255,
			float32(green) * 51 / 255,
			float32(blue) * 51 / 255,
			1.0,
		}
	}

	// Grayscale (indices 232-255)
	gray := float32(index-232) * 10 / 255
	return [4]float32{gray, gray, gray, 1.0}
}

// toNRGBA converts a normalized [4]float32 color to 8-bit premultiplied
// RGBA for image/draw.
func toNRGBA(c [4]float32) color.RGBA {
	a := c[3]
	return color.RGBA{
		R: uint8(c[0] * a * 255),
		G: uint8(c[1] * a * 255),
		B: uint8(c[2] * a * 255),
		A: uint8(a * 255),
	}
}
