package rasterizer

import (
	"image"
	"image/color"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/math/fixed"
)

// IsGeometric reports whether r belongs to one of the ranges drawn
// geometrically rather than through the font path, so
// cell boundaries land exactly on pixel boundaries at any DPI instead of
// depending on how a particular font hints these glyphs.
func IsGeometric(r rune) bool {
	if _, ok := blockElements[r]; ok {
		return true
	}
	if _, ok := boxDrawing[r]; ok {
		return true
	}
	if _, ok := powerline[r]; ok {
		return true
	}
	return r >= 0x2800 && r <= 0x28FF
}

// DrawGeometric rasterizes a geometric glyph into a cellWidth×cellHeight
// alpha mask. ok is false for a rune IsGeometric would also reject, in
// which case the caller should fall back to the font path.
func DrawGeometric(r rune, cellWidth, cellHeight int) (*image.Alpha, bool) {
	w, h := float64(cellWidth), float64(cellHeight)

	if rects, ok := blockElements[r]; ok {
		return fillRects(cellWidth, cellHeight, scaleRects(rects, w, h)), true
	}
	if seg, ok := boxDrawing[r]; ok {
		return fillRects(cellWidth, cellHeight, boxDrawingRects(seg, w, h)), true
	}
	if tri, ok := powerline[r]; ok {
		return fillPolygon(cellWidth, cellHeight, scalePoints(tri, w, h)), true
	}
	if r >= 0x2800 && r <= 0x28FF {
		return drawBraille(r, cellWidth, cellHeight), true
	}
	return nil, false
}

// --- rasterx plumbing ---

func toFixed(x, y float64) fixed.Point26_6 {
	return fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
}

// fillRects unions a set of axis-aligned rectangles into one coverage mask
// using rasterx's scanline filler, the way icon.go drives rasterx.NewDasher
// off an oksvg path — here each rectangle is its own closed subpath fed to
// the same filler before one final Draw.
func fillRects(w, h int, rects [][4]float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if len(rects) == 0 {
		return mask
	}
	scanner := rasterx.NewScannerGV(w, h, mask, mask.Bounds())
	scanner.SetColor(color.Opaque)
	filler := rasterx.NewFiller(w, h, scanner)
	for _, r := range rects {
		x0, y0, x1, y1 := r[0], r[1], r[2], r[3]
		if x1 <= x0 || y1 <= y0 {
			continue
		}
		filler.Start(toFixed(x0, y0))
		filler.Line(toFixed(x1, y0))
		filler.Line(toFixed(x1, y1))
		filler.Line(toFixed(x0, y1))
		filler.Stop(true)
	}
	filler.Draw()
	return mask
}

func fillPolygon(w, h int, points [][2]float64) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if len(points) < 3 {
		return mask
	}
	scanner := rasterx.NewScannerGV(w, h, mask, mask.Bounds())
	scanner.SetColor(color.Opaque)
	filler := rasterx.NewFiller(w, h, scanner)
	filler.Start(toFixed(points[0][0], points[0][1]))
	for _, p := range points[1:] {
		filler.Line(toFixed(p[0], p[1]))
	}
	filler.Stop(true)
	filler.Draw()
	return mask
}

func scaleRects(rects [][4]float64, w, h float64) [][4]float64 {
	out := make([][4]float64, len(rects))
	for i, r := range rects {
		out[i] = [4]float64{r[0] * w, r[1] * h, r[2] * w, r[3] * h}
	}
	return out
}

func scalePoints(points [][2]float64, w, h float64) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p[0] * w, p[1] * h}
	}
	return out
}

// --- Block Elements (U+2580-U+259F) ---

// blockElements maps each supported codepoint to the fractional
// (x0,y0,x1,y1) rectangles of the cell it fills, in [0,1] cell units with
// y growing downward. Quadrant glyphs (U+2596-U+259F) union 1-3 quadrants.
var blockElements = buildBlockElements()

func buildBlockElements() map[rune][][4]float64 {
	m := map[rune][][4]float64{
		0x2580: {{0, 0, 1, 0.5}},      // upper half
		0x2581: {{0, 7.0 / 8, 1, 1}},  // lower one eighth
		0x2582: {{0, 6.0 / 8, 1, 1}},  // lower one quarter
		0x2583: {{0, 5.0 / 8, 1, 1}},  // lower three eighths
		0x2584: {{0, 0.5, 1, 1}},      // lower half
		0x2585: {{0, 3.0 / 8, 1, 1}},  // lower five eighths
		0x2586: {{0, 2.0 / 8, 1, 1}},  // lower three quarters
		0x2587: {{0, 1.0 / 8, 1, 1}},  // lower seven eighths
		0x2588: {{0, 0, 1, 1}},        // full block
		0x2589: {{0, 0, 7.0 / 8, 1}},  // left seven eighths
		0x258A: {{0, 0, 6.0 / 8, 1}},  // left three quarters
		0x258B: {{0, 0, 5.0 / 8, 1}},  // left five eighths
		0x258C: {{0, 0, 0.5, 1}},      // left half
		0x258D: {{0, 0, 3.0 / 8, 1}},  // left three eighths
		0x258E: {{0, 0, 2.0 / 8, 1}},  // left one quarter
		0x258F: {{0, 0, 1.0 / 8, 1}},  // left one eighth
		0x2590: {{0.5, 0, 1, 1}},      // right half
		0x2594: {{0, 0, 1, 1.0 / 8}},  // upper one eighth
		0x2595: {{7.0 / 8, 0, 1, 1}},  // right one eighth
	}
	// Shade glyphs: the font path would vary the mask's coverage; here we
	// approximate with a uniformly-sampled dot grid at increasing density.
	m[0x2591] = shadeDots(4)
	m[0x2592] = shadeDots(8)
	m[0x2593] = shadeDots(12)

	const (
		ul = 1 << iota
		ur
		ll
		lr
	)
	quadrants := map[rune]int{
		0x2596: ll,
		0x2597: lr,
		0x2598: ul,
		0x2599: ul | ll | lr,
		0x259A: ul | lr,
		0x259B: ul | ur | ll,
		0x259C: ul | ur | lr,
		0x259D: ur,
		0x259E: ur | ll,
		0x259F: ur | ll | lr,
	}
	quadRect := map[int][4]float64{
		ul: {0, 0, 0.5, 0.5},
		ur: {0.5, 0, 1, 0.5},
		ll: {0, 0.5, 0.5, 1},
		lr: {0.5, 0.5, 1, 1},
	}
	for r, bits := range quadrants {
		var rects [][4]float64
		for _, q := range []int{ul, ur, ll, lr} {
			if bits&q != 0 {
				rects = append(rects, quadRect[q])
			}
		}
		m[r] = rects
	}
	return m
}

// shadeDots approximates a shade glyph as small filled squares on an n×n
// grid, in a checkerboard that fills every other position, giving a stipple effect rather than a flat semi-transparent
// fill, so it still reads as a distinct texture at full opacity.
func shadeDots(n int) [][4]float64 {
	var rects [][4]float64
	cell := 1.0 / float64(n)
	dot := cell * 0.4
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			if (row+col)%2 != 0 {
				continue
			}
			cx := (float64(col) + 0.5) * cell
			cy := (float64(row) + 0.5) * cell
			rects = append(rects, [4]float64{cx - dot/2, cy - dot/2, cx + dot/2, cy + dot/2})
		}
	}
	return rects
}

// --- Box Drawing (U+2500-U+257F) ---

type boxWeight int

const (
	boxNone boxWeight = iota
	boxLight
	boxHeavy
)

// boxSegment describes which of the four directions from cell center to
// edge a box-drawing glyph draws, and at what stroke weight.
type boxSegment struct {
	up, down, left, right boxWeight
}

var boxDrawing = map[rune]boxSegment{
	0x2500: {left: boxLight, right: boxLight},                                // light horizontal
	0x2501: {left: boxHeavy, right: boxHeavy},                                // heavy horizontal
	0x2502: {up: boxLight, down: boxLight},                                   // light vertical
	0x2503: {up: boxHeavy, down: boxHeavy},                                   // heavy vertical
	0x250C: {down: boxLight, right: boxLight},                                // light down-and-right
	0x250F: {down: boxHeavy, right: boxHeavy},                                // heavy down-and-right
	0x2510: {down: boxLight, left: boxLight},                                 // light down-and-left
	0x2513: {down: boxHeavy, left: boxHeavy},                                 // heavy down-and-left
	0x2514: {up: boxLight, right: boxLight},                                  // light up-and-right
	0x2517: {up: boxHeavy, right: boxHeavy},                                  // heavy up-and-right
	0x2518: {up: boxLight, left: boxLight},                                   // light up-and-left
	0x251B: {up: boxHeavy, left: boxHeavy},                                   // heavy up-and-left
	0x251C: {up: boxLight, down: boxLight, right: boxLight},                  // light vertical-and-right
	0x2523: {up: boxHeavy, down: boxHeavy, right: boxHeavy},                  // heavy vertical-and-right
	0x2524: {up: boxLight, down: boxLight, left: boxLight},                  // light vertical-and-left
	0x252B: {up: boxHeavy, down: boxHeavy, left: boxHeavy},                  // heavy vertical-and-left
	0x252C: {down: boxLight, left: boxLight, right: boxLight},                // light down-and-horizontal
	0x2533: {down: boxHeavy, left: boxHeavy, right: boxHeavy},                // heavy down-and-horizontal
	0x2534: {up: boxLight, left: boxLight, right: boxLight},                  // light up-and-horizontal
	0x253B: {up: boxHeavy, left: boxHeavy, right: boxHeavy},                  // heavy up-and-horizontal
	0x253C: {up: boxLight, down: boxLight, left: boxLight, right: boxLight},  // light cross
	0x254B: {up: boxHeavy, down: boxHeavy, left: boxHeavy, right: boxHeavy},  // heavy cross
}

// boxDrawingRects turns a boxSegment into the rectangles covering the
// stroke from the cell center to each edge it touches.
func boxDrawingRects(seg boxSegment, w, h float64) [][4]float64 {
	const (
		lightFrac = 1.0 / 8
		heavyFrac = 2.0 / 8
	)
	cx, cy := 0.5, 0.5
	var rects [][4]float64
	half := func(wt boxWeight) float64 {
		if wt == boxHeavy {
			return heavyFrac / 2
		}
		return lightFrac / 2
	}
	if seg.up != boxNone {
		hw := half(seg.up)
		rects = append(rects, [4]float64{cx - hw, 0, cx + hw, cy + hw})
	}
	if seg.down != boxNone {
		hw := half(seg.down)
		rects = append(rects, [4]float64{cx - hw, cy - hw, cx + hw, 1})
	}
	if seg.left != boxNone {
		hw := half(seg.left)
		rects = append(rects, [4]float64{0, cy - hw, cx + hw, cy + hw})
	}
	if seg.right != boxNone {
		hw := half(seg.right)
		rects = append(rects, [4]float64{cx - hw, cy - hw, 1, cy + hw})
	}
	return scaleRects(rects, w, h)
}

// --- Powerline (U+E0B0-U+E0BF) ---

// powerline maps each supported codepoint to a triangle, in [0,1] cell
// units, approximating the two solid separator arrows. Outline arrows and
// semicircle variants are left to the font path.
var powerline = map[rune][][2]float64{
	0xE0B0: {{0, 0}, {1, 0.5}, {0, 1}},  // solid right-pointing triangle
	0xE0B2: {{1, 0}, {0, 0.5}, {1, 1}},  // solid left-pointing triangle
}

// --- Braille (U+2800-U+28FF) ---

// brailleDotOffsets gives each of the 8 standard Braille dot positions as
// (col, row) in a 2×4 grid, matching the Unicode Braille Patterns block's
// canonical bit-to-dot mapping (bit i at brailleDotOffsets[i]).
var brailleDotOffsets = [8][2]int{
	{0, 0}, {0, 1}, {0, 2}, // dots 1,2,3: bits 0,1,2
	{1, 0}, {1, 1}, {1, 2}, // dots 4,5,6: bits 3,4,5
	{0, 3}, {1, 3}, // dots 7,8: bits 6,7
}

func drawBraille(r rune, cellWidth, cellHeight int) *image.Alpha {
	bits := int(r - 0x2800)
	w, h := float64(cellWidth), float64(cellHeight)
	colW, rowH := w/2, h/4
	dotW, dotH := colW*0.6, rowH*0.6

	var rects [][4]float64
	for i, off := range brailleDotOffsets {
		if bits&(1<<uint(i)) == 0 {
			continue
		}
		cx := (float64(off[0]) + 0.5) * colW
		cy := (float64(off[1]) + 0.5) * rowH
		rects = append(rects, [4]float64{cx - dotW/2, cy - dotH/2, cx + dotW/2, cy + dotH/2})
	}
	return fillRects(cellWidth, cellHeight, rects)
}
