package glyphatlas

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/raventerm/termengine/grid"
)

// FaceSet rasterizes glyphs from one parsed font face at a fixed size.
// Glyphs are produced on demand rather than pre-baked over a fixed
// character range, since the Atlas owns page placement and the line cache
// decides what actually needs to exist.
type FaceSet struct {
	fontID uint32
	face   font.Face
}

// NewFaceSet parses fontData and opens a face at sizePx and DPI 96 with
// full hinting.
func NewFaceSet(fontID uint32, fontData []byte, sizePx float64) (*FaceSet, error) {
	parsed, err := opentype.Parse(fontData)
	if err != nil {
		return nil, fmt.Errorf("glyphatlas: parse font: %w", err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     96,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("glyphatlas: create face: %w", err)
	}
	return &FaceSet{fontID: fontID, face: face}, nil
}

// Close releases the underlying face.
func (f *FaceSet) Close() error { return f.face.Close() }

// FontID returns the id this face set rasterizes Key.FontID matches.
func (f *FaceSet) FontID() uint32 { return f.fontID }

// Metrics returns the cell dimensions this face implies: cellHeight from
// ascent+descent, cellWidth from 'M's advance.
func (f *FaceSet) Metrics() (cellWidth, cellHeight int) {
	m := f.face.Metrics()
	advance, _ := f.face.GlyphAdvance('M')
	return advance.Ceil(), (m.Ascent + m.Descent).Ceil()
}

// Rasterize satisfies glyphatlas.RasterizeFunc: it draws key.GlyphID into a
// cell-sized alpha mask, collapsing the RGBA draw to single-channel
// coverage.
func (f *FaceSet) Rasterize(key Key) (*image.Alpha, error) {
	if key.FontID != f.fontID {
		return nil, fmt.Errorf("glyphatlas: face set %d cannot rasterize font %d", f.fontID, key.FontID)
	}
	if _, ok := f.face.GlyphAdvance(key.GlyphID); !ok {
		return nil, fmt.Errorf("glyphatlas: no glyph for %q in font %d", key.GlyphID, key.FontID)
	}

	cellW, cellH := f.Metrics()
	if grid.RuneWidth(key.GlyphID) == 2 {
		cellW *= 2
	}
	rgba := image.NewRGBA(image.Rect(0, 0, cellW, cellH))
	drawer := &font.Drawer{
		Dst:  rgba,
		Src:  image.White,
		Face: f.face,
		Dot:  fixed.P(0, f.face.Metrics().Ascent.Ceil()),
	}
	drawer.DrawString(string(key.GlyphID))

	mask := image.NewAlpha(rgba.Bounds())
	for y := 0; y < cellH; y++ {
		for x := 0; x < cellW; x++ {
			_, _, _, a := rgba.At(x, y).RGBA()
			mask.SetAlpha(x, y, color.Alpha{A: uint8(a >> 8)})
		}
	}
	return mask, nil
}
