package renderer

import (
	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/linecache"
)

// Shaper turns one row of cells into a GlyphLayout: which glyphs exist,
// which font each comes from, and the pen x position of each in pixels.
// It is the layout half of the line cache's outer level — everything here
// depends only on the row's text and attributes, never on selection,
// cursor, or theme.
type Shaper struct {
	fontID    uint32
	cellWidth int
}

// NewShaper builds a shaper assigning glyphs to fontID with the given
// cell width in pixels.
func NewShaper(fontID uint32, cellWidth int) *Shaper {
	return &Shaper{fontID: fontID, cellWidth: cellWidth}
}

// ShapeRow lays out a row of cells. Wide characters advance the pen by two
// cell widths; their continuation cells are skipped entirely, so a row
// holding "你好world" shapes to 7 glyphs at x = 0, 2w, 4w, 5w, 6w, 7w, 8w.
// Blank cells (space or NUL) contribute no glyph but still advance the pen
// through their column position.
func (s *Shaper) ShapeRow(cells []grid.Cell) linecache.GlyphLayout {
	layout := linecache.GlyphLayout{Cols: len(cells)}
	for col, cell := range cells {
		if cell.Flags&grid.FlagWideContinuation != 0 {
			continue
		}
		if cell.Char == ' ' || cell.Char == 0 {
			continue
		}
		layout.Glyphs = append(layout.Glyphs, linecache.PositionedGlyph{
			Rune:   cell.Char,
			X:      col * s.cellWidth,
			FontID: s.fontID,
			Wide:   cell.Wide,
		})
	}
	return layout
}
