package renderer

import (
	"bytes"
	"testing"

	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/pool"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
	"github.com/raventerm/termengine/units"
)

func newTestRenderer() *Renderer {
	return New(config.PoolConfig{ThemeName: "raven-blue", Cache: config.DefaultCacheBudget()}, nil)
}

// snapshotWithText builds a TerminalState whose grid holds the given rows
// of text, with the cursor parked after the last written character.
func snapshotWithText(cols, rows int, lines []string) state.TerminalState {
	g := grid.New(cols, rows)
	for i, line := range lines {
		if i > 0 {
			g.CarriageReturn()
			g.Newline()
		}
		for _, r := range line {
			wide := grid.RuneWidth(r) == 2
			g.WriteChar(r, grid.DefaultFg(), grid.DefaultBg(), 0, wide, 0)
			if wide {
				g.WriteContinuation(grid.DefaultFg(), grid.DefaultBg(), 0)
			}
		}
	}

	col, row := g.GetCursor()
	return state.TerminalState{
		Grid: g.View(),
		Cursor: state.CursorView{
			Position: units.ScreenPoint(row, col).ToAbsolute(g.HistorySize(), g.DisplayOffset()),
			Shape:    state.CursorBlock,
			Color:    grid.DefaultFg(),
		},
	}
}

func TestRerenderServesEverythingFromCache(t *testing.T) {
	r := newTestRenderer()
	snap := snapshotWithText(20, 4, []string{"hello"})
	id := terminal.ID(1)

	r.RenderTerminal(id, snap, pool.Rect{})
	first := r.Stats()
	if first.ShaperCalls == 0 || first.RowsComposed == 0 {
		t.Fatalf("first frame should shape and compose rows, got %+v", first)
	}

	r.ResetStats()
	r.RenderTerminal(id, snap, pool.Rect{})
	second := r.Stats()
	if second.ShaperCalls != 0 {
		t.Errorf("second identical frame made %d shaper calls, want 0", second.ShaperCalls)
	}
	if second.GlyphRasterizations != 0 {
		t.Errorf("second identical frame rasterized %d glyphs, want 0", second.GlyphRasterizations)
	}
	if second.RowsComposed != 0 {
		t.Errorf("second identical frame composed %d rows, want 0", second.RowsComposed)
	}
	if second.CompositionCacheHits != 4 {
		t.Errorf("expected every row to hit the composition cache, got %d hits", second.CompositionCacheHits)
	}
}

func TestShapeRowWideCharacterPositions(t *testing.T) {
	const w = 9
	s := NewShaper(primaryFontID, w)

	var cells []grid.Cell
	for _, r := range "你好world" {
		cell := grid.NewCell()
		cell.Char = r
		cell.Wide = grid.RuneWidth(r) == 2
		cells = append(cells, cell)
		if cell.Wide {
			cont := grid.NewCell()
			cont.Char = 0
			cont.Flags = grid.FlagWideContinuation
			cells = append(cells, cont)
		}
	}

	layout := s.ShapeRow(cells)
	wantX := []int{0, 2 * w, 4 * w, 5 * w, 6 * w, 7 * w, 8 * w}
	if len(layout.Glyphs) != len(wantX) {
		t.Fatalf("got %d glyphs, want %d", len(layout.Glyphs), len(wantX))
	}
	for i, g := range layout.Glyphs {
		if g.X != wantX[i] {
			t.Errorf("glyph %d (%q) at x=%d, want %d", i, g.Rune, g.X, wantX[i])
		}
	}
	if !layout.Glyphs[0].Wide || layout.Glyphs[2].Wide {
		t.Error("wide flags not carried through shaping")
	}
}

func TestComposeRowIsPure(t *testing.T) {
	r := newTestRenderer()
	snap := snapshotWithText(12, 2, []string{"pure row"})

	textHash := TextHash(snap.Grid.RowHash(0), snap.Grid.Cols())
	layout := r.shaper.ShapeRow(snap.Grid.Row(0))
	r.cache.InsertLayout(textHash, layout)

	a := r.composeRow(snap, 0, layout)
	b := r.composeRow(snap, 0, layout)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("identical inputs produced different row pixels")
	}
}

func TestRowStateHashIgnoresCrossRowState(t *testing.T) {
	r := newTestRenderer()
	snap := snapshotWithText(10, 3, []string{"one", "two"})

	// The cursor sits on row 1 (after "two"); row 2's state hash must not
	// depend on where exactly.
	before := r.rowStateHash(snap, 2)

	moved := snap
	moved.Cursor.Position = units.AbsolutePoint(1, 0)
	after := r.rowStateHash(moved, 2)

	if before != after {
		t.Error("moving the cursor within another row changed this row's state hash")
	}

	// But the row the cursor is on must see the change.
	if r.rowStateHash(snap, 1) == r.rowStateHash(moved, 1) {
		t.Error("cursor row's state hash ignored a cursor move")
	}
}

func TestRowStateHashSeesSelectionSpan(t *testing.T) {
	r := newTestRenderer()
	snap := snapshotWithText(10, 2, []string{"selectable"})

	plain := r.rowStateHash(snap, 0)

	sel := state.NewSelectionView(units.AbsolutePoint(0, 2), units.AbsolutePoint(0, 6), state.SelectionSimple)
	snap.Selection = &sel
	if r.rowStateHash(snap, 0) == plain {
		t.Error("selection on the row did not change its state hash")
	}
	if r.rowStateHash(snap, 1) != r.rowStateHash(state.TerminalState{
		Grid: snap.Grid, Cursor: snap.Cursor,
	}, 1) {
		t.Error("selection on row 0 leaked into row 1's state hash")
	}
}

func TestThemeSwitchInvalidatesCompositions(t *testing.T) {
	r := newTestRenderer()
	snap := snapshotWithText(10, 2, []string{"themed"})
	id := terminal.ID(2)

	r.RenderTerminal(id, snap, pool.Rect{})
	r.SetThemeByName("crow-black")
	r.ResetStats()

	r.RenderTerminal(id, snap, pool.Rect{})
	if r.Stats().RowsComposed == 0 {
		t.Error("theme switch should force recomposition of every row")
	}
}

func TestSelectionRangeOnRow(t *testing.T) {
	sel := state.NewSelectionView(units.AbsolutePoint(10, 5), units.AbsolutePoint(12, 15), state.SelectionSimple)

	cases := []struct {
		row        int
		start, end int
		ok         bool
	}{
		{9, 0, 0, false},
		{10, 5, 79, true},
		{11, 0, 79, true},
		{12, 0, 15, true},
		{13, 0, 0, false},
	}
	for _, tc := range cases {
		start, end, ok := selectionRangeOnRow(&sel, tc.row, 80)
		if ok != tc.ok || (ok && (start != tc.start || end != tc.end)) {
			t.Errorf("row %d: got (%d,%d,%v), want (%d,%d,%v)", tc.row, start, end, ok, tc.start, tc.end, tc.ok)
		}
	}
}
