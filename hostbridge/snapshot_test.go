package hostbridge

import (
	"testing"

	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
	"github.com/raventerm/termengine/units"
)

func testState(lines []string, cols, rows int) state.TerminalState {
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
		},
	}
}

func TestEncodeSnapshotRows(t *testing.T) {
	ts := testState([]string{"hello", "wo你ld"}, 20, 3)
	snap := EncodeSnapshot(terminal.ID(7), ts)

	if snap.TerminalID != 7 || snap.Cols != 20 || snap.Lines != 3 {
		t.Fatalf("unexpected header: %+v", snap)
	}
	if snap.Rows[0] != "hello" {
		t.Errorf("row 0 = %q, want %q", snap.Rows[0], "hello")
	}
	// The wide char's continuation cell must not leak into the text.
	if snap.Rows[1] != "wo你ld" {
		t.Errorf("row 1 = %q, want %q", snap.Rows[1], "wo你ld")
	}
	if snap.Rows[2] != "" {
		t.Errorf("empty row should encode as empty string, got %q", snap.Rows[2])
	}
	// "wo你ld" occupies 6 display columns, so the cursor parks at col 6.
	if snap.Cursor.Row != 1 || snap.Cursor.Col != 6 {
		t.Errorf("cursor = %+v, want row 1 col 6", snap.Cursor)
	}
}

func TestEncodeSnapshotContentHashTracksChanges(t *testing.T) {
	a := EncodeSnapshot(1, testState([]string{"same"}, 10, 2))
	b := EncodeSnapshot(1, testState([]string{"same"}, 10, 2))
	c := EncodeSnapshot(1, testState([]string{"diff"}, 10, 2))

	if a.ContentHash != b.ContentHash {
		t.Error("identical content produced different hashes")
	}
	if a.ContentHash == c.ContentHash {
		t.Error("different content produced identical hashes")
	}
}
