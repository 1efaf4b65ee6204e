package hostbridge

import (
	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
)

// Cursor is the wire form of a cursor position, in screen coordinates.
type Cursor struct {
	Col     int  `json:"col"`
	Row     int  `json:"row"`
	Visible bool `json:"visible"`
}

// Snapshot is one JSON frame on the debug stream: the visible screen as
// plain text rows plus the cursor and scroll bookkeeping.
type Snapshot struct {
	TerminalID    uint64   `json:"terminal_id"`
	Cols          int      `json:"cols"`
	Lines         int      `json:"lines"`
	HistorySize   int      `json:"history_size"`
	DisplayOffset int      `json:"display_offset"`
	Cursor        Cursor   `json:"cursor"`
	Rows          []string `json:"rows"`

	// ContentHash digests the visible rows so the stream can skip frames
	// where nothing changed. Not serialized.
	ContentHash uint64 `json:"-"`
}

// EncodeSnapshot flattens a TerminalState into its wire form. Wide-char
// continuation cells are dropped and trailing blanks trimmed, so a row
// reads the way the selection text path would report it.
func EncodeSnapshot(id terminal.ID, ts state.TerminalState) Snapshot {
	g := ts.Grid
	rows := make([]string, g.Lines())

	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	hash := uint64(offset64)

	for row := 0; row < g.Lines(); row++ {
		var runes []rune
		for _, cell := range g.Row(row) {
			if cell.Flags&grid.FlagWideContinuation != 0 {
				continue
			}
			ch := cell.Char
			if ch == 0 {
				ch = ' '
			}
			runes = append(runes, ch)
		}
		end := len(runes)
		for end > 0 && runes[end-1] == ' ' {
			end--
		}
		rows[row] = string(runes[:end])

		h := g.RowHash(row)
		hash = (hash ^ h) * prime64
	}

	screen := ts.Cursor.Position.ToScreen(g.HistorySize(), g.DisplayOffset())
	hash = (hash ^ uint64(uint32(screen.Col))) * prime64
	hash = (hash ^ uint64(uint32(screen.Line))) * prime64

	return Snapshot{
		TerminalID:    uint64(id),
		Cols:          g.Cols(),
		Lines:         g.Lines(),
		HistorySize:   g.HistorySize(),
		DisplayOffset: g.DisplayOffset(),
		Cursor: Cursor{
			Col:     screen.Col,
			Row:     screen.Line,
			Visible: ts.Cursor.Visible(),
		},
		Rows:        rows,
		ContentHash: hash,
	}
}
