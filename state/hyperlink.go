package state

// ColumnRangeOnLine returns the [startCol, endCol) hover span this hover
// view covers on a given absolute row: Start.Col on the first row, End.Col
// on the last, 0 and maxCol otherwise. Columns are not clamped. ok is false
// if the row falls outside [Start.Line, End.Line].
//
// Scenario: hover from (10,5) to (12,15) with maxCol=80 gives (10)=(5,80),
// (11)=(0,80), (12)=(0,15); rows 9 and 13 report ok=false.
func (h HyperlinkHoverView) ColumnRangeOnLine(absRow, maxCol int) (startCol, endCol int, ok bool) {
	if absRow < h.Start.Line || absRow > h.End.Line {
		return 0, 0, false
	}

	startCol, endCol = 0, maxCol
	if absRow == h.Start.Line {
		startCol = h.Start.Col
	}
	if absRow == h.End.Line {
		endCol = h.End.Col
	}
	return startCol, endCol, true
}
