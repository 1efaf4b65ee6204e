package grid

// CellAtAbsolute returns the cell at an absolute row: 0 is the oldest
// retained scrollback line, and HistorySize()+r is the live screen row r,
// independent of the current DisplayOffset. This is the addressing scheme
// units.GridPoint's Absolute frame assumes, and the one SelectionView and
// SearchView matches are expressed in.
func (g *Grid) CellAtAbsolute(absRow, col int) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if absRow < 0 || col < 0 || col >= g.Cols {
		return NewCell()
	}
	if absRow < len(g.scrollback) {
		row := g.scrollback[absRow]
		if col >= len(row) {
			return NewCell()
		}
		return row[col]
	}
	gridRow := absRow - len(g.scrollback)
	if gridRow >= g.Rows {
		return NewCell()
	}
	return g.cells[g.index(col, gridRow)]
}

// AbsoluteRowCount returns the number of addressable absolute rows:
// retained scrollback plus the live screen.
func (g *Grid) AbsoluteRowCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.scrollback) + g.Rows
}
