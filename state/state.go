// Package state holds the small, cheap-to-clone view types that make up a
// TerminalState snapshot: cursor, selection, search, hyperlink hover, and
// IME preedit. None of these types hold a lock or a pointer into mutable
// terminal state; they are plain values safe to copy across goroutines.
package state

import (
	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/units"
)

// CursorShape is the visual shape the cursor is drawn with.
type CursorShape uint8

const (
	CursorBlock CursorShape = iota
	CursorBeam
	CursorUnderline
	CursorHidden
)

// CursorView is the renderable cursor: an absolute grid position, a shape,
// and a color. Visibility is shape != CursorHidden.
type CursorView struct {
	Position units.GridPoint // Frame == units.Absolute
	Shape    CursorShape
	Color    grid.Color
}

// Visible reports whether the cursor should be painted at all.
func (c CursorView) Visible() bool { return c.Shape != CursorHidden }

// SelectionType distinguishes the three selection shapes the renderer
// needs to paint differently.
type SelectionType uint8

const (
	SelectionSimple SelectionType = iota // contiguous text run, row-major
	SelectionBlock                       // rectangular column range
	SelectionLines                       // whole-line selection
)

// SelectionView is a normalized selection: Start is always <= End in
// row-major order regardless of which endpoint the user dragged from.
type SelectionView struct {
	Start units.GridPoint // Frame == units.Absolute
	End   units.GridPoint // Frame == units.Absolute
	Type  SelectionType
}

// NewSelectionView builds a SelectionView from two arbitrarily-ordered
// absolute endpoints, normalizing them into row-major order.
func NewSelectionView(a, b units.GridPoint, typ SelectionType) SelectionView {
	start, end := a, b
	if end.Line < start.Line || (end.Line == start.Line && end.Col < start.Col) {
		start, end = end, start
	}
	return SelectionView{Start: start, End: end, Type: typ}
}

// MatchRange is a single search hit, as an absolute span whose End column
// is inclusive.
type MatchRange struct {
	Start units.GridPoint
	End   units.GridPoint
}

// SearchView is the current search session's match list and which match
// is focused, for highlight rendering.
type SearchView struct {
	Matches      []MatchRange
	CurrentIndex int // index into Matches; -1 if no current match
}

// HyperlinkHoverView describes the hyperlink span currently under the
// pointer, if any.
type HyperlinkHoverView struct {
	Start units.GridPoint
	End   units.GridPoint
	URI   string
}

// ImeView is the in-progress IME composition string shown inline at the
// cursor, plus where within it the caret sits.
type ImeView struct {
	Preedit        string
	CaretOffset    int // offset into Preedit, in characters (not bytes)
	CaretDisplayCol int // precomputed display-column offset (wide-char aware)
}

// TerminalState is the full read-only snapshot a renderer consumes for one
// frame: a GridView plus the small cursor/selection/search/hyperlink/IME
// values. Every field is either reference-counted (GridView) or trivially
// copyable, so TerminalState itself is cheap to clone and safe to hand to
// another goroutine.
type TerminalState struct {
	Grid            grid.GridView
	Cursor          CursorView
	Selection       *SelectionView      // nil if nothing selected
	Search          *SearchView         // nil if no active search
	HyperlinkHover  *HyperlinkHoverView // nil if pointer isn't over a link
	IME             *ImeView            // nil if no composition in progress
}
