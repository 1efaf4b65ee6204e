package state

import (
	"testing"

	"github.com/raventerm/termengine/units"
)

func TestNewSelectionViewNormalizesOrder(t *testing.T) {
	a := units.AbsolutePoint(10, 5)
	b := units.AbsolutePoint(3, 1)

	sel := NewSelectionView(a, b, SelectionSimple)
	if sel.Start.Line != 3 || sel.End.Line != 10 {
		t.Fatalf("expected normalized order, got start=%d end=%d", sel.Start.Line, sel.End.Line)
	}
}

func TestNewSelectionViewSameRowOrdersByCol(t *testing.T) {
	a := units.AbsolutePoint(5, 20)
	b := units.AbsolutePoint(5, 2)

	sel := NewSelectionView(a, b, SelectionSimple)
	if sel.Start.Col != 2 || sel.End.Col != 20 {
		t.Fatalf("expected column order fixed on same row, got start=%d end=%d", sel.Start.Col, sel.End.Col)
	}
}

func TestNewSelectionViewAlreadyOrdered(t *testing.T) {
	a := units.AbsolutePoint(1, 1)
	b := units.AbsolutePoint(2, 1)

	sel := NewSelectionView(a, b, SelectionSimple)
	if sel.Start != a || sel.End != b {
		t.Fatal("expected already-ordered endpoints to pass through unchanged")
	}
}

func TestCursorViewVisible(t *testing.T) {
	visible := CursorView{Shape: CursorBlock}
	hidden := CursorView{Shape: CursorHidden}

	if !visible.Visible() {
		t.Fatal("expected block cursor to be visible")
	}
	if hidden.Visible() {
		t.Fatal("expected hidden cursor to report not visible")
	}
}

func TestNewImeViewCaretDisplayWidth(t *testing.T) {
	view := NewImeView("a中b", 2)
	// 'a' (width 1) + '中' (width 2) = 3 display columns before the caret.
	if view.CaretDisplayCol != 3 {
		t.Fatalf("expected display col 3, got %d", view.CaretDisplayCol)
	}
}

func TestNewImeViewClampsCaretOffset(t *testing.T) {
	view := NewImeView("ab", 99)
	if view.CaretOffset != 2 {
		t.Fatalf("expected caret offset clamped to rune length 2, got %d", view.CaretOffset)
	}
}
