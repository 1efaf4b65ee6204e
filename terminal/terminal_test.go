package terminal

import (
	"testing"

	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/units"
	"github.com/raventerm/termengine/vt"
)

func newTestTerminal(cols, rows int) *Terminal {
	return &Terminal{
		ID:          NextID(),
		vm:          vt.New(cols, rows),
		cursorShape: state.CursorBlock,
		shutdown:    make(chan struct{}),
	}
}

func TestFinalizeSelectionElidesWhitespace(t *testing.T) {
	term := newTestTerminal(10, 3)
	term.vm.Process([]byte("   "))

	term.SetSelection(units.AbsolutePoint(0, 0), units.AbsolutePoint(0, 2), state.SelectionSimple)
	text, ok := term.FinalizeSelection()
	if ok {
		t.Fatalf("expected whitespace-only selection to finalize to none, got %q", text)
	}
	if _, stillSet := term.SelectionText(); stillSet {
		t.Fatal("expected selection to be cleared after finalizing an all-whitespace run")
	}
}

func TestFinalizeSelectionKeepsNonWhitespace(t *testing.T) {
	term := newTestTerminal(10, 3)
	term.vm.Process([]byte("hi "))

	term.SetSelection(units.AbsolutePoint(0, 0), units.AbsolutePoint(0, 2), state.SelectionSimple)
	text, ok := term.FinalizeSelection()
	if !ok {
		t.Fatal("expected selection containing non-whitespace to finalize")
	}
	if text != "hi" {
		t.Fatalf("expected trailing space trimmed, got %q", text)
	}
}

func TestGetHyperlinkAtRunBounds(t *testing.T) {
	term := newTestTerminal(20, 1)
	term.vm.Process([]byte("\x1b]8;;https://example.com\x1b\\link\x1b]8;;\x1b\\ plain"))

	start, end, uri, ok := term.GetHyperlinkAt(0, 1)
	if !ok {
		t.Fatal("expected hyperlink hit inside the linked run")
	}
	if start != 0 || end != 3 {
		t.Fatalf("expected run bounds [0,3], got [%d,%d]", start, end)
	}
	if uri != "https://example.com" {
		t.Fatalf("unexpected uri %q", uri)
	}

	if _, _, _, ok := term.GetHyperlinkAt(0, 5); ok {
		t.Fatal("expected no hyperlink hit outside the linked run")
	}
}

func TestSetIMEPreeditEmptyClears(t *testing.T) {
	term := newTestTerminal(10, 3)
	term.SetIMEPreedit("hello", 2)
	if term.ime == nil {
		t.Fatal("expected ime view to be set")
	}

	term.SetIMEPreedit("", 0)
	if term.ime != nil {
		t.Fatal("expected empty preedit to clear the ime view")
	}
}
