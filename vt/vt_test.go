package vt

import "testing"

func TestProcessPrintableText(t *testing.T) {
	m := New(10, 3)
	m.Process([]byte("hi"))

	if got := m.Grid.GetCell(0, 0).Char; got != 'h' {
		t.Fatalf("expected 'h', got %q", got)
	}
	if got := m.Grid.GetCell(1, 0).Char; got != 'i' {
		t.Fatalf("expected 'i', got %q", got)
	}
}

func TestProcessCursorPosition(t *testing.T) {
	m := New(10, 5)
	m.Process([]byte("\x1b[3;4H"))

	col, row := m.Grid.GetCursor()
	if col != 3 || row != 2 {
		t.Fatalf("expected CUP to set col=3 row=2, got col=%d row=%d", col, row)
	}
}

func TestProcessSGRColorReset(t *testing.T) {
	m := New(10, 3)
	m.Process([]byte("\x1b[31mred\x1b[0mplain"))

	red := m.Grid.GetCell(0, 0)
	if red.Fg.Type != 1 { // ColorIndexed
		t.Fatalf("expected indexed fg color, got %+v", red.Fg)
	}
	plain := m.Grid.GetCell(3, 0)
	if plain.Fg.Type != 0 { // ColorDefault
		t.Fatalf("expected default fg after reset, got %+v", plain.Fg)
	}
}

func TestProcessWideCharacterOccupiesTwoCells(t *testing.T) {
	m := New(10, 1)
	m.Process([]byte("中"))

	first := m.Grid.GetCell(0, 0)
	second := m.Grid.GetCell(1, 0)
	if !first.Wide {
		t.Fatal("expected first cell to be marked wide")
	}
	if second.Flags&(1<<7) == 0 { // FlagWideContinuation
		t.Fatal("expected second cell to carry the wide-continuation flag")
	}
}

func TestOSC8HyperlinkAssignsAndClearsID(t *testing.T) {
	m := New(20, 1)
	m.Process([]byte("\x1b]8;;https://example.com\x1b\\link\x1b]8;;\x1b\\plain"))

	linked := m.Grid.GetCell(0, 0)
	if linked.HyperlinkID == 0 {
		t.Fatal("expected non-zero hyperlink id inside the OSC8 run")
	}
	uri, ok := m.HyperlinkURI(linked.HyperlinkID)
	if !ok || uri != "https://example.com" {
		t.Fatalf("expected resolved URI, got %q ok=%v", uri, ok)
	}

	plain := m.Grid.GetCell(4, 0)
	if plain.HyperlinkID != 0 {
		t.Fatal("expected hyperlink id cleared after closing OSC8 run")
	}
}

func TestOSC7WorkingDirectory(t *testing.T) {
	m := New(10, 1)
	m.Process([]byte("\x1b]7;file:///home/user/project\x1b\\"))

	if got := m.WorkingDir(); got != "/home/user/project" {
		t.Fatalf("expected working dir parsed from OSC7, got %q", got)
	}
}

func TestDSRCursorPositionReport(t *testing.T) {
	m := New(80, 24)
	var response []byte
	m.SetResponseWriter(func(b []byte) { response = b })

	m.Process([]byte("\x1b[5;10H\x1b[6n"))

	want := "\x1b[5;10R"
	if string(response) != want {
		t.Fatalf("expected DSR response %q, got %q", want, response)
	}
}

func TestAlternateScreenRestoresMainGrid(t *testing.T) {
	m := New(10, 2)
	m.Process([]byte("main"))
	m.Process([]byte("\x1b[?1049h"))
	m.Process([]byte("alt"))
	m.Process([]byte("\x1b[?1049l"))

	if got := m.Grid.GetCell(0, 0).Char; got != 'm' {
		t.Fatalf("expected main screen content restored, got %q", got)
	}
}
