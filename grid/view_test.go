package grid

import "testing"

func TestViewRowHashStableAcrossIdenticalRows(t *testing.T) {
	g := New(10, 3)
	g.WriteChar('h', DefaultFg(), DefaultBg(), 0, false, 0)
	g.WriteChar('i', DefaultFg(), DefaultBg(), 0, false, 0)

	v1 := g.View()
	v2 := g.View()

	if v1.RowHash(0) != v2.RowHash(0) {
		t.Fatalf("identical content produced different hashes: %d vs %d", v1.RowHash(0), v2.RowHash(0))
	}
	if v1.RowHash(0) == v1.RowHash(1) {
		t.Fatalf("row 0 (non-empty) and row 1 (empty) should differ, but hashed equal")
	}
}

func TestViewRowHashChangesOnMutation(t *testing.T) {
	g := New(10, 3)
	before := g.View().RowHash(0)

	g.WriteChar('x', DefaultFg(), DefaultBg(), 0, false, 0)
	after := g.View().RowHash(0)

	if before == after {
		t.Fatal("expected row hash to change after writing a character")
	}
}

func TestViewIsImmutableAfterMutation(t *testing.T) {
	g := New(5, 2)
	g.WriteChar('a', DefaultFg(), DefaultBg(), 0, false, 0)
	v := g.View()

	g.WriteChar('b', DefaultFg(), DefaultBg(), 0, false, 0)

	if got := v.Cell(1, 0).Char; got != 0 && got != ' ' {
		t.Fatalf("snapshot should not observe cursor-advance write, got %q", got)
	}
	if got := v.Cell(0, 0).Char; got != 'a' {
		t.Fatalf("expected snapshot to retain original cell, got %q", got)
	}
}

func TestViewCloneSharesSnapshot(t *testing.T) {
	g := New(5, 2)
	g.WriteChar('z', DefaultFg(), DefaultBg(), 0, false, 0)
	v := g.View()
	clone := v.Clone()

	if clone.RowHash(0) != v.RowHash(0) {
		t.Fatal("clone should observe the same row hash as the original view")
	}
}

func TestViewWideCellContinuation(t *testing.T) {
	g := New(5, 1)
	g.WriteChar('中', DefaultFg(), DefaultBg(), 0, true, 0)
	g.WriteContinuation(DefaultFg(), DefaultBg(), 0)

	v := g.View()
	if !v.Cell(0, 0).Wide {
		t.Fatal("expected first cell to be marked wide")
	}
	if v.Cell(1, 0).Flags&FlagWideContinuation == 0 {
		t.Fatal("expected second cell to carry the wide-continuation flag")
	}
}
