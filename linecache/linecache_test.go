package linecache

import "testing"

func TestLayoutMissThenHit(t *testing.T) {
	c := New(4, 2)
	if _, ok := c.Layout(1); ok {
		t.Fatal("expected miss on empty cache")
	}

	layout := GlyphLayout{Cols: 3, Glyphs: []PositionedGlyph{{Rune: 'a', X: 0}}}
	c.InsertLayout(1, layout)

	got, ok := c.Layout(1)
	if !ok {
		t.Fatal("expected hit after insert")
	}
	if got.Cols != 3 || len(got.Glyphs) != 1 {
		t.Fatalf("unexpected layout %+v", got)
	}
}

func TestOuterEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2, 2)
	c.InsertLayout(1, GlyphLayout{Cols: 1})
	c.InsertLayout(2, GlyphLayout{Cols: 2})

	// Touch 1 so it is more recently used than 2.
	if _, ok := c.Layout(1); !ok {
		t.Fatal("expected hit on 1")
	}

	c.InsertLayout(3, GlyphLayout{Cols: 3})

	if c.LayoutCount() != 2 {
		t.Fatalf("expected exactly 2 layouts retained, got %d", c.LayoutCount())
	}
	if _, ok := c.Layout(2); ok {
		t.Fatal("expected the least-recently-used layout (2) to have been evicted")
	}
	if _, ok := c.Layout(1); !ok {
		t.Fatal("expected the recently-touched layout (1) to survive eviction")
	}
	if _, ok := c.Layout(3); !ok {
		t.Fatal("expected the newly inserted layout (3) to survive")
	}
}

func TestCompositionRequiresExistingLayout(t *testing.T) {
	c := New(4, 2)
	c.InsertComposition(1, 100, "image-a")
	if _, ok := c.Composition(1, 100); ok {
		t.Fatal("expected InsertComposition to no-op without a layout for textHash 1")
	}

	c.InsertLayout(1, GlyphLayout{Cols: 3})
	c.InsertComposition(1, 100, "image-a")

	got, ok := c.Composition(1, 100)
	if !ok {
		t.Fatal("expected a hit after inserting both layout and composition")
	}
	if got != "image-a" {
		t.Fatalf("got %v, want image-a", got)
	}
}

func TestInnerEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(4, 2)
	c.InsertLayout(1, GlyphLayout{Cols: 3})
	c.InsertComposition(1, 10, "a")
	c.InsertComposition(1, 20, "b")

	if _, ok := c.Composition(1, 10); !ok {
		t.Fatal("expected hit on state 10")
	}

	c.InsertComposition(1, 30, "c")

	if c.CompositionCount(1) != 2 {
		t.Fatalf("expected 2 compositions retained, got %d", c.CompositionCount(1))
	}
	if _, ok := c.Composition(1, 20); ok {
		t.Fatal("expected the least-recently-used composition (state 20) to have been evicted")
	}
	if _, ok := c.Composition(1, 10); !ok {
		t.Fatal("expected the recently-touched composition (state 10) to survive")
	}
	if _, ok := c.Composition(1, 30); !ok {
		t.Fatal("expected the newly inserted composition (state 30) to survive")
	}
}

func TestClearEmptiesBothLevels(t *testing.T) {
	c := New(4, 2)
	c.InsertLayout(1, GlyphLayout{Cols: 3})
	c.InsertComposition(1, 10, "a")

	c.Clear()

	if c.LayoutCount() != 0 {
		t.Fatalf("expected 0 layouts after Clear, got %d", c.LayoutCount())
	}
	if _, ok := c.Layout(1); ok {
		t.Fatal("expected Clear to drop the previously cached layout")
	}
}

func TestRepeatedInsertSameKeyDoesNotDuplicate(t *testing.T) {
	c := New(4, 4)
	c.InsertLayout(1, GlyphLayout{Cols: 3})
	c.InsertLayout(1, GlyphLayout{Cols: 5})

	if c.LayoutCount() != 1 {
		t.Fatalf("expected re-inserting the same textHash to update in place, got %d entries", c.LayoutCount())
	}
	got, ok := c.Layout(1)
	if !ok || got.Cols != 5 {
		t.Fatalf("expected updated layout with Cols=5, got %+v ok=%v", got, ok)
	}
}
