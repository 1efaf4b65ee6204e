package glyphatlas

import (
	"errors"
	"image"
	"sync"
	"testing"
)

var errFake = errors.New("glyphatlas: fake rasterize failure")

func solidMask(w, h int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = 0xFF
	}
	return m
}

func TestLookupRasterizesOnceAndCaches(t *testing.T) {
	var calls int
	var mu sync.Mutex
	a := New(64, func(key Key) (*image.Alpha, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return solidMask(8, 12), nil
	})

	key := Key{FontID: 1, GlyphID: 'a'}
	loc1, err := a.Lookup(key)
	if err != nil {
		t.Fatalf("first lookup: %v", err)
	}
	loc2, err := a.Lookup(key)
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if loc1 != loc2 {
		t.Fatalf("expected repeated lookups of the same key to return the same location, got %+v and %+v", loc1, loc2)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one rasterize call, got %d", calls)
	}
	if loc1.PixelWidth != 8 || loc1.PixelHeight != 12 {
		t.Fatalf("unexpected glyph size %dx%d", loc1.PixelWidth, loc1.PixelHeight)
	}
}

func TestDistinctKeysGetDistinctLocations(t *testing.T) {
	a := New(64, func(key Key) (*image.Alpha, error) {
		return solidMask(8, 8), nil
	})

	locA, err := a.Lookup(Key{FontID: 1, GlyphID: 'a'})
	if err != nil {
		t.Fatalf("lookup a: %v", err)
	}
	locB, err := a.Lookup(Key{FontID: 1, GlyphID: 'b'})
	if err != nil {
		t.Fatalf("lookup b: %v", err)
	}
	if locA.UV == locB.UV {
		t.Fatal("expected distinct glyphs to be placed at distinct uv rects")
	}
	if a.PageCount() != 1 {
		t.Fatalf("expected both glyphs to fit on one page, got %d pages", a.PageCount())
	}
}

func TestOverflowingPageAppendsNewPage(t *testing.T) {
	a := New(16, func(key Key) (*image.Alpha, error) {
		return solidMask(16, 16), nil
	})

	if _, err := a.Lookup(Key{FontID: 1, GlyphID: 'a'}); err != nil {
		t.Fatalf("lookup a: %v", err)
	}
	if _, err := a.Lookup(Key{FontID: 1, GlyphID: 'b'}); err != nil {
		t.Fatalf("lookup b: %v", err)
	}
	if a.PageCount() != 2 {
		t.Fatalf("expected a full 16x16 page to force a second page, got %d pages", a.PageCount())
	}
}

func TestRasterizeErrorIsWrapped(t *testing.T) {
	a := New(64, func(key Key) (*image.Alpha, error) {
		return nil, errFake
	})
	if _, err := a.Lookup(Key{FontID: 1, GlyphID: 'a'}); err == nil {
		t.Fatal("expected Lookup to surface a rasterize error")
	}
}
