// Package glyphatlas implements the shared glyph atlas: fixed-size
// pages that a rasterizer call packs glyphs into, returning a
// (page_index, uv_rect) pair. Pages are never resized; a full page simply
// causes a new one to be appended. There is no eviction in V1 — the
// working set for a terminal font is small enough that eviction would add
// complexity disproportionate to what it saves.
package glyphatlas

import (
	"fmt"
	"image"
	"image/draw"
	"sync"
)

// RenderMode distinguishes how a glyph's mask was produced. Color is
// applied at composition, never at rasterization, so a single mask per key
// serves every foreground color a theme might ask for.
type RenderMode uint8

const (
	// Alpha masks are anti-aliased grayscale coverage, used for font glyphs
	// and for the geometrically-drawn special ranges alike.
	Alpha RenderMode = iota
)

// Key identifies one rasterized glyph. GlyphID is the rune being drawn,
// for font glyphs and the rasterizer package's geometric shapes alike;
// SubpixelBucket lets the caller quantize fractional pen positions
// into a handful of pre-rendered offsets instead of rasterizing once per
// unique fractional position.
type Key struct {
	FontID         uint32
	GlyphID        rune
	SubpixelBucket uint8
	Mode           RenderMode
}

// UVRect is a glyph's location within its page, normalized to [0,1].
type UVRect struct {
	U0, V0, U1, V1 float32
}

// Location is what a successful Lookup returns: which page the glyph lives
// on, its normalized UV rect, and its size in pixels (needed to size the
// quad the rasterizer draws it into).
type Location struct {
	Page                    int
	UV                      UVRect
	PixelWidth, PixelHeight int
}

// RasterizeFunc rasterizes a glyph into a tightly-cropped 8-bit alpha mask.
type RasterizeFunc func(Key) (*image.Alpha, error)

// Atlas is the glyph atlas for one font configuration. Concurrency: a hit
// only takes the read lock over the mapping; a miss takes the write lock
// for the whole rasterize-and-place-and-insert, so any lookup arriving
// meanwhile waits until that rasterization has finished.
type Atlas struct {
	pageSize  int
	rasterize RasterizeFunc

	mu        sync.RWMutex
	pages     []*page
	locations map[Key]Location
}

type page struct {
	size                int
	img                 *image.Alpha
	nextX, nextY        int
	shelfHeight         int
}

func newPage(size int) *page {
	return &page{size: size, img: image.NewAlpha(image.Rect(0, 0, size, size))}
}

// allocate reserves a w×h box on the page's current packing shelf,
// wrapping to a new shelf when the current row is full. Returns ok==false
// once the page has no room left, which the atlas treats as "append a new
// page and retry there".
func (p *page) allocate(w, h int) (x, y int, ok bool) {
	if p.nextX+w > p.size {
		p.nextX = 0
		p.nextY += p.shelfHeight
		p.shelfHeight = 0
	}
	if p.nextY+h > p.size {
		return 0, 0, false
	}
	x, y = p.nextX, p.nextY
	p.nextX += w
	if h > p.shelfHeight {
		p.shelfHeight = h
	}
	return x, y, true
}

// New constructs an atlas whose pages are pageSize×pageSize pixels,
// rasterizing misses through fn.
func New(pageSize int, fn RasterizeFunc) *Atlas {
	return &Atlas{
		pageSize:  pageSize,
		rasterize: fn,
		locations: make(map[Key]Location),
	}
}

// Lookup returns key's atlas location, rasterizing and placing it on first
// sighting.
func (a *Atlas) Lookup(key Key) (Location, error) {
	a.mu.RLock()
	loc, ok := a.locations[key]
	a.mu.RUnlock()
	if ok {
		return loc, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if loc, ok := a.locations[key]; ok {
		return loc, nil
	}

	mask, err := a.rasterize(key)
	if err != nil {
		return Location{}, fmt.Errorf("glyphatlas: rasterize %+v: %w", key, err)
	}

	w, h := mask.Bounds().Dx(), mask.Bounds().Dy()
	pageIdx, x, y := a.place(w, h)
	pg := a.pages[pageIdx]
	draw.Draw(pg.img, image.Rect(x, y, x+w, y+h), mask, mask.Bounds().Min, draw.Src)

	loc = Location{
		Page: pageIdx,
		UV: UVRect{
			U0: float32(x) / float32(a.pageSize),
			V0: float32(y) / float32(a.pageSize),
			U1: float32(x+w) / float32(a.pageSize),
			V1: float32(y+h) / float32(a.pageSize),
		},
		PixelWidth:  w,
		PixelHeight: h,
	}
	a.locations[key] = loc
	return loc, nil
}

// place finds room for a w×h glyph on an existing page, appending a new
// page if none has space. A glyph larger than a whole page is not
// rejected: one wider than a page starts a new shelf, one taller than a
// page is drawn at a freshly appended page's corner without reserving that
// space, and whatever extends past the page edge is cut off in the copy.
func (a *Atlas) place(w, h int) (pageIdx, x, y int) {
	for i, pg := range a.pages {
		if px, py, ok := pg.allocate(w, h); ok {
			return i, px, py
		}
	}
	pg := newPage(a.pageSize)
	px, py, _ := pg.allocate(w, h)
	a.pages = append(a.pages, pg)
	return len(a.pages) - 1, px, py
}

// PageImage returns page i's backing alpha image for upload to a texture.
// The returned image must not be mutated by the caller.
func (a *Atlas) PageImage(i int) *image.Alpha {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pages[i].img
}

// PageCount returns how many pages have been allocated so far.
func (a *Atlas) PageCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pages)
}
