// Package linecache implements the LineCache: a two-level hash
// cache in front of text shaping and row rasterization. The outer level
// maps a row's text_hash to its GlyphLayout; bounded by max_layouts. Each
// outer entry owns its own inner level mapping state_hash (selection,
// search, hover, IME, cursor, theme — everything row-local) to a composed
// row image; bounded by max_compositions_per_layout. Both levels are plain
// LRUs built on container/list, the way groupcache-style LRUs in the Go
// ecosystem are built. There is no eviction policy beyond least recently
// used, tunable separately per level.
package linecache

import (
	"container/list"
	"sync"
)

// PositionedGlyph is one shaped glyph within a row: which glyph, from which
// font, at what pen offset, and whether it occupies two cells.
type PositionedGlyph struct {
	Rune   rune
	X      int
	FontID uint32
	Wide   bool
}

// GlyphLayout is the result of shaping one row's text: font selection,
// per-glyph pen positions, already resolved. It depends only on the row's
// text_hash (column count, rune content, style attribute bytes) — nothing
// about selection, cursor, or theme belongs here.
type GlyphLayout struct {
	Cols   int
	Glyphs []PositionedGlyph
}

type innerEntry struct {
	key   uint64
	image any
}

type outerValue struct {
	key        uint64
	layout     GlyphLayout
	innerList  *list.List
	innerIndex map[uint64]*list.Element
}

// LineCache is safe for concurrent use; only the render thread touches it
// in practice, but the lock costs nothing on the uncontended
// path and keeps the type honest about its own concurrency contract.
type LineCache struct {
	mu sync.Mutex

	maxLayouts int
	maxInner   int

	outerList  *list.List
	outerIndex map[uint64]*list.Element
}

// New constructs a cache bounded by maxLayouts outer entries and
// maxCompositionsPerLayout inner entries per layout. A non-positive bound
// means unbounded at that level.
func New(maxLayouts, maxCompositionsPerLayout int) *LineCache {
	return &LineCache{
		maxLayouts: maxLayouts,
		maxInner:   maxCompositionsPerLayout,
		outerList:  list.New(),
		outerIndex: make(map[uint64]*list.Element),
	}
}

// Layout returns the cached layout for textHash, promoting it to
// most-recently-used. ok is false on a miss.
func (c *LineCache) Layout(textHash uint64) (GlyphLayout, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.outerIndex[textHash]
	if !ok {
		return GlyphLayout{}, false
	}
	c.outerList.MoveToFront(elem)
	return elem.Value.(*outerValue).layout, true
}

// InsertLayout installs a freshly shaped layout for textHash, evicting the
// least-recently-used outer entry if the cache is now over capacity.
func (c *LineCache) InsertLayout(textHash uint64, layout GlyphLayout) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.outerIndex[textHash]; ok {
		elem.Value.(*outerValue).layout = layout
		c.outerList.MoveToFront(elem)
		return
	}

	ov := &outerValue{
		key:        textHash,
		layout:     layout,
		innerList:  list.New(),
		innerIndex: make(map[uint64]*list.Element),
	}
	elem := c.outerList.PushFront(ov)
	c.outerIndex[textHash] = elem

	if c.maxLayouts > 0 && c.outerList.Len() > c.maxLayouts {
		c.evictOuterLocked()
	}
}

func (c *LineCache) evictOuterLocked() {
	back := c.outerList.Back()
	if back == nil {
		return
	}
	ov := back.Value.(*outerValue)
	delete(c.outerIndex, ov.key)
	c.outerList.Remove(back)
}

// Composition returns the cached composed row image for (textHash,
// stateHash), promoting both the outer layout and the inner composition to
// most-recently-used.
func (c *LineCache) Composition(textHash, stateHash uint64) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outerElem, ok := c.outerIndex[textHash]
	if !ok {
		return nil, false
	}
	c.outerList.MoveToFront(outerElem)
	ov := outerElem.Value.(*outerValue)

	innerElem, ok := ov.innerIndex[stateHash]
	if !ok {
		return nil, false
	}
	ov.innerList.MoveToFront(innerElem)
	return innerElem.Value.(*innerEntry).image, true
}

// InsertComposition installs a freshly rasterized row image under
// (textHash, stateHash). It is a no-op if textHash has no layout yet — a
// composition can only exist once its layout has been shaped and inserted.
func (c *LineCache) InsertComposition(textHash, stateHash uint64, image any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outerElem, ok := c.outerIndex[textHash]
	if !ok {
		return
	}
	c.outerList.MoveToFront(outerElem)
	ov := outerElem.Value.(*outerValue)

	if innerElem, ok := ov.innerIndex[stateHash]; ok {
		innerElem.Value.(*innerEntry).image = image
		ov.innerList.MoveToFront(innerElem)
		return
	}

	entry := &innerEntry{key: stateHash, image: image}
	innerElem := ov.innerList.PushFront(entry)
	ov.innerIndex[stateHash] = innerElem

	if c.maxInner > 0 && ov.innerList.Len() > c.maxInner {
		back := ov.innerList.Back()
		if back != nil {
			delete(ov.innerIndex, back.Value.(*innerEntry).key)
			ov.innerList.Remove(back)
		}
	}
}

// Clear empties the whole cache. A grid resize (column count and cell
// width invalidate every layout) or a theme/font change calls this.
func (c *LineCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outerList = list.New()
	c.outerIndex = make(map[uint64]*list.Element)
}

// LayoutCount returns the number of cached layouts (outer entries).
func (c *LineCache) LayoutCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outerList.Len()
}

// CompositionCount returns the number of cached compositions under
// textHash, or 0 if textHash has no layout.
func (c *LineCache) CompositionCount(textHash uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.outerIndex[textHash]
	if !ok {
		return 0
	}
	return elem.Value.(*outerValue).innerList.Len()
}
