// Package renderer implements the engine's per-frame assembly: for each
// visible row of a dirty terminal it computes the two cache keys, consults
// the line cache, and only shapes and rasterizes on a miss. The composed
// rows are blitted into a per-terminal surface, and Present composites
// every terminal's surface into the window drawable at its layout rect.
package renderer

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"log"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/raventerm/termengine/compositor"
	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/glyphatlas"
	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/linecache"
	"github.com/raventerm/termengine/pool"
	"github.com/raventerm/termengine/rasterizer"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
)

// ErrSurfaceUnavailable is reported when the window drawable cannot accept
// a frame; the scheduler simply retries on the next tick.
var ErrSurfaceUnavailable = errors.New("renderer: surface unavailable")

// primaryFontID is the font handle the shaper assigns every glyph in V1;
// font fallback chains would allocate further ids.
const primaryFontID uint32 = 1

// Metrics is the cell geometry every layout and composition is built
// against. Changing either dimension invalidates the whole line cache.
type Metrics struct {
	CellWidth  int
	CellHeight int
}

// Stats counts the expensive operations a frame performed, so tests (and
// a curious host) can verify the caches are doing their job: an identical
// re-render must report zero shaper calls and zero rasterizations.
type Stats struct {
	ShaperCalls          uint64
	GlyphRasterizations  uint64
	RowsComposed         uint64
	CompositionCacheHits uint64
	FramesPresented      uint64
}

// Renderer assembles frames for every terminal in a pool. It implements
// pool.FrameRenderer. All durable state lives in the two caches; the
// per-frame walk itself is stateless.
type Renderer struct {
	mu sync.Mutex

	theme   Theme
	themeID uint64
	metrics Metrics

	shaper *Shaper
	cache  *linecache.LineCache
	atlas  *glyphatlas.Atlas
	face   *glyphatlas.FaceSet

	window Surface

	surfaces map[terminal.ID]*ImageSurface
	sizes    map[terminal.ID]image.Point
	layouts  map[terminal.ID]pool.Rect

	stats Stats
}

// New constructs a renderer from the pool configuration. window may be nil
// for headless operation, in which case composed frames stay on the
// per-terminal CPU surfaces. A missing or unreadable font falls back to
// replacement-box glyphs rather than failing pool creation: the engine
// must keep answering queries even when it cannot paint text.
func New(cfg config.PoolConfig, window Surface) *Renderer {
	r := &Renderer{
		theme:    ThemeByName(cfg.ThemeName),
		window:   window,
		surfaces: make(map[terminal.ID]*ImageSurface),
		sizes:    make(map[terminal.ID]image.Point),
		layouts:  make(map[terminal.ID]pool.Rect),
	}
	r.themeID = r.theme.ID()

	r.metrics = Metrics{CellWidth: 9, CellHeight: 18}
	if cfg.FontPath != "" {
		data, err := os.ReadFile(cfg.FontPath)
		if err != nil {
			log.Printf("[WARN] renderer: read font %s: %v", cfg.FontPath, err)
		} else if face, err := glyphatlas.NewFaceSet(primaryFontID, data, 16); err != nil {
			log.Printf("[WARN] renderer: load font %s: %v", cfg.FontPath, err)
		} else {
			r.face = face
			w, h := face.Metrics()
			r.metrics = Metrics{CellWidth: w, CellHeight: h}
		}
	}

	budget := cfg.Cache
	if budget.MaxLayouts == 0 && budget.MaxCompositionsPerLayout == 0 && budget.AtlasPageSize == 0 {
		budget = config.DefaultCacheBudget()
	}
	r.cache = linecache.New(budget.MaxLayouts, budget.MaxCompositionsPerLayout)
	r.atlas = glyphatlas.New(budget.AtlasPageSize, r.rasterizeGlyph)
	r.shaper = NewShaper(primaryFontID, r.metrics.CellWidth)
	return r
}

// rasterizeGlyph is the atlas's miss path. The geometric ranges bypass the
// font; everything else goes through the face, with a
// replacement box standing in when shaping fails or no font is loaded.
func (r *Renderer) rasterizeGlyph(key glyphatlas.Key) (*image.Alpha, error) {
	r.stats.GlyphRasterizations++

	cw, ch := r.metrics.CellWidth, r.metrics.CellHeight
	if mask, ok := rasterizer.DrawGeometric(key.GlyphID, cw, ch); ok {
		return mask, nil
	}
	if r.face != nil {
		mask, err := r.face.Rasterize(key)
		if err == nil {
			return mask, nil
		}
		log.Printf("[WARN] renderer: rasterize %q: %v", key.GlyphID, err)
	}
	return replacementMask(cw, ch), nil
}

// replacementMask draws the hollow box shown for glyphs the font cannot
// produce.
func replacementMask(w, h int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	x0, y0 := w/6, h/6
	x1, y1 := w-w/6, h-h/6
	for x := x0; x < x1; x++ {
		mask.SetAlpha(x, y0, colorAlphaOpaque)
		mask.SetAlpha(x, y1-1, colorAlphaOpaque)
	}
	for y := y0; y < y1; y++ {
		mask.SetAlpha(x0, y, colorAlphaOpaque)
		mask.SetAlpha(x1-1, y, colorAlphaOpaque)
	}
	return mask
}

// Metrics returns the current cell geometry.
func (r *Renderer) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.metrics
}

// Theme returns the active theme.
func (r *Renderer) Theme() Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.theme
}

// SetThemeByName switches themes and clears the line cache, since every
// cached composition bakes the old colors in. The caller is
// expected to mark the pool dirty afterwards.
func (r *Renderer) SetThemeByName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.theme = ThemeByName(name)
	r.themeID = r.theme.ID()
	r.cache.Clear()
}

// Stats returns a copy of the frame counters.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// ResetStats zeroes the frame counters.
func (r *Renderer) ResetStats() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = Stats{}
}

// SurfaceFor returns the per-terminal composed surface, for hosts that
// blit terminal output themselves instead of using the window compositor.
func (r *Renderer) SurfaceFor(id terminal.ID) (*ImageSurface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[id]
	return s, ok
}

// Forget drops a removed terminal's surface and layout.
func (r *Renderer) Forget(id terminal.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surfaces, id)
	delete(r.sizes, id)
	delete(r.layouts, id)
}

// RenderTerminal draws one terminal's snapshot into its per-terminal
// surface, walking rows through the two-level cache.
func (r *Renderer) RenderTerminal(id terminal.ID, snap state.TerminalState, layout pool.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cols, rows := snap.Grid.Cols(), snap.Grid.Lines()
	cw, ch := r.metrics.CellWidth, r.metrics.CellHeight

	size := image.Pt(cols*cw, rows*ch)
	surf, ok := r.surfaces[id]
	if !ok {
		surf = NewImageSurface(size.X, size.Y)
		r.surfaces[id] = surf
		r.sizes[id] = size
	} else if r.sizes[id] != size {
		// A resize changes the column count and therefore every layout's
		// key space; the whole cache goes.
		surf.Resize(size.X, size.Y)
		r.sizes[id] = size
		r.cache.Clear()
	}
	r.layouts[id] = layout

	for screenRow := 0; screenRow < rows; screenRow++ {
		textHash := TextHash(snap.Grid.RowHash(screenRow), cols)

		rowLayout, ok := r.cache.Layout(textHash)
		if !ok {
			rowLayout = r.shaper.ShapeRow(snap.Grid.Row(screenRow))
			r.stats.ShaperCalls++
			r.cache.InsertLayout(textHash, rowLayout)
		}

		stateHash := r.rowStateHash(snap, screenRow)

		var rowImg *image.RGBA
		if cached, ok := r.cache.Composition(textHash, stateHash); ok {
			rowImg = cached.(*image.RGBA)
			r.stats.CompositionCacheHits++
		} else {
			rowImg = r.composeRow(snap, screenRow, rowLayout)
			r.cache.InsertComposition(textHash, stateHash, rowImg)
			r.stats.RowsComposed++
		}

		surf.Blit(rowImg, 0, screenRow*ch)
	}
}

// Present composites every terminal surface into the window drawable at
// its layout rect, in stable id order, and pushes the frame.
func (r *Renderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.FramesPresented++
	if r.window == nil {
		return
	}

	ids := make([]terminal.ID, 0, len(r.surfaces))
	for id := range r.surfaces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	panes := make([]compositor.Pane, 0, len(ids))
	for _, id := range ids {
		rect := r.layouts[id]
		panes = append(panes, compositor.Pane{
			Src: r.surfaces[id].Image(),
			X:   int(math.Round(rect.X)),
			Y:   int(math.Round(rect.Y)),
		})
	}

	r.window.Fill(toNRGBA(r.theme.Background))
	compositor.Compose(r.window, panes)
	if err := r.window.Present(); err != nil {
		// The frame is dropped; the next tick retries.
		log.Printf("[WARN] renderer: present: %v", err)
	}
}

// --- row composition ---

// rowStateHash digests everything row-local that affects a row's pixels
// beyond its text: selection/search/hover spans intersecting the row, the
// cursor and IME overlay when the cursor sits on the row, and the theme.
// Cross-row state is deliberately excluded — that pruning is what keeps
// the inner cache's hit rate high.
func (r *Renderer) rowStateHash(snap state.TerminalState, screenRow int) uint64 {
	g := snap.Grid
	absRow := absRowOf(g, screenRow)
	cols := g.Cols()

	h := newHasher()
	h.mixUint64(r.themeID)

	if start, end, ok := selectionRangeOnRow(snap.Selection, absRow, cols); ok {
		h.mixInt(start)
		h.mixInt(end)
		h.mixByte(byte(snap.Selection.Type))
	} else {
		h.mixInt(-1)
	}

	if snap.Search != nil {
		for i, m := range snap.Search.Matches {
			if start, end, ok := matchRangeOnRow(m, absRow, cols); ok {
				h.mixInt(start)
				h.mixInt(end)
				h.mixBool(i == snap.Search.CurrentIndex)
			}
		}
	}

	if snap.HyperlinkHover != nil {
		if start, end, ok := snap.HyperlinkHover.ColumnRangeOnLine(absRow, cols); ok {
			h.mixInt(start)
			h.mixInt(end)
		}
	}

	cursorScreen := snap.Cursor.Position.ToScreen(g.HistorySize(), g.DisplayOffset())
	cursorOnRow := snap.Cursor.Visible() && cursorScreen.Line == screenRow
	h.mixBool(cursorOnRow)
	if cursorOnRow {
		h.mixInt(cursorScreen.Col)
		h.mixByte(byte(snap.Cursor.Shape))
		h.mixByte(snap.Cursor.Color.R)
		h.mixByte(snap.Cursor.Color.G)
		h.mixByte(snap.Cursor.Color.B)
		if snap.IME != nil {
			h.mixString(snap.IME.Preedit)
			h.mixInt(snap.IME.CaretDisplayCol)
		}
	}

	return uint64(h)
}

// selectionRangeOnRow returns the inclusive column span a selection covers
// on an absolute row.
func selectionRangeOnRow(sel *state.SelectionView, absRow, cols int) (start, end int, ok bool) {
	if sel == nil || absRow < sel.Start.Line || absRow > sel.End.Line {
		return 0, 0, false
	}
	switch sel.Type {
	case state.SelectionBlock:
		start, end = sel.Start.Col, sel.End.Col
		if end < start {
			start, end = end, start
		}
	case state.SelectionLines:
		start, end = 0, cols-1
	default:
		start, end = 0, cols-1
		if absRow == sel.Start.Line {
			start = sel.Start.Col
		}
		if absRow == sel.End.Line {
			end = sel.End.Col
		}
	}
	return start, end, true
}

// matchRangeOnRow returns the inclusive column span a search match covers
// on an absolute row.
func matchRangeOnRow(m state.MatchRange, absRow, cols int) (start, end int, ok bool) {
	if absRow < m.Start.Line || absRow > m.End.Line {
		return 0, 0, false
	}
	start, end = 0, cols-1
	if absRow == m.Start.Line {
		start = m.Start.Col
	}
	if absRow == m.End.Line {
		end = m.End.Col
	}
	return start, end, true
}

// composeRow rasterizes one row: backgrounds, overlay tints, glyphs via
// the atlas, text decorations, cursor, IME preedit. Pure in its inputs —
// equal (row content, row-local state, theme, font) always produce
// identical pixels, which is what makes the composition cacheable.
func (r *Renderer) composeRow(snap state.TerminalState, screenRow int, rowLayout linecache.GlyphLayout) *image.RGBA {
	g := snap.Grid
	cols := g.Cols()
	cw, ch := r.metrics.CellWidth, r.metrics.CellHeight
	absRow := absRowOf(g, screenRow)
	cells := g.Row(screenRow)

	img := image.NewRGBA(image.Rect(0, 0, cols*cw, ch))
	fillRect(img, img.Bounds(), toNRGBA(r.theme.Background))

	// Per-cell backgrounds.
	for col, cell := range cells {
		bg := r.theme.colorToRGBA(cell.Bg, true)
		if cell.Flags&grid.FlagInverse != 0 {
			bg = r.theme.colorToRGBA(cell.Fg, false)
		}
		if bg != r.theme.Background {
			fillRect(img, cellRect(col, cw, ch), toNRGBA(bg))
		}
	}

	// Selection tint.
	if start, end, ok := selectionRangeOnRow(snap.Selection, absRow, cols); ok {
		tintSpan(img, start, end, cw, ch, toNRGBA(r.theme.Selection))
	}

	// Search tints; the focused match gets the stronger color.
	if snap.Search != nil {
		for i, m := range snap.Search.Matches {
			if start, end, ok := matchRangeOnRow(m, absRow, cols); ok {
				c := r.theme.SearchMatch
				if i == snap.Search.CurrentIndex {
					c = r.theme.SearchCurrent
				}
				tintSpan(img, start, end, cw, ch, toNRGBA(c))
			}
		}
	}

	// Glyphs.
	for _, gl := range rowLayout.Glyphs {
		col := gl.X / cw
		if col < 0 || col >= cols {
			continue
		}
		cell := cells[col]
		if cell.Flags&grid.FlagHidden != 0 {
			continue
		}
		fg := r.theme.colorToRGBA(cell.Fg, false)
		if cell.Flags&grid.FlagInverse != 0 {
			fg = r.theme.colorToRGBA(cell.Bg, true)
		}
		if cell.Flags&grid.FlagDim != 0 {
			fg[0] *= 0.6
			fg[1] *= 0.6
			fg[2] *= 0.6
		}
		r.drawGlyph(img, gl.Rune, gl.FontID, gl.X, toNRGBA(fg))
	}

	// Underline and strikethrough decorations, plus the hover underline.
	hoverStart, hoverEnd, hoverOK := -1, -1, false
	if snap.HyperlinkHover != nil {
		hoverStart, hoverEnd, hoverOK = snap.HyperlinkHover.ColumnRangeOnLine(absRow, cols)
	}
	for col, cell := range cells {
		fg := toNRGBA(r.theme.colorToRGBA(cell.Fg, false))
		underline := cell.Flags&grid.FlagUnderline != 0
		if hoverOK && col >= hoverStart && col < hoverEnd {
			underline = true
		}
		if underline {
			fillRect(img, image.Rect(col*cw, ch-1, (col+1)*cw, ch), fg)
		}
		if cell.Flags&grid.FlagStrikethrough != 0 {
			fillRect(img, image.Rect(col*cw, ch/2, (col+1)*cw, ch/2+1), fg)
		}
	}

	// Cursor and IME overlay, only when the cursor sits on this row.
	cursorScreen := snap.Cursor.Position.ToScreen(g.HistorySize(), g.DisplayOffset())
	if snap.Cursor.Visible() && cursorScreen.Line == screenRow &&
		cursorScreen.Col >= 0 && cursorScreen.Col < cols {
		if snap.IME != nil {
			r.drawPreedit(img, snap.IME, cursorScreen.Col, cols)
		} else {
			r.drawCursor(img, snap, cells, cursorScreen.Col)
		}
	}

	return img
}

// drawCursor paints the cursor at col in its configured shape. A block
// cursor redraws the covered character in the background color so the
// glyph stays legible inside the cursor.
func (r *Renderer) drawCursor(img *image.RGBA, snap state.TerminalState, cells []grid.Cell, col int) {
	cw, ch := r.metrics.CellWidth, r.metrics.CellHeight
	cursorColor := toNRGBA(r.theme.Cursor)
	if snap.Cursor.Color.Type == grid.ColorRGB {
		c := snap.Cursor.Color
		cursorColor = toNRGBA([4]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1})
	}

	switch snap.Cursor.Shape {
	case state.CursorBeam:
		fillRect(img, image.Rect(col*cw, 0, col*cw+2, ch), cursorColor)
	case state.CursorUnderline:
		fillRect(img, image.Rect(col*cw, ch-2, (col+1)*cw, ch), cursorColor)
	case state.CursorBlock:
		fillRect(img, cellRect(col, cw, ch), cursorColor)
		cell := cells[col]
		if cell.Char != ' ' && cell.Char != 0 {
			r.drawGlyph(img, cell.Char, primaryFontID, col*cw, toNRGBA(r.theme.Background))
		}
	}
}

// drawPreedit overlays the IME composition at the cursor cell: preedit
// glyphs in the preedit color with an underline, and the cell at the
// caret's display offset highlighted to indicate input focus.
func (r *Renderer) drawPreedit(img *image.RGBA, ime *state.ImeView, cursorCol, cols int) {
	cw, ch := r.metrics.CellWidth, r.metrics.CellHeight

	displayCol := cursorCol
	runeIdx := 0
	for _, pr := range ime.Preedit {
		w := grid.RuneWidth(pr)
		if w == 0 {
			runeIdx++
			continue
		}
		if displayCol+w > cols {
			break
		}

		rect := image.Rect(displayCol*cw, 0, (displayCol+w)*cw, ch)
		fillRect(img, rect, toNRGBA(r.theme.Background))
		if runeIdx == ime.CaretOffset {
			fillRect(img, rect, toNRGBA(r.theme.PreeditCaret))
		}
		r.drawGlyph(img, pr, primaryFontID, displayCol*cw, toNRGBA(r.theme.Preedit))
		fillRect(img, image.Rect(displayCol*cw, ch-1, (displayCol+w)*cw, ch), toNRGBA(r.theme.Preedit))

		displayCol += w
		runeIdx++
	}
}

// drawGlyph looks the rune up in the atlas and stamps its alpha mask onto
// img at pen position x, colored fg. Color is applied here, at
// composition, never at rasterization.
func (r *Renderer) drawGlyph(img *image.RGBA, gr rune, fontID uint32, x int, fg color.RGBA) {
	key := glyphatlas.Key{FontID: fontID, GlyphID: gr, Mode: glyphatlas.Alpha}
	loc, err := r.atlas.Lookup(key)
	if err != nil {
		return
	}
	page := r.atlas.PageImage(loc.Page)
	pb := page.Bounds()
	px := int(loc.UV.U0 * float32(pb.Dx()))
	py := int(loc.UV.V0 * float32(pb.Dy()))
	mask := page.SubImage(image.Rect(px, py, px+loc.PixelWidth, py+loc.PixelHeight)).(*image.Alpha)

	dst := image.Rect(x, 0, x+loc.PixelWidth, loc.PixelHeight)
	draw.DrawMask(img, dst, image.NewUniform(fg), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

// --- small paint helpers ---

var colorAlphaOpaque = color.Alpha{A: 255}

// absRowOf converts a screen row to its absolute row index, saturating at
// zero the way units.GridPoint.ToAbsolute does.
func absRowOf(g grid.GridView, screenRow int) int {
	abs := g.HistorySize() - g.DisplayOffset() + screenRow
	if abs < 0 {
		abs = 0
	}
	return abs
}

func cellRect(col, cw, ch int) image.Rectangle {
	return image.Rect(col*cw, 0, (col+1)*cw, ch)
}

func fillRect(img *image.RGBA, rect image.Rectangle, c color.RGBA) {
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

// tintSpan overlays a translucent highlight across an inclusive column
// span.
func tintSpan(img *image.RGBA, startCol, endCol, cw, ch int, c color.RGBA) {
	fillRect(img, image.Rect(startCol*cw, 0, (endCol+1)*cw, ch), c)
}
