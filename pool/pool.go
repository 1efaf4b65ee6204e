// Package pool implements the TerminalPool: the host-facing
// registry of live Terminal sessions, keyed by ID, each carrying the
// lock-free cursor/dirty caches the render scheduler consults every tick
// without touching the terminal's own coarse lock.
package pool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/raventerm/termengine/atomiccache"
	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
)

// Rect is a terminal's on-screen placement in logical pixels, set by the
// host and consulted by RenderAll/compositor.
type Rect struct {
	X, Y, Width, Height float64
}

// FrameRenderer draws one terminal's current state into its registered
// layout rect. Implemented by the renderer package; declared here so pool
// need not import renderer (which imports pool for Rect, so the reverse
// import would cycle).
type FrameRenderer interface {
	RenderTerminal(id terminal.ID, snap state.TerminalState, layout Rect)
	// Present composites every terminal's output into the window drawable
	// and pushes the frame, called once at the end of each RenderAll pass.
	Present()
}

// TerminalEntry is everything the pool tracks per terminal beyond the
// Terminal itself: a session-correlation id for host-side logging, the
// lock-free caches the render thread consults, and the last layout rect
// set by the host.
type TerminalEntry struct {
	Terminal    *terminal.Terminal
	SessionID   uuid.UUID
	DirtyFlag   atomiccache.AtomicDirtyFlag
	CursorCache atomiccache.AtomicCursorCache

	mu     sync.RWMutex
	layout Rect
}

func (e *TerminalEntry) setLayout(r Rect) {
	e.mu.Lock()
	e.layout = r
	e.mu.Unlock()
}

func (e *TerminalEntry) getLayout() Rect {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.layout
}

// exitListener adapts a plain func(terminal.ID, terminal.ExitReason) into
// terminal.Listener, bound to one entry's id.
type exitListener struct {
	id terminal.ID
	cb func(terminal.ID, terminal.ExitReason)
}

func (l exitListener) OnExit(reason terminal.ExitReason) {
	if l.cb != nil {
		l.cb(l.id, reason)
	}
}

// TerminalPool owns every live Terminal in one engine instance. Its own
// lock only ever guards the registry (the order slice and entries map);
// it is never held while calling into a Terminal, so a slow terminal can
// never block Create/Remove/lookup for the others.
type TerminalPool struct {
	mu      sync.RWMutex
	order   []terminal.ID
	entries map[terminal.ID]*TerminalEntry

	cfg config.PoolConfig

	needsRender atomiccache.AtomicDirtyFlag

	// OnExit, if set, is invoked on a goroutine of its own, started by the
	// terminal's PTY reader when its shell exits.
	OnExit func(id terminal.ID, reason terminal.ExitReason)
}

// New constructs an empty pool bound to the given configuration.
func New(cfg config.PoolConfig) *TerminalPool {
	return &TerminalPool{
		entries: make(map[terminal.ID]*TerminalEntry),
		cfg:     cfg,
	}
}

// Create spawns a new terminal of the given size and registers it. The
// pool marks it dirty immediately, so the first render pass always draws
// a freshly created terminal even before any PTY output arrives.
func (p *TerminalPool) Create(rows, cols int) (terminal.ID, error) {
	id := terminal.NextID()

	entry := &TerminalEntry{SessionID: uuid.New()}
	listener := exitListener{id: id, cb: p.OnExit}

	term, err := terminal.New(id, rows, cols, p.cfg.Shell, listener)
	if err != nil {
		return 0, fmt.Errorf("pool: create terminal: %w", err)
	}
	entry.Terminal = term
	entry.DirtyFlag.MarkDirty()

	term.SetDirtyHook(func() {
		entry.DirtyFlag.MarkDirty()
		p.needsRender.MarkDirty()
	})

	p.mu.Lock()
	p.order = append(p.order, id)
	p.entries[id] = entry
	p.mu.Unlock()

	p.needsRender.MarkDirty()
	return id, nil
}

// Remove closes and unregisters a terminal, blocking until its PTY reader
// goroutine has exited. Removing an unknown id is a no-op.
func (p *TerminalPool) Remove(id terminal.ID) {
	p.mu.Lock()
	entry, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
		for i, oid := range p.order {
			if oid == id {
				p.order = append(p.order[:i], p.order[i+1:]...)
				break
			}
		}
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	entry.Terminal.Close()
	entry.Terminal.Wait()
}

func (p *TerminalPool) lookup(id terminal.ID) (*TerminalEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.entries[id]
	return entry, ok
}

// WithTerminal runs f against the terminal identified by id, blocking if
// another goroutine currently holds its lock. It returns false if id is
// unknown. f itself only ever calls Terminal's self-locking methods.
func (p *TerminalPool) WithTerminal(id terminal.ID, f func(*terminal.Terminal)) bool {
	entry, ok := p.lookup(id)
	if !ok {
		return false
	}
	f(entry.Terminal)
	return true
}

// TryWithTerminal runs f against the terminal identified by id only if its
// lock is immediately available, so a host-thread query never waits
// behind a PTY reader or render pass. Returns false if id is unknown or
// the lock is held.
func (p *TerminalPool) TryWithTerminal(id terminal.ID, f func(*terminal.Terminal)) bool {
	entry, ok := p.lookup(id)
	if !ok {
		return false
	}
	if !entry.Terminal.TryLock() {
		return false
	}
	defer entry.Terminal.Unlock()
	f(entry.Terminal)
	return true
}

// GetCursorCache returns the lock-free cursor cache for id, so a host
// thread can read the last-rendered cursor position without contending
// for the terminal's coarse lock at all.
func (p *TerminalPool) GetCursorCache(id terminal.ID) (*atomiccache.AtomicCursorCache, bool) {
	entry, ok := p.lookup(id)
	if !ok {
		return nil, false
	}
	return &entry.CursorCache, true
}

// SetLayout records where the host compositor has placed a terminal's
// pane, for RenderAll/compositor to consult. Returns false if id is
// unknown.
func (p *TerminalPool) SetLayout(id terminal.ID, r Rect) bool {
	entry, ok := p.lookup(id)
	if !ok {
		return false
	}
	entry.setLayout(r)
	return true
}

// NeedsRenderFlag exposes the pool-wide dirty flag the render scheduler
// polls each display-refresh tick: true if any terminal has
// produced output since the last RenderAll.
func (p *TerminalPool) NeedsRenderFlag() *atomiccache.AtomicDirtyFlag {
	return &p.needsRender
}

// RequestRender marks the pool-wide flag so the scheduler's next tick
// draws a frame, for state changes that live outside any one terminal (a
// theme switch, a layout reflow).
func (p *TerminalPool) RequestRender() {
	p.needsRender.MarkDirty()
}

// RenderAll walks every registered terminal in creation order, renders the
// ones marked dirty through target, and refreshes their cursor caches from
// the fresh snapshot. Terminals that are not dirty are skipped entirely,
// so a quiet pane costs nothing on an otherwise-busy tick.
func (p *TerminalPool) RenderAll(target FrameRenderer) {
	p.mu.RLock()
	ids := make([]terminal.ID, len(p.order))
	copy(ids, p.order)
	p.mu.RUnlock()

	for _, id := range ids {
		entry, ok := p.lookup(id)
		if !ok {
			continue
		}
		if !entry.DirtyFlag.CheckAndClear() {
			continue
		}

		snap := entry.Terminal.State()
		target.RenderTerminal(id, snap, entry.getLayout())

		rows := snap.Grid.Lines()
		screen := snap.Cursor.Position.ToScreen(snap.Grid.HistorySize(), snap.Grid.DisplayOffset())
		row := screen.Line
		if row < 0 {
			row = 0
		}
		if rows > 0 && row >= rows {
			row = rows - 1
		}
		entry.CursorCache.Store(screen.Col, row, snap.Grid.DisplayOffset())
	}

	target.Present()
}

// MarkAllDirty marks every registered terminal dirty without touching any
// of them, for callers that need the next RenderAll to redraw everything
// regardless of per-terminal state (a theme switch, a global reflow).
func (p *TerminalPool) MarkAllDirty() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, entry := range p.entries {
		entry.DirtyFlag.MarkDirty()
	}
}

// IDs returns the live terminal ids in creation order.
func (p *TerminalPool) IDs() []terminal.ID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]terminal.ID, len(p.order))
	copy(ids, p.order)
	return ids
}

// Count returns the number of live terminals.
func (p *TerminalPool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.order)
}
