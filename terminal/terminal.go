// Package terminal implements the Terminal aggregate: it wraps
// the grid/parser pair plus selection/search/IME/hyperlink sub-state
// behind one coarse lock, and exposes the read-only State() snapshot the
// renderer consumes off the PTY and host threads.
package terminal

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/grid"
	"github.com/raventerm/termengine/ptyproc"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/units"
	"github.com/raventerm/termengine/vt"
)

// ID identifies a Terminal for its whole lifetime. IDs are assigned from a
// process-wide monotonic counter starting at 1; 0 is reserved as the
// "no such terminal" sentinel the C boundary returns on failure.
type ID uint64

var nextID atomic.Uint64

// NextID allocates the next process-wide terminal id.
func NextID() ID {
	return ID(nextID.Add(1))
}

// ExitReason is delivered to a Listener when the underlying shell exits or
// the PTY becomes unusable.
type ExitReason struct {
	Err error
}

// Listener receives terminal lifecycle events. OnExit runs on a goroutine
// of its own, started by the PTY reader when the shell exits.
type Listener interface {
	OnExit(reason ExitReason)
}

// Terminal is the mutable aggregate owning one PTY-backed session: grid,
// cursor, selection, search, IME, and hyperlink-hover state behind a single
// coarse lock. Per-row locking would complicate snapshotting; instead
// readers pay the snapshot cost in State() and writers never wait on
// readers.
type Terminal struct {
	ID ID

	mu sync.Mutex
	vm *vt.Machine

	selection      *state.SelectionView
	search         *state.SearchView
	hyperlinkHover *state.HyperlinkHoverView
	ime            *state.ImeView
	cursorShape    state.CursorShape
	cursorColor    grid.Color

	proc     *ptyproc.Process
	listener Listener

	dirtyHook atomic.Pointer[func()]

	shutdown chan struct{}
	done     chan struct{}
	closeOne sync.Once
}

// TryLock attempts to acquire the terminal's coarse lock without blocking.
// It is the non-blocking half of the pool's WithTerminal/TryWithTerminal
// pair: a host-thread query never waits on a PTY reader or render pass
// that currently holds the lock, and instead reports the contention
// upward.
func (t *Terminal) TryLock() bool { return t.mu.TryLock() }

// Unlock releases a lock acquired via TryLock.
func (t *Terminal) Unlock() { t.mu.Unlock() }

// StateLocked returns a snapshot assuming the caller already holds the
// lock via TryLock. Exported for TerminalPool.TryWithTerminal.
func (t *Terminal) StateLocked() state.TerminalState { return t.stateLocked() }

// SetDirtyHook installs the callback invoked after every state mutation
// (apply_bytes, resize, selection/search/IME/hyperlink changes). The pool
// wires this to TerminalEntry's dirty flag and the pool-wide render
// flag, so any state-touching mutation schedules a frame.
func (t *Terminal) SetDirtyHook(hook func()) {
	t.dirtyHook.Store(&hook)
}

func (t *Terminal) notifyDirty() {
	if p := t.dirtyHook.Load(); p != nil {
		(*p)()
	}
}

// New constructs a Terminal of the given size, spawns its login shell, and
// starts the PTY reader goroutine. There is no separate event-loop
// goroutine. listener may be nil.
func New(id ID, rows, cols int, shellCfg config.ShellConfig, listener Listener) (*Terminal, error) {
	proc, err := ptyproc.Spawn(shellCfg, uint16(cols), uint16(rows))
	if err != nil {
		return nil, fmt.Errorf("terminal: spawn shell: %w", err)
	}

	vm := vt.New(cols, rows)
	vm.SetResponseWriter(func(b []byte) {
		proc.Write(b)
	})

	t := &Terminal{
		ID:          id,
		vm:          vm,
		cursorShape: state.CursorBlock,
		cursorColor: grid.DefaultFg(),
		proc:        proc,
		listener:    listener,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
	}

	go t.readLoop()

	return t, nil
}

// readLoop is the PTY reader thread: it owns the terminal lock only while
// applying a chunk of bytes, then releases it.
func (t *Terminal) readLoop() {
	defer close(t.done)
	buf := make([]byte, 32*1024)
	for {
		select {
		case <-t.shutdown:
			return
		default:
		}

		n, err := t.proc.Reader().Read(buf)
		if n > 0 {
			t.Apply(buf[:n])
		}
		if err != nil {
			select {
			case <-t.shutdown:
				// Close() already tore down the pty; not a reportable exit.
			default:
				t.dispatchExit(ExitReason{Err: err})
			}
			return
		}
	}
}

func (t *Terminal) dispatchExit(reason ExitReason) {
	if t.listener != nil {
		go t.listener.OnExit(reason)
	}
}

// Apply feeds PTY bytes through the parser and mutates the grid. Callers
// outside the PTY reader goroutine (e.g. tests) may call it directly; the
// pool's dirty-flag marking happens one layer up, in TerminalEntry.
func (t *Terminal) Apply(buf []byte) {
	t.mu.Lock()
	t.vm.Process(buf)
	t.mu.Unlock()
	t.notifyDirty()
}

// Resize resizes the grid and the kernel pty to new dimensions. Grid rows
// and columns are cropped or padded; lines are not rewrapped.
func (t *Terminal) Resize(rows, cols int) error {
	t.mu.Lock()
	t.vm.Resize(cols, rows)
	t.mu.Unlock()

	if err := t.proc.Resize(uint16(cols), uint16(rows)); err != nil {
		return fmt.Errorf("terminal: resize pty: %w", err)
	}
	t.notifyDirty()
	return nil
}

// Rows returns the current row count.
func (t *Terminal) Rows() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vm.Grid.Rows
}

// Cols returns the current column count.
func (t *Terminal) Cols() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vm.Grid.Cols
}

// ScreenToAbsolute converts a screen-frame position to the absolute frame
// using the grid's current history size and display offset.
func (t *Terminal) ScreenToAbsolute(screenRow, screenCol int) units.GridPoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return units.ScreenPoint(screenRow, screenCol).
		ToAbsolute(t.vm.Grid.HistorySize(), t.vm.Grid.DisplayOffset())
}

// WriteInput sends host-originated bytes (keystrokes, paste) to the shell.
func (t *Terminal) WriteInput(data []byte) (int, error) {
	return t.proc.Write(data)
}

// WorkingDirectory returns the last OSC 7 reported working directory, or
// "" if none has been reported yet.
func (t *Terminal) WorkingDirectory() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vm.WorkingDir()
}

// State takes a brief lock to build a TerminalState snapshot: a GridView
// holding its own copy of the visible cells (the grid's backing array is
// not shared), plus copies of
// the small cursor/selection/search/hyperlink/IME values. The returned
// snapshot is safe to use indefinitely without blocking mutators.
func (t *Terminal) State() state.TerminalState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Terminal) stateLocked() state.TerminalState {
	col, row := t.vm.Grid.GetCursor()
	cur := state.CursorView{
		Position: units.ScreenPoint(row, col).ToAbsolute(t.vm.Grid.HistorySize(), t.vm.Grid.DisplayOffset()),
		Shape:    t.cursorShapeLocked(),
		Color:    t.cursorColor,
	}

	return state.TerminalState{
		Grid:           t.vm.Grid.View(),
		Cursor:         cur,
		Selection:      t.selection,
		Search:         t.search,
		HyperlinkHover: t.hyperlinkHover,
		IME:            t.ime,
	}
}

func (t *Terminal) cursorShapeLocked() state.CursorShape {
	if !t.vm.IsCursorVisible() {
		return state.CursorHidden
	}
	return t.cursorShape
}

// SetCursorShape changes the cursor's visual shape (host-driven, e.g. a
// config setting, independent of DECTCEM visibility).
func (t *Terminal) SetCursorShape(shape state.CursorShape) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cursorShape = shape
}

// --- Selection ---

// SetSelection records a selection between two absolute endpoints (any
// order), normalizing them right away via state.NewSelectionView.
func (t *Terminal) SetSelection(a, b units.GridPoint, typ state.SelectionType) {
	sel := state.NewSelectionView(a, b, typ)
	t.mu.Lock()
	t.selection = &sel
	t.mu.Unlock()
	t.notifyDirty()
}

// ClearSelection removes any active selection.
func (t *Terminal) ClearSelection() {
	t.mu.Lock()
	t.selection = nil
	t.mu.Unlock()
	t.notifyDirty()
}

// FinalizeSelection returns the selected text if it contains any
// non-whitespace character; otherwise it clears the selection and returns
// ok == false. This is how "click without drag" collapses naturally.
func (t *Terminal) FinalizeSelection() (text string, ok bool) {
	t.mu.Lock()
	if t.selection == nil {
		t.mu.Unlock()
		return "", false
	}
	text = t.selectionTextLocked(*t.selection)
	cleared := !hasNonWhitespace(text)
	if cleared {
		t.selection = nil
	}
	t.mu.Unlock()

	if cleared {
		t.notifyDirty()
		return "", false
	}
	return text, true
}

// SelectionText returns the currently selected text without finalizing
// (i.e. without clearing an all-whitespace selection).
func (t *Terminal) SelectionText() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.selection == nil {
		return "", false
	}
	return t.selectionTextLocked(*t.selection), true
}

func (t *Terminal) selectionTextLocked(sel state.SelectionView) string {
	g := t.vm.Grid
	cols := g.Cols
	var out []rune
	for row := sel.Start.Line; row <= sel.End.Line; row++ {
		colStart, colEnd := 0, cols-1
		if sel.Type == state.SelectionBlock {
			colStart, colEnd = sel.Start.Col, sel.End.Col
		} else {
			if row == sel.Start.Line {
				colStart = sel.Start.Col
			}
			if row == sel.End.Line {
				colEnd = sel.End.Col
			}
		}
		lineStart := len(out)
		for col := colStart; col <= colEnd && col < cols; col++ {
			cell := g.CellAtAbsolute(row, col)
			if cell.Flags&grid.FlagWideContinuation != 0 {
				continue
			}
			ch := cell.Char
			if ch == 0 {
				ch = ' '
			}
			out = append(out, ch)
		}
		out = trimTrailingSpace(out, lineStart)
		if row < sel.End.Line {
			out = append(out, '\n')
		}
	}
	return string(out)
}

func trimTrailingSpace(runes []rune, from int) []rune {
	end := len(runes)
	for end > from && runes[end-1] == ' ' {
		end--
	}
	return runes[:end]
}

func hasNonWhitespace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// --- Search ---

// SetSearch installs the current search session's matches and focused
// index.
func (t *Terminal) SetSearch(matches []state.MatchRange, currentIndex int) {
	t.mu.Lock()
	t.search = &state.SearchView{Matches: matches, CurrentIndex: currentIndex}
	t.mu.Unlock()
	t.notifyDirty()
}

// ClearSearch removes the current search session.
func (t *Terminal) ClearSearch() {
	t.mu.Lock()
	t.search = nil
	t.mu.Unlock()
	t.notifyDirty()
}

// --- IME ---

// SetIMEPreedit installs the in-progress IME composition string and caret
// offset (in characters). An empty preedit is equivalent to ClearIMEPreedit.
func (t *Terminal) SetIMEPreedit(text string, caretOffsetChars int) {
	t.mu.Lock()
	if text == "" {
		t.ime = nil
		t.mu.Unlock()
		t.notifyDirty()
		return
	}
	v := state.NewImeView(text, caretOffsetChars)
	t.ime = &v
	t.mu.Unlock()
	t.notifyDirty()
}

// ClearIMEPreedit removes the in-progress IME composition.
func (t *Terminal) ClearIMEPreedit() {
	t.mu.Lock()
	t.ime = nil
	t.mu.Unlock()
	t.notifyDirty()
}

// --- Hyperlinks ---

// SetHyperlinkHover records the hyperlink span currently under the
// pointer.
func (t *Terminal) SetHyperlinkHover(start, end units.GridPoint, uri string) {
	t.mu.Lock()
	t.hyperlinkHover = &state.HyperlinkHoverView{Start: start, End: end, URI: uri}
	t.mu.Unlock()
	t.notifyDirty()
}

// ClearHyperlinkHover clears the hover span.
func (t *Terminal) ClearHyperlinkHover() {
	t.mu.Lock()
	t.hyperlinkHover = nil
	t.mu.Unlock()
	t.notifyDirty()
}

// GetHyperlinkAt returns the hyperlink run (in display/screen coordinates)
// covering (screenRow, screenCol), if the cell there carries a hyperlink
// id. The run is the maximal contiguous span of cells on that row sharing
// the same hyperlink id.
func (t *Terminal) GetHyperlinkAt(screenRow, screenCol int) (startCol, endCol int, uri string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g := t.vm.Grid
	cell := g.DisplayCell(screenCol, screenRow)
	if cell.HyperlinkID == 0 {
		return 0, 0, "", false
	}
	uri, found := t.vm.HyperlinkURI(cell.HyperlinkID)
	if !found {
		return 0, 0, "", false
	}

	start, end := screenCol, screenCol
	for start > 0 && g.DisplayCell(start-1, screenRow).HyperlinkID == cell.HyperlinkID {
		start--
	}
	for end+1 < g.Cols && g.DisplayCell(end+1, screenRow).HyperlinkID == cell.HyperlinkID {
		end++
	}
	return start, end, uri, true
}

// Close signals the PTY reader to stop and releases the PTY. Idempotent.
func (t *Terminal) Close() error {
	var err error
	t.closeOne.Do(func() {
		close(t.shutdown)
		err = t.proc.Close()
	})
	return err
}

// Wait blocks until the PTY reader goroutine has exited, so TerminalPool.
// Remove can join it before dropping the entry.
func (t *Terminal) Wait() {
	<-t.done
}
