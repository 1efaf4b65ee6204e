// Package vt is the ANSI/VT100 escape-sequence state machine that turns
// PTY bytes into grid mutations. It is implementation plumbing internal to
// the terminal package, not a first-class module: terminal.Terminal.Apply
// is the only exported entry point bytes flow through.
package vt

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/raventerm/termengine/grid"
)

type parserState int

const (
	stateGround parserState = iota
	stateEscape
	stateCSI
	stateOSC
	stateCharset
	stateHash
)

// Machine holds one terminal's escape-sequence parsing state and the grid
// it writes into. It has no lock of its own: terminal.Terminal serializes
// calls to Process under its own coarse mutex.
type Machine struct {
	Grid *grid.Grid

	state     parserState
	csiParams string
	oscParams string

	currentFg    grid.Color
	currentBg    grid.Color
	currentFlags grid.CellFlags

	appCursorKeys   bool
	cursorVisible   bool
	alternateScreen bool
	savedMainGrid   *grid.Grid

	lastWorkingDir string
	responseWriter func([]byte)

	hyperlinks       *linkRegistry
	currentLinkID    uint32
	pendingWideFg    grid.Color
	pendingWideBg    grid.Color
	pendingWideFlags grid.CellFlags
	pendingWideLink  uint32
	havePendingWide  bool

	utf8Buf       []byte
	utf8Remaining int
}

// New creates a parser machine writing into a freshly allocated grid of the
// given dimensions.
func New(cols, rows int) *Machine {
	return &Machine{
		Grid:          grid.New(cols, rows),
		currentFg:     grid.DefaultFg(),
		currentBg:     grid.DefaultBg(),
		cursorVisible: true,
		hyperlinks:    newLinkRegistry(),
	}
}

// Process feeds a chunk of PTY output through the state machine.
func (m *Machine) Process(data []byte) {
	for _, b := range data {
		m.processByte(b)
	}
}

func (m *Machine) processByte(b byte) {
	switch m.state {
	case stateGround:
		m.processGround(b)
	case stateEscape:
		m.processEscape(b)
	case stateCSI:
		m.processCSI(b)
	case stateOSC:
		m.processOSC(b)
	case stateCharset:
		m.state = stateGround
	case stateHash:
		m.state = stateGround
	}
}

func (m *Machine) writeRune(r rune) {
	w := grid.RuneWidth(r)
	if w == 0 {
		return
	}
	m.Grid.WriteChar(r, m.currentFg, m.currentBg, m.currentFlags, w == 2, m.currentLinkID)
	if w == 2 {
		m.Grid.WriteContinuation(m.currentFg, m.currentBg, m.currentLinkID)
	}
}

func (m *Machine) processGround(b byte) {
	if m.utf8Remaining > 0 {
		if b&0xC0 == 0x80 {
			m.utf8Buf = append(m.utf8Buf, b)
			m.utf8Remaining--
			if m.utf8Remaining == 0 {
				m.writeRune(decodeUTF8(m.utf8Buf))
				m.utf8Buf = nil
			}
		} else {
			m.utf8Buf = nil
			m.utf8Remaining = 0
			m.processGround(b)
		}
		return
	}

	switch b {
	case 0x1b:
		m.state = stateEscape
	case 0x07:
		// Bell, ignored.
	case 0x08:
		m.Grid.Backspace()
	case 0x09:
		m.Grid.Tab()
	case 0x0a, 0x0b, 0x0c:
		m.Grid.Newline()
		m.Grid.ResetScrollOffset()
	case 0x0d:
		m.Grid.CarriageReturn()
	default:
		switch {
		case b >= 0x20 && b < 0x7f:
			m.writeRune(rune(b))
		case b >= 0xC0 && b < 0xE0:
			m.utf8Buf = []byte{b}
			m.utf8Remaining = 1
		case b >= 0xE0 && b < 0xF0:
			m.utf8Buf = []byte{b}
			m.utf8Remaining = 2
		case b >= 0xF0 && b < 0xF8:
			m.utf8Buf = []byte{b}
			m.utf8Remaining = 3
		}
	}
}

func decodeUTF8(buf []byte) rune {
	if len(buf) == 0 {
		return 0xFFFD
	}
	switch len(buf) {
	case 1:
		return rune(buf[0])
	case 2:
		if buf[0]&0xE0 == 0xC0 {
			return rune(buf[0]&0x1F)<<6 | rune(buf[1]&0x3F)
		}
	case 3:
		if buf[0]&0xF0 == 0xE0 {
			return rune(buf[0]&0x0F)<<12 | rune(buf[1]&0x3F)<<6 | rune(buf[2]&0x3F)
		}
	case 4:
		if buf[0]&0xF8 == 0xF0 {
			return rune(buf[0]&0x07)<<18 | rune(buf[1]&0x3F)<<12 | rune(buf[2]&0x3F)<<6 | rune(buf[3]&0x3F)
		}
	}
	return 0xFFFD
}

func (m *Machine) processEscape(b byte) {
	switch b {
	case '[':
		m.state = stateCSI
		m.csiParams = ""
	case ']':
		m.state = stateOSC
		m.oscParams = ""
	case '7':
		m.Grid.SaveCursor()
		m.state = stateGround
	case '8':
		m.Grid.RestoreCursor()
		m.state = stateGround
	case 'c':
		m.reset()
		m.state = stateGround
	case 'D':
		m.Grid.MoveCursor(0, 1)
		m.state = stateGround
	case 'M':
		_, row := m.Grid.GetCursor()
		if row == 0 {
			m.Grid.ScrollDown(1)
		} else {
			m.Grid.MoveCursor(0, -1)
		}
		m.state = stateGround
	case 'E':
		m.Grid.CarriageReturn()
		m.Grid.Newline()
		m.state = stateGround
	case '(', ')', '*', '+':
		m.state = stateCharset
	case '=', '>':
		m.state = stateGround
	case '#':
		m.state = stateHash
	default:
		m.state = stateGround
	}
}

func (m *Machine) processCSI(b byte) {
	switch {
	case b >= 0x30 && b <= 0x3f:
		m.csiParams += string(b)
	case b >= 0x20 && b <= 0x2f:
		m.csiParams += string(b)
	case b >= 0x40 && b <= 0x7e:
		m.executeCSI(b)
		m.state = stateGround
	default:
		m.state = stateGround
	}
}

func (m *Machine) executeCSI(final byte) {
	params := m.parseParams(m.csiParams)

	switch final {
	case 'A':
		m.Grid.MoveCursor(0, -m.getParam(params, 0, 1))
	case 'B':
		m.Grid.MoveCursor(0, m.getParam(params, 0, 1))
	case 'C':
		m.Grid.MoveCursor(m.getParam(params, 0, 1), 0)
	case 'D':
		m.Grid.MoveCursor(-m.getParam(params, 0, 1), 0)
	case 'E':
		m.Grid.CarriageReturn()
		m.Grid.MoveCursor(0, m.getParam(params, 0, 1))
	case 'F':
		m.Grid.CarriageReturn()
		m.Grid.MoveCursor(0, -m.getParam(params, 0, 1))
	case 'G':
		n := m.getParam(params, 0, 1)
		_, row := m.Grid.GetCursor()
		m.Grid.SetCursorPos(n, row+1)
	case 'H', 'f':
		row := m.getParam(params, 0, 1)
		col := m.getParam(params, 1, 1)
		m.Grid.SetCursorPos(col, row)
	case 'J':
		switch m.getParam(params, 0, 0) {
		case 0:
			m.Grid.ClearToEnd()
		case 1:
			m.Grid.ClearToStart()
		case 2, 3:
			m.Grid.ClearAll()
		}
	case 'K':
		switch m.getParam(params, 0, 0) {
		case 0:
			m.Grid.ClearLineToEnd()
		case 1:
			m.Grid.ClearLineToStart()
		case 2:
			m.Grid.ClearLine()
		}
	case 'L':
		m.Grid.InsertLines(m.getParam(params, 0, 1))
	case 'M':
		m.Grid.DeleteLines(m.getParam(params, 0, 1))
	case 'P':
		m.Grid.DeleteChars(m.getParam(params, 0, 1))
	case '@':
		m.Grid.InsertChars(m.getParam(params, 0, 1))
	case 'S':
		m.Grid.ScrollUp(m.getParam(params, 0, 1))
	case 'T':
		m.Grid.ScrollDown(m.getParam(params, 0, 1))
	case 'X':
		m.Grid.EraseChars(m.getParam(params, 0, 1))
	case 'd':
		n := m.getParam(params, 0, 1)
		col, _ := m.Grid.GetCursor()
		m.Grid.SetCursorPos(col+1, n)
	case 'b':
		m.Grid.RepeatChar(m.getParam(params, 0, 1))
	case 'm':
		m.executeSGR(params)
	case 'h':
		m.setMode(params, true)
	case 'l':
		m.setMode(params, false)
	case 'r':
		top := m.getParam(params, 0, 1)
		bottom := m.getParam(params, 1, m.Grid.Rows)
		m.Grid.SetScrollRegion(top, bottom)
	case 's':
		m.Grid.SaveCursor()
	case 'u':
		m.Grid.RestoreCursor()
	case 'n':
		m.handleDSR(params)
	case 'c', 't', 'q':
		// Device attributes / window manipulation / cursor style: ignored.
	}
}

func (m *Machine) executeSGR(params []int) {
	if len(params) == 0 {
		params = []int{0}
	}

	i := 0
	for i < len(params) {
		p := params[i]
		switch {
		case p == 0:
			m.currentFg = grid.DefaultFg()
			m.currentBg = grid.DefaultBg()
			m.currentFlags = 0
		case p == 1:
			m.currentFlags |= grid.FlagBold
		case p == 2:
			m.currentFlags |= grid.FlagDim
		case p == 3:
			m.currentFlags |= grid.FlagItalic
		case p == 4:
			m.currentFlags |= grid.FlagUnderline
		case p == 7:
			m.currentFlags |= grid.FlagInverse
		case p == 8:
			m.currentFlags |= grid.FlagHidden
		case p == 9:
			m.currentFlags |= grid.FlagStrikethrough
		case p == 22:
			m.currentFlags &^= grid.FlagBold | grid.FlagDim
		case p == 23:
			m.currentFlags &^= grid.FlagItalic
		case p == 24:
			m.currentFlags &^= grid.FlagUnderline
		case p == 27:
			m.currentFlags &^= grid.FlagInverse
		case p == 28:
			m.currentFlags &^= grid.FlagHidden
		case p == 29:
			m.currentFlags &^= grid.FlagStrikethrough
		case p >= 30 && p <= 37:
			m.currentFg = grid.IndexedColor(uint8(p - 30))
		case p == 38:
			if i+1 < len(params) {
				if params[i+1] == 5 && i+2 < len(params) {
					m.currentFg = grid.IndexedColor(uint8(params[i+2]))
					i += 2
				} else if params[i+1] == 2 && i+4 < len(params) {
					m.currentFg = grid.RGBColor(uint8(params[i+2]), uint8(params[i+3]), uint8(params[i+4]))
					i += 4
				}
			}
		case p == 39:
			m.currentFg = grid.DefaultFg()
		case p >= 40 && p <= 47:
			m.currentBg = grid.IndexedColor(uint8(p - 40))
		case p == 48:
			if i+1 < len(params) {
				if params[i+1] == 5 && i+2 < len(params) {
					m.currentBg = grid.IndexedColor(uint8(params[i+2]))
					i += 2
				} else if params[i+1] == 2 && i+4 < len(params) {
					m.currentBg = grid.RGBColor(uint8(params[i+2]), uint8(params[i+3]), uint8(params[i+4]))
					i += 4
				}
			}
		case p == 49:
			m.currentBg = grid.DefaultBg()
		case p >= 90 && p <= 97:
			m.currentFg = grid.IndexedColor(uint8(p - 90 + 8))
		case p >= 100 && p <= 107:
			m.currentBg = grid.IndexedColor(uint8(p - 100 + 8))
		}
		i++
	}
}

func (m *Machine) setMode(params []int, set bool) {
	private := strings.HasPrefix(m.csiParams, "?")
	for _, p := range params {
		if !private {
			continue
		}
		switch p {
		case 1:
			m.appCursorKeys = set
		case 25:
			m.cursorVisible = set
		case 47, 1047:
			if set {
				m.enterAlternateScreen()
			} else {
				m.exitAlternateScreen()
			}
		case 1049:
			if set {
				m.Grid.SaveCursor()
				m.enterAlternateScreen()
			} else {
				m.exitAlternateScreen()
				m.Grid.RestoreCursor()
			}
		}
	}
}

func (m *Machine) enterAlternateScreen() {
	if m.alternateScreen {
		return
	}
	m.savedMainGrid = m.Grid
	m.Grid = grid.New(m.Grid.Cols, m.Grid.Rows)
	m.alternateScreen = true
}

func (m *Machine) exitAlternateScreen() {
	if !m.alternateScreen || m.savedMainGrid == nil {
		return
	}
	m.Grid = m.savedMainGrid
	m.savedMainGrid = nil
	m.alternateScreen = false
}

func (m *Machine) processOSC(b byte) {
	if b == 0x07 || b == 0x1b {
		m.handleOSC(m.oscParams)
		m.oscParams = ""
		m.state = stateGround
		if b == 0x1b {
			// ESC opens the two-byte ST (ESC \); the escape state consumes
			// the trailing '\' instead of printing it.
			m.state = stateEscape
		}
	} else {
		m.oscParams += string(b)
	}
}

func (m *Machine) handleOSC(params string) {
	switch {
	case strings.HasPrefix(params, "7;"):
		if path := parseOSC7Path(strings.TrimPrefix(params, "7;")); path != "" {
			m.lastWorkingDir = path
		}
	case strings.HasPrefix(params, "8;"):
		m.handleOSC8(strings.TrimPrefix(params, "8;"))
	}
}

// handleOSC8 processes `OSC 8 ; params ; URI ST`, the de-facto hyperlink
// escape sequence. An empty URI closes the currently open hyperlink run.
func (m *Machine) handleOSC8(rest string) {
	parts := strings.SplitN(rest, ";", 2)
	uri := ""
	if len(parts) == 2 {
		uri = parts[1]
	}
	if uri == "" {
		m.currentLinkID = 0
		return
	}
	m.currentLinkID = m.hyperlinks.intern(uri)
}

func parseOSC7Path(value string) string {
	if strings.HasPrefix(value, "file://") {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Path == "" {
			return ""
		}
		path, err := url.PathUnescape(parsed.Path)
		if err != nil {
			return ""
		}
		return path
	}
	if strings.HasPrefix(value, "/") {
		return value
	}
	return ""
}

// WorkingDir returns the last working directory reported via OSC 7.
func (m *Machine) WorkingDir() string { return m.lastWorkingDir }

// HyperlinkURI resolves a cell's hyperlink id to its URI. The zero id
// always resolves to "", false.
func (m *Machine) HyperlinkURI(id uint32) (string, bool) {
	return m.hyperlinks.lookup(id)
}

func (m *Machine) parseParams(s string) []int {
	s = strings.TrimPrefix(s, "?")
	s = strings.TrimPrefix(s, ">")
	s = strings.TrimPrefix(s, "!")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	params := make([]int, len(parts))
	for i, part := range parts {
		if idx := strings.Index(part, ":"); idx >= 0 {
			part = part[:idx]
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			params[i] = 0
		} else {
			params[i] = n
		}
	}
	return params
}

func (m *Machine) getParam(params []int, index, defaultVal int) int {
	if index < len(params) && params[index] > 0 {
		return params[index]
	}
	return defaultVal
}

func (m *Machine) reset() {
	m.Grid.ClearAll()
	m.Grid.SetCursorPos(1, 1)
	m.currentFg = grid.DefaultFg()
	m.currentBg = grid.DefaultBg()
	m.currentFlags = 0
	m.appCursorKeys = false
	m.cursorVisible = true
	m.currentLinkID = 0
	m.exitAlternateScreen()
}

// Resize resizes the active grid (and the saved alternate-screen grid, if
// any) to the given dimensions.
func (m *Machine) Resize(cols, rows int) {
	m.Grid.Resize(cols, rows)
	if m.savedMainGrid != nil {
		m.savedMainGrid.Resize(cols, rows)
	}
}

// IsCursorVisible reports whether the cursor is visible; DECTCEM
// (CSI ?25l) hides it.
func (m *Machine) IsCursorVisible() bool { return m.cursorVisible }

// AppCursorKeys reports whether DECCKM application cursor-key mode is set.
func (m *Machine) AppCursorKeys() bool { return m.appCursorKeys }

// SetResponseWriter installs the callback used to answer DSR queries by
// writing synthesized bytes back to the PTY.
func (m *Machine) SetResponseWriter(writer func([]byte)) { m.responseWriter = writer }

func (m *Machine) handleDSR(params []int) {
	if m.responseWriter == nil {
		return
	}
	switch m.getParam(params, 0, 0) {
	case 5:
		m.responseWriter([]byte("\x1b[0n"))
	case 6:
		col, row := m.Grid.GetCursor()
		m.responseWriter([]byte(fmt.Sprintf("\x1b[%d;%dR", row+1, col+1)))
	}
}
