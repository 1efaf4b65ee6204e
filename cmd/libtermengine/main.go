// Package main builds libtermengine, the C ABI a host UI layer drives the
// engine through. Every exported function runs inside a panic
// firewall: an internal fault is logged and collapsed to the function's
// fail code — false, null pointer, valid:false, or a zero id — and never
// crosses the boundary. Strings returned to the host are heap-allocated;
// ownership transfers to the caller, who must release them through the
// matching free function.
//
// Build with: go build -buildmode=c-shared -o libtermengine.so ./cmd/libtermengine
package main

/*
#include <stdbool.h>
#include <stdint.h>
#include <stdlib.h>

typedef void (*term_log_callback)(const char* line);

typedef struct {
	const char* font_path;
	const char* theme_name;
	const char* shell_path;
	int32_t     max_layouts;
	int32_t     max_compositions_per_layout;
	int32_t     atlas_page_size;
} ffi_pool_config;

typedef struct {
	uint16_t col;
	uint16_t row;
	bool     valid;
} ffi_cursor;

typedef struct {
	int64_t  absolute_row;
	uint64_t col;
	bool     success;
} ffi_abs_point;

typedef struct {
	int64_t  start_row;
	uint16_t start_col;
	int64_t  end_row;
	uint16_t end_col;
	char*    uri_ptr;
	uint64_t uri_len;
	bool     valid;
} ffi_hyperlink;
*/
import "C"

import (
	"log"
	"runtime/cgo"
	"time"
	"unicode/utf8"
	"unsafe"

	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/pool"
	"github.com/raventerm/termengine/renderer"
	"github.com/raventerm/termengine/scheduler"
	"github.com/raventerm/termengine/state"
	"github.com/raventerm/termengine/terminal"
	"github.com/raventerm/termengine/units"
)

// engine bundles the pool with the renderer that RenderAll draws into;
// both live and die with one pool handle.
type engine struct {
	pool     *pool.TerminalPool
	renderer *renderer.Renderer
}

// schedHandle owns a scheduler and the ticker source driving it.
type schedHandle struct {
	sched  *scheduler.RenderScheduler
	source *scheduler.TickerSource
}

// firewall runs f, converting any panic into fallback plus a log line.
// No unwind ever crosses into C.
func firewall[T any](name string, fallback T, f func() T) (result T) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ERROR] ffi: panic in %s: %v", name, p)
			result = fallback
		}
	}()
	return f()
}

func resolveEngine(h C.uintptr_t) *engine {
	if h == 0 {
		return nil
	}
	e, _ := cgo.Handle(h).Value().(*engine)
	return e
}

func resolveSched(h C.uintptr_t) *schedHandle {
	if h == 0 {
		return nil
	}
	s, _ := cgo.Handle(h).Value().(*schedHandle)
	return s
}

//export pool_create
func pool_create(cfg *C.ffi_pool_config) C.uintptr_t {
	return firewall("pool_create", 0, func() C.uintptr_t {
		pc := config.PoolConfig{Cache: config.DefaultCacheBudget()}
		if cfg != nil {
			if cfg.font_path != nil {
				pc.FontPath = C.GoString(cfg.font_path)
			}
			if cfg.theme_name != nil {
				pc.ThemeName = C.GoString(cfg.theme_name)
			}
			if cfg.shell_path != nil {
				pc.Shell.Path = C.GoString(cfg.shell_path)
			}
			if cfg.max_layouts > 0 {
				pc.Cache.MaxLayouts = int(cfg.max_layouts)
			}
			if cfg.max_compositions_per_layout > 0 {
				pc.Cache.MaxCompositionsPerLayout = int(cfg.max_compositions_per_layout)
			}
			if cfg.atlas_page_size > 0 {
				pc.Cache.AtlasPageSize = int(cfg.atlas_page_size)
			}
		}

		e := &engine{
			pool:     pool.New(pc),
			renderer: renderer.New(pc, nil),
		}
		return C.uintptr_t(cgo.NewHandle(e))
	})
}

//export pool_destroy
func pool_destroy(h C.uintptr_t) {
	firewall("pool_destroy", struct{}{}, func() struct{} {
		e := resolveEngine(h)
		if e == nil {
			return struct{}{}
		}
		for _, id := range e.pool.IDs() {
			e.pool.Remove(id)
			e.renderer.Forget(id)
		}
		cgo.Handle(h).Delete()
		return struct{}{}
	})
}

//export pool_create_terminal
func pool_create_terminal(h C.uintptr_t, rows, cols C.uint16_t) C.uint64_t {
	return firewall("pool_create_terminal", 0, func() C.uint64_t {
		e := resolveEngine(h)
		if e == nil || rows == 0 || cols == 0 {
			return 0
		}
		id, err := e.pool.Create(int(rows), int(cols))
		if err != nil {
			log.Printf("[ERROR] ffi: create terminal: %v", err)
			return 0
		}
		return C.uint64_t(id)
	})
}

//export pool_remove_terminal
func pool_remove_terminal(h C.uintptr_t, id C.uint64_t) C.bool {
	return firewall("pool_remove_terminal", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil {
			return false
		}
		tid := terminal.ID(id)
		if _, known := e.pool.GetCursorCache(tid); !known {
			return false
		}
		e.pool.Remove(tid)
		e.renderer.Forget(tid)
		return true
	})
}

//export pool_send_input
func pool_send_input(h C.uintptr_t, id C.uint64_t, bytes *C.uint8_t, length C.size_t) C.bool {
	return firewall("pool_send_input", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil || bytes == nil || length == 0 {
			return false
		}
		buf := C.GoBytes(unsafe.Pointer(bytes), C.int(length))
		ok := false
		e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			_, err := t.WriteInput(buf)
			ok = err == nil
		})
		return C.bool(ok)
	})
}

//export pool_resize
func pool_resize(h C.uintptr_t, id C.uint64_t, rows, cols C.uint16_t) C.bool {
	return firewall("pool_resize", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil || rows == 0 || cols == 0 {
			return false
		}
		ok := false
		e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			if err := t.Resize(int(rows), int(cols)); err != nil {
				log.Printf("[WARN] ffi: resize: %v", err)
				return
			}
			ok = true
		})
		if ok {
			if c, found := e.pool.GetCursorCache(terminal.ID(id)); found {
				c.Invalidate()
			}
		}
		return C.bool(ok)
	})
}

//export pool_get_cursor
func pool_get_cursor(h C.uintptr_t, id C.uint64_t) C.ffi_cursor {
	return firewall("pool_get_cursor", C.ffi_cursor{}, func() C.ffi_cursor {
		e := resolveEngine(h)
		if e == nil {
			return C.ffi_cursor{}
		}
		tid := terminal.ID(id)

		// Lock-free fast path.
		if cache, ok := e.pool.GetCursorCache(tid); ok {
			if col, row, _, valid := cache.Load(); valid {
				return C.ffi_cursor{
					col:   C.uint16_t(col),
					row:   C.uint16_t(row),
					valid: true,
				}
			}
		}

		// Non-blocking fallback; a held lock reports valid:false and the
		// host retries next tick.
		var out C.ffi_cursor
		e.pool.TryWithTerminal(tid, func(t *terminal.Terminal) {
			snap := t.StateLocked()
			screen := snap.Cursor.Position.ToScreen(snap.Grid.HistorySize(), snap.Grid.DisplayOffset())
			if screen.Line < 0 || screen.Line >= snap.Grid.Lines() {
				return
			}
			out = C.ffi_cursor{
				col:   C.uint16_t(screen.Col),
				row:   C.uint16_t(screen.Line),
				valid: true,
			}
		})
		return out
	})
}

//export pool_screen_to_absolute
func pool_screen_to_absolute(h C.uintptr_t, id C.uint64_t, screenRow, screenCol C.int32_t) C.ffi_abs_point {
	return firewall("pool_screen_to_absolute", C.ffi_abs_point{}, func() C.ffi_abs_point {
		e := resolveEngine(h)
		if e == nil {
			return C.ffi_abs_point{}
		}
		var out C.ffi_abs_point
		e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			abs := t.ScreenToAbsolute(int(screenRow), int(screenCol))
			out = C.ffi_abs_point{
				absolute_row: C.int64_t(abs.Line),
				col:          C.uint64_t(abs.Col),
				success:      true,
			}
		})
		return out
	})
}

//export pool_set_selection
func pool_set_selection(h C.uintptr_t, id C.uint64_t, startRow C.int64_t, startCol C.int64_t, endRow C.int64_t, endCol C.int64_t, selType C.uint8_t) C.bool {
	return firewall("pool_set_selection", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil || selType > C.uint8_t(state.SelectionLines) {
			return false
		}
		ok := e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			t.SetSelection(
				units.AbsolutePoint(int(startRow), int(startCol)),
				units.AbsolutePoint(int(endRow), int(endCol)),
				state.SelectionType(selType),
			)
		})
		return C.bool(ok)
	})
}

//export pool_clear_selection
func pool_clear_selection(h C.uintptr_t, id C.uint64_t) C.bool {
	return firewall("pool_clear_selection", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil {
			return false
		}
		ok := e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			t.ClearSelection()
		})
		return C.bool(ok)
	})
}

//export pool_finalize_selection
func pool_finalize_selection(h C.uintptr_t, id C.uint64_t) *C.char {
	return firewall("pool_finalize_selection", nil, func() *C.char {
		e := resolveEngine(h)
		if e == nil {
			return nil
		}
		var out *C.char
		e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			if text, ok := t.FinalizeSelection(); ok {
				out = C.CString(text)
			}
		})
		return out
	})
}

//export pool_get_selection_text
func pool_get_selection_text(h C.uintptr_t, id C.uint64_t) *C.char {
	return firewall("pool_get_selection_text", nil, func() *C.char {
		e := resolveEngine(h)
		if e == nil {
			return nil
		}
		var out *C.char
		e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			if text, ok := t.SelectionText(); ok {
				out = C.CString(text)
			}
		})
		return out
	})
}

//export pool_free_string
func pool_free_string(s *C.char) {
	firewall("pool_free_string", struct{}{}, func() struct{} {
		if s != nil {
			C.free(unsafe.Pointer(s))
		}
		return struct{}{}
	})
}

//export pool_get_hyperlink_at
func pool_get_hyperlink_at(h C.uintptr_t, id C.uint64_t, screenRow, screenCol C.int32_t) C.ffi_hyperlink {
	return firewall("pool_get_hyperlink_at", C.ffi_hyperlink{}, func() C.ffi_hyperlink {
		e := resolveEngine(h)
		if e == nil || screenRow < 0 || screenCol < 0 {
			return C.ffi_hyperlink{}
		}
		var out C.ffi_hyperlink
		e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			startCol, endCol, uri, ok := t.GetHyperlinkAt(int(screenRow), int(screenCol))
			if !ok {
				return
			}
			// Rows cross the boundary in the absolute frame; only the column
			// span stays screen-relative.
			absRow := t.ScreenToAbsolute(int(screenRow), 0).Line
			out = C.ffi_hyperlink{
				start_row: C.int64_t(absRow),
				start_col: C.uint16_t(startCol),
				end_row:   C.int64_t(absRow),
				end_col:   C.uint16_t(endCol),
				uri_ptr:   C.CString(uri),
				uri_len:   C.uint64_t(len(uri)),
				valid:     true,
			}
		})
		return out
	})
}

//export pool_free_hyperlink
func pool_free_hyperlink(l C.ffi_hyperlink) {
	firewall("pool_free_hyperlink", struct{}{}, func() struct{} {
		if l.uri_ptr != nil {
			C.free(unsafe.Pointer(l.uri_ptr))
		}
		return struct{}{}
	})
}

//export pool_set_hyperlink_hover
func pool_set_hyperlink_hover(h C.uintptr_t, id C.uint64_t, startRow C.int64_t, startCol C.uint16_t, endRow C.int64_t, endCol C.uint16_t, uri *C.char) C.bool {
	return firewall("pool_set_hyperlink_hover", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil || uri == nil {
			return false
		}
		goURI := C.GoString(uri)
		ok := e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			t.SetHyperlinkHover(
				units.AbsolutePoint(int(startRow), int(startCol)),
				units.AbsolutePoint(int(endRow), int(endCol)),
				goURI,
			)
		})
		return C.bool(ok)
	})
}

//export pool_clear_hyperlink_hover
func pool_clear_hyperlink_hover(h C.uintptr_t, id C.uint64_t) C.bool {
	return firewall("pool_clear_hyperlink_hover", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil {
			return false
		}
		ok := e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			t.ClearHyperlinkHover()
		})
		return C.bool(ok)
	})
}

//export pool_set_ime_preedit
func pool_set_ime_preedit(h C.uintptr_t, id C.uint64_t, utf8Text *C.char, cursorChars C.int32_t) C.bool {
	return firewall("pool_set_ime_preedit", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil || utf8Text == nil {
			return false
		}
		text := C.GoString(utf8Text)
		if !utf8.ValidString(text) {
			return false
		}
		ok := e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			t.SetIMEPreedit(text, int(cursorChars))
		})
		return C.bool(ok)
	})
}

//export pool_clear_ime_preedit
func pool_clear_ime_preedit(h C.uintptr_t, id C.uint64_t) C.bool {
	return firewall("pool_clear_ime_preedit", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil {
			return false
		}
		ok := e.pool.WithTerminal(terminal.ID(id), func(t *terminal.Terminal) {
			t.ClearIMEPreedit()
		})
		return C.bool(ok)
	})
}

//export pool_set_render_layout
func pool_set_render_layout(h C.uintptr_t, id C.uint64_t, x, y, w, ht C.double) C.bool {
	return firewall("pool_set_render_layout", false, func() C.bool {
		e := resolveEngine(h)
		if e == nil {
			return false
		}
		return C.bool(e.pool.SetLayout(terminal.ID(id), pool.Rect{
			X: float64(x), Y: float64(y), Width: float64(w), Height: float64(ht),
		}))
	})
}

//export scheduler_create
func scheduler_create(refreshHz C.int32_t) C.uintptr_t {
	return firewall("scheduler_create", 0, func() C.uintptr_t {
		hz := int(refreshHz)
		if hz <= 0 {
			hz = 60
		}
		source := scheduler.NewTickerSource(time.Second / time.Duration(hz))
		s := &schedHandle{sched: scheduler.New(source), source: source}
		return C.uintptr_t(cgo.NewHandle(s))
	})
}

//export scheduler_destroy
func scheduler_destroy(h C.uintptr_t) {
	firewall("scheduler_destroy", struct{}{}, func() struct{} {
		s := resolveSched(h)
		if s == nil {
			return struct{}{}
		}
		s.sched.Stop()
		cgo.Handle(h).Delete()
		return struct{}{}
	})
}

//export scheduler_bind_to_pool
func scheduler_bind_to_pool(h C.uintptr_t, poolHandle C.uintptr_t) C.bool {
	return firewall("scheduler_bind_to_pool", false, func() C.bool {
		s := resolveSched(h)
		e := resolveEngine(poolHandle)
		if s == nil || e == nil {
			return false
		}
		s.sched.BindToPool(e.pool, e.renderer)
		return true
	})
}

//export scheduler_start
func scheduler_start(h C.uintptr_t) {
	firewall("scheduler_start", struct{}{}, func() struct{} {
		if s := resolveSched(h); s != nil {
			s.sched.Start()
		}
		return struct{}{}
	})
}

//export scheduler_stop
func scheduler_stop(h C.uintptr_t) {
	firewall("scheduler_stop", struct{}{}, func() struct{} {
		if s := resolveSched(h); s != nil {
			s.sched.Stop()
		}
		return struct{}{}
	})
}

//export scheduler_request_render
func scheduler_request_render(h C.uintptr_t) {
	firewall("scheduler_request_render", struct{}{}, func() struct{} {
		if s := resolveSched(h); s != nil {
			s.sched.RequestRender()
		}
		return struct{}{}
	})
}

//export set_log_callback
func set_log_callback(cb C.term_log_callback) {
	firewall("set_log_callback", struct{}{}, func() struct{} {
		storeLogCallback(unsafe.Pointer(cb))
		return struct{}{}
	})
}

func main() {}
