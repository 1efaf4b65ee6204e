// Package atomiccache implements the two lock-free caches the host thread
// consults on the hot path between frames: the cursor position cache and
// the per-terminal dirty flag. Both avoid taking the Terminal's coarse
// mutex, since that lock may be held for the duration of a PTY read burst.
package atomiccache

import "sync/atomic"

// AtomicCursorCache packs a cursor's column, row, and display offset into
// a single 64-bit word so readers observe a torn-free snapshot without
// locking. Layout (low to high bit): col:16 | row:16 | displayOffset:16 |
// valid:1 | reserved:15.
type AtomicCursorCache struct {
	word atomic.Uint64
}

const (
	cursorColShift    = 0
	cursorRowShift    = 16
	cursorOffsetShift = 32
	cursorValidBit    = 1 << 48
	cursorMask16      = 0xFFFF
)

// Store publishes a new cursor position, release-ordered so a concurrent
// Load either sees the whole update or none of it.
func (c *AtomicCursorCache) Store(col, row, displayOffset int) {
	packed := (uint64(uint16(col)) << cursorColShift) |
		(uint64(uint16(row)) << cursorRowShift) |
		(uint64(uint16(displayOffset)) << cursorOffsetShift) |
		cursorValidBit
	c.word.Store(packed)
}

// Load returns the last stored cursor position. ok is false if Store has
// never been called (or Invalidate was called since).
func (c *AtomicCursorCache) Load() (col, row, displayOffset int, ok bool) {
	packed := c.word.Load()
	if packed&cursorValidBit == 0 {
		return 0, 0, 0, false
	}
	col = int(uint16(packed >> cursorColShift & cursorMask16))
	row = int(uint16(packed >> cursorRowShift & cursorMask16))
	displayOffset = int(uint16(packed >> cursorOffsetShift & cursorMask16))
	return col, row, displayOffset, true
}

// Invalidate clears the cache so the next Load reports ok == false. Used
// when a terminal is resized, before any new Store.
func (c *AtomicCursorCache) Invalidate() {
	c.word.Store(0)
}

// AtomicDirtyFlag is a single bit of state: has this terminal produced
// output since the last render. Set by the PTY reader goroutine (or any
// state mutation), cleared by the render scheduler once it has drawn the
// corresponding frame.
type AtomicDirtyFlag struct {
	flag atomic.Bool
}

// MarkDirty records that the terminal has unrendered changes.
func (d *AtomicDirtyFlag) MarkDirty() {
	d.flag.Store(true)
}

// CheckAndClear atomically reads the flag and clears it, returning whether
// it was set. Used by the scheduler so exactly one render pass observes
// each dirty transition.
func (d *AtomicDirtyFlag) CheckAndClear() bool {
	return d.flag.Swap(false)
}

// IsDirty reports the flag's current value without clearing it.
func (d *AtomicDirtyFlag) IsDirty() bool {
	return d.flag.Load()
}
