// Package scheduler implements the render scheduler: a loop that wakes
// once per display refresh, skips ticks where nothing is dirty, and
// otherwise drives one pool.TerminalPool.RenderAll pass. The display
// refresh itself is abstracted behind DisplaySource so the same loop runs
// against a real glfw.Window in production and a plain ticker in tests.
package scheduler

import (
	"sync"

	"github.com/raventerm/termengine/pool"
)

// DisplaySource abstracts the platform's vsync signal.
type DisplaySource interface {
	// Wait blocks until the next display refresh, returning false once the
	// source has been closed and will never tick again.
	Wait() bool
	// Close unblocks any pending Wait and makes every later call return
	// false.
	Close()
}

// RenderScheduler drives pool.TerminalPool.RenderAll once per display
// refresh, skipping ticks where nothing is dirty.
type RenderScheduler struct {
	source DisplaySource

	mu     sync.Mutex
	pool   *pool.TerminalPool
	target pool.FrameRenderer

	requestCh chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	doneCh    chan struct{}
}

// New constructs a scheduler driven by source. Call BindToPool before
// Start; ticks before a pool is bound are simply skipped.
func New(source DisplaySource) *RenderScheduler {
	return &RenderScheduler{
		source:    source,
		requestCh: make(chan struct{}, 1),
		doneCh:    make(chan struct{}),
	}
}

// BindToPool attaches the pool this scheduler renders and the renderer it
// draws each dirty terminal into. Safe to call again later to retarget a
// running scheduler (e.g. switching pools).
func (s *RenderScheduler) BindToPool(p *pool.TerminalPool, target pool.FrameRenderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pool = p
	s.target = target
}

// RequestRender forces the next tick to render even if no terminal is
// dirty, for changes that don't themselves touch terminal state (a theme
// switch, a pane reflow).
func (s *RenderScheduler) RequestRender() {
	select {
	case s.requestCh <- struct{}{}:
	default:
	}
}

// Start begins the scheduler's display-refresh loop in its own goroutine.
// Calling Start more than once has no additional effect.
func (s *RenderScheduler) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop closes the underlying display source and blocks until the loop
// goroutine has exited. Idempotent.
func (s *RenderScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.source.Close()
		// If Start never ran there is no loop goroutine to close doneCh;
		// consuming startOnce here both records that and unblocks the wait.
		s.startOnce.Do(func() { close(s.doneCh) })
	})
	<-s.doneCh
}

func (s *RenderScheduler) loop() {
	defer close(s.doneCh)
	for s.source.Wait() {
		s.mu.Lock()
		p, target := s.pool, s.target
		s.mu.Unlock()
		if p == nil || target == nil {
			continue
		}

		forced := false
		select {
		case <-s.requestCh:
			forced = true
		default:
		}

		if forced {
			p.MarkAllDirty()
			p.RenderAll(target)
			p.NeedsRenderFlag().CheckAndClear()
			continue
		}
		if p.NeedsRenderFlag().CheckAndClear() {
			p.RenderAll(target)
		}
	}
}
