package scheduler

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// GLFWSource drives the scheduler from a real window's vsync. It expects
// glfw.SwapInterval(1) to already have been set on win's context, so
// SwapBuffers blocks until the next vertical retrace instead of returning
// immediately.
type GLFWSource struct {
	win    *glfw.Window
	closed chan struct{}
	once   sync.Once
}

// NewGLFWSource wraps an already-created, current-context window.
func NewGLFWSource(win *glfw.Window) *GLFWSource {
	return &GLFWSource{win: win, closed: make(chan struct{})}
}

// Wait blocks on the next vsync via SwapBuffers, then drains the event
// queue. It returns false once Close has been called or the
// window's own close flag has been set (the user clicked the close box).
func (s *GLFWSource) Wait() bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	if s.win.ShouldClose() {
		return false
	}
	s.win.SwapBuffers()
	glfw.PollEvents()
	return true
}

// Close unblocks the loop and marks the window to close on its next poll.
func (s *GLFWSource) Close() {
	s.once.Do(func() {
		s.win.SetShouldClose(true)
		close(s.closed)
	})
}
