// Command termengine-demo runs one terminal in a GLFW window, wiring the
// engine the way a native host would: pool + renderer on a GL surface,
// keyboard input forwarded to the shell, an optional hostbridge debug
// endpoint. The frame loop runs inline on the main thread because the GL
// context has thread affinity; embedding hosts that present elsewhere use
// RenderScheduler with a GLFWSource instead.
package main

import (
	"flag"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/raventerm/termengine/config"
	"github.com/raventerm/termengine/hostbridge"
	"github.com/raventerm/termengine/pool"
	"github.com/raventerm/termengine/rasterizer"
	"github.com/raventerm/termengine/renderer"
	"github.com/raventerm/termengine/terminal"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

func main() {
	bridgeAddr := flag.String("bridge", "", "optional host:port for the snapshot debug endpoint")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pc := cfg.ToPoolConfig()

	if err := glfw.Init(); err != nil {
		log.Fatalf("init glfw: %v", err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	win, err := glfw.CreateWindow(1024, 640, "termengine", nil, nil)
	if err != nil {
		log.Fatalf("create window: %v", err)
	}
	win.SetIcon(rasterizer.RenderIconSizes())
	win.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		log.Fatalf("init gl: %v", err)
	}

	fbW, fbH := win.GetFramebufferSize()
	surface := renderer.NewGLSurface(fbW, fbH)
	rend := renderer.New(pc, surface)

	p := pool.New(pc)
	p.OnExit = func(id terminal.ID, reason terminal.ExitReason) {
		log.Printf("terminal %d exited: %v", id, reason.Err)
		win.SetShouldClose(true)
	}

	metrics := rend.Metrics()
	rows, cols := fbH/metrics.CellHeight, fbW/metrics.CellWidth
	id, err := p.Create(rows, cols)
	if err != nil {
		log.Fatalf("create terminal: %v", err)
	}
	defer p.Remove(id)
	p.SetLayout(id, pool.Rect{Width: float64(fbW), Height: float64(fbH)})

	send := func(data []byte) {
		p.WithTerminal(id, func(t *terminal.Terminal) {
			t.WriteInput(data)
		})
	}
	win.SetCharCallback(func(_ *glfw.Window, ch rune) {
		send([]byte(string(ch)))
	})
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action == glfw.Release {
			return
		}
		switch key {
		case glfw.KeyEnter:
			send([]byte{'\r'})
		case glfw.KeyBackspace:
			send([]byte{0x7f})
		case glfw.KeyTab:
			send([]byte{'\t'})
		case glfw.KeyEscape:
			send([]byte{0x1b})
		case glfw.KeyUp:
			send([]byte("\x1b[A"))
		case glfw.KeyDown:
			send([]byte("\x1b[B"))
		case glfw.KeyRight:
			send([]byte("\x1b[C"))
		case glfw.KeyLeft:
			send([]byte("\x1b[D"))
		}
	})

	if *bridgeAddr != "" {
		bridge := hostbridge.New(p, 100*time.Millisecond)
		go func() {
			if err := http.ListenAndServe(*bridgeAddr, bridge); err != nil {
				log.Printf("[WARN] bridge: %v", err)
			}
		}()
	}

	for !win.ShouldClose() {
		if p.NeedsRenderFlag().CheckAndClear() {
			p.RenderAll(rend)
		}
		win.SwapBuffers()
		glfw.PollEvents()
	}
}
