// Package compositor blits per-terminal composed surfaces into the final
// window drawable. Degenerate for a single terminal; for split views each
// pane lands at its layout rect in z-order, which is the caller's stable
// enumeration order. No blending happens beyond source-over alpha where
// rects overlap — and they should not.
package compositor

import "image"

// Target is the drawable panes are composed into. Satisfied by the
// renderer's Surface implementations.
type Target interface {
	Blit(src image.Image, x, y int)
}

// Pane is one terminal's composed output and where it goes in the window.
type Pane struct {
	Src  image.Image
	X, Y int
}

// Compose blits panes onto dst in slice order.
func Compose(dst Target, panes []Pane) {
	for _, p := range panes {
		if p.Src == nil {
			continue
		}
		dst.Blit(p.Src, p.X, p.Y)
	}
}
