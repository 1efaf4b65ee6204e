package renderer

import (
	"image"
	"image/color"
	"image/draw"
)

// Surface is the drawable the renderer presents into once per frame. The
// production implementation (GLSurface) uploads to a window's GL context;
// ImageSurface keeps everything on the CPU for headless hosts and tests.
type Surface interface {
	// Resize reallocates the backing store. A no-op when the size is
	// unchanged, so callers may invoke it every frame.
	Resize(width, height int)
	// Fill floods the whole surface with one color.
	Fill(c color.RGBA)
	// Blit copies src onto the surface with its top-left corner at (x, y),
	// source-over.
	Blit(src image.Image, x, y int)
	// Present pushes the composed frame to the display. An error means the
	// frame is skipped; the next tick retries.
	Present() error
}

// ImageSurface is a CPU-side Surface backed by an image.RGBA.
type ImageSurface struct {
	img *image.RGBA
}

// NewImageSurface allocates a width×height CPU surface.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Resize reallocates the backing image only if the size actually changed;
// steady-state frames reuse the buffer.
func (s *ImageSurface) Resize(width, height int) {
	b := s.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Fill floods the surface with c.
func (s *ImageSurface) Fill(c color.RGBA) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Blit copies src onto the surface at (x, y).
func (s *ImageSurface) Blit(src image.Image, x, y int) {
	b := src.Bounds()
	dst := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	draw.Draw(s.img, dst, src, b.Min, draw.Over)
}

// Present is a no-op for a CPU surface; the composed image is the result.
func (s *ImageSurface) Present() error { return nil }

// Image exposes the composed frame. Callers must treat it as read-only
// until the next render pass.
func (s *ImageSurface) Image() *image.RGBA { return s.img }
