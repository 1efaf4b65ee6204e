package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

type imageTarget struct {
	img *image.RGBA
}

func (t *imageTarget) Blit(src image.Image, x, y int) {
	b := src.Bounds()
	draw.Draw(t.img, image.Rect(x, y, x+b.Dx(), y+b.Dy()), src, b.Min, draw.Over)
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestComposePlacesPanesAtRects(t *testing.T) {
	dst := &imageTarget{img: image.NewRGBA(image.Rect(0, 0, 40, 20))}
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	Compose(dst, []Pane{
		{Src: solid(20, 20, red), X: 0, Y: 0},
		{Src: solid(20, 20, blue), X: 20, Y: 0},
	})

	if got := dst.img.RGBAAt(5, 5); got != red {
		t.Errorf("left pane pixel = %v, want %v", got, red)
	}
	if got := dst.img.RGBAAt(25, 5); got != blue {
		t.Errorf("right pane pixel = %v, want %v", got, blue)
	}
}

func TestComposeZOrderIsSliceOrder(t *testing.T) {
	dst := &imageTarget{img: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	Compose(dst, []Pane{
		{Src: solid(10, 10, red)},
		{Src: solid(10, 10, blue)},
	})

	if got := dst.img.RGBAAt(5, 5); got != blue {
		t.Errorf("later pane should win overlap, got %v", got)
	}
}

func TestComposeSkipsNilPanes(t *testing.T) {
	dst := &imageTarget{img: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	Compose(dst, []Pane{{Src: nil, X: 1, Y: 1}})
	if got := dst.img.RGBAAt(1, 1); got != (color.RGBA{}) {
		t.Errorf("nil pane should draw nothing, got %v", got)
	}
}
