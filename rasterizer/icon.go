package rasterizer

import (
	_ "embed"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed termengine_icon.svg
var iconSVG string

// RenderIconSizes renders the embedded engine icon at the sizes window
// systems typically want, suitable for glfw.Window.SetIcon.
func RenderIconSizes() []image.Image {
	sizes := []int{16, 32, 48, 64, 128, 256}
	var icons []image.Image

	for _, size := range sizes {
		if img := renderSVGToSize(iconSVG, size); img != nil {
			icons = append(icons, img)
		}
	}

	return icons
}

// RenderIcon renders the embedded engine icon at one size.
func RenderIcon(size int) image.Image {
	return renderSVGToSize(iconSVG, size)
}

// renderSVGToSize renders an SVG string to an RGBA image of the specified
// size.
func renderSVGToSize(svgData string, size int) image.Image {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svgData))
	if err != nil {
		return nil
	}

	icon.SetTarget(0, 0, float64(size), float64(size))

	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, rgba, rgba.Bounds())
	dasher := rasterx.NewDasher(size, size, scanner)
	icon.Draw(dasher, 1.0)

	return rgba
}
