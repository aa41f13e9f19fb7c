package ocr

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestAdaptiveThresholdKeepsFaintStrokes(t *testing.T) {
	bg := color.NRGBA{120, 120, 120, 255}
	ink := color.NRGBA{105, 105, 105, 255}
	img := imaging.New(40, 40, bg)
	img.Set(20, 20, ink)
	img.Set(0, 0, ink) // window clipped by both edges
	img.Set(39, 5, ink)

	out := adaptiveThreshold(img, 15, 7)
	for _, p := range [][2]int{{20, 20}, {0, 0}, {39, 5}} {
		if c := out.NRGBAAt(p[0], p[1]); c.R != 0 {
			t.Fatalf("faint stroke at %v lost: %+v", p, c)
		}
	}
	for _, p := range [][2]int{{10, 10}, {1, 0}, {0, 39}, {39, 39}} {
		if c := out.NRGBAAt(p[0], p[1]); c.R != 255 {
			t.Fatalf("background at %v turned black: %+v", p, c)
		}
	}
}

func TestAdaptiveThresholdUniformImageStaysWhite(t *testing.T) {
	out := adaptiveThreshold(imaging.New(16, 9, color.NRGBA{200, 200, 200, 255}), 4, 5)
	for y := 0; y < 9; y++ {
		for x := 0; x < 16; x++ {
			if out.NRGBAAt(x, y).R != 255 {
				t.Fatalf("pixel %d,%d turned black on a uniform image", x, y)
			}
		}
	}
}
