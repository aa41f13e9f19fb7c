package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var (
	black = color.NRGBA{0, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
)

// prepare converts src to a contrasted, sharpened grayscale at least minHeight pixels tall.
func prepare(src image.Image, minHeight int) *image.NRGBA {
	gray := imaging.Grayscale(src)
	gray = imaging.AdjustContrast(gray, 15)
	gray = imaging.Sharpen(gray, 0.7)
	if gray.Bounds().Dy() < minHeight {
		gray = imaging.Resize(gray, 0, minHeight, imaging.Lanczos)
	}
	return gray
}

func luma(img image.Image, x, y int) int {
	r, g, b, _ := img.At(x, y).RGBA()
	return int((r + g + b) / 3 >> 8)
}

// adaptiveThreshold binarizes img against the mean of a window around each pixel,
// using an integral image so each lookup is constant time.
func adaptiveThreshold(img image.Image, window int, bias int) *image.NRGBA {
	if window < 3 {
		window = 3
	}
	if window%2 == 0 {
		window++
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := imaging.New(w, h, white)
	half := window / 2
	// integral is padded by one row and column: integral[(y+1)*stride+(x+1)] is the sum of
	// luma over [0..x]x[0..y], and the first row and column stay zero.
	stride := w + 1
	integral := make([]int, stride*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			rowSum += luma(img, b.Min.X+x, b.Min.Y+y)
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + rowSum
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0 := max(x-half, 0), max(y-half, 0)
			x1, y1 := min(x+half, w-1), min(y+half, h-1)
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] - integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			mean := sum / ((x1 - x0 + 1) * (y1 - y0 + 1))
			th := mean - bias
			if th < 0 {
				th = 0
			}
			if luma(img, b.Min.X+x, b.Min.Y+y) < th {
				out.Set(x, y, black)
			}
		}
	}
	return out
}

// dilate thickens dark strokes using a 4-neighborhood, radius times.
func dilate(img *image.NRGBA, radius int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cur := img
	for r := 0; r < radius; r++ {
		next := imaging.New(w, h, white)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				for _, d := range [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x2, y2 := x+d[0], y+d[1]
					if x2 < 0 || y2 < 0 || x2 >= w || y2 >= h {
						continue
					}
					if cur.NRGBAAt(x2, y2).R == 0 {
						next.Set(x, y, black)
						break
					}
				}
			}
		}
		cur = next
	}
	return cur
}
