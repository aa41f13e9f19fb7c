package ocr

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestBestPassPrefersLegibleConfidentText(t *testing.T) {
	passes := []passResult{
		{name: "noise", text: "~~ |; ,. ~~", conf: 90},
		{name: "low", text: "OPEN DAILY", conf: 20},
		{name: "good", text: "OPEN DAILY 9AM", conf: 80},
		{name: "empty", text: "", conf: 99},
	}
	best, ok := bestPass(passes)
	if !ok {
		t.Fatalf("expected a pass")
	}
	if best.name != "good" {
		t.Fatalf("expected good got %s", best.name)
	}
}

func TestBestPassNone(t *testing.T) {
	if _, ok := bestPass([]passResult{{name: "a"}}); ok {
		t.Fatalf("expected no pass for empty text")
	}
}

func TestLegibleWords(t *testing.T) {
	got := legibleWords("a Hello ~~~ w0rld |i Rp600.000")
	want := []string{"Hello", "w0rld", "Rp600.000"}
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v got %v", want, got)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	if got := normalizeText("  one\ttwo\n\nthree  "); got != "one two three" {
		t.Fatalf("got %q", got)
	}
}

func TestAdaptiveThresholdMarksDarkStroke(t *testing.T) {
	img := imaging.New(40, 40, color.NRGBA{255, 255, 255, 255})
	for y := 10; y < 30; y++ {
		img.Set(20, y, color.NRGBA{0, 0, 0, 255})
	}
	out := adaptiveThreshold(img, 15, 7)
	if out.NRGBAAt(20, 15).R != 0 {
		t.Fatalf("expected stroke pixel to be black")
	}
	if out.NRGBAAt(5, 5).R != 255 {
		t.Fatalf("expected background pixel to stay white")
	}
	thick := dilate(out, 1)
	if thick.NRGBAAt(21, 15).R != 0 {
		t.Fatalf("expected dilation to widen the stroke")
	}
}
