package caption

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// GenerateOptions are the decoding parameters passed to a backend for one caption pass.
type GenerateOptions struct {
	MaxLength   int
	NumBeams    int
	Temperature float64
	DoSample    bool
}

var (
	// StandardPass is the short, beam-searched caption used as the primary caption.
	StandardPass = GenerateOptions{MaxLength: 50, NumBeams: 5}
	// DetailedPass is the longer, sampled caption.
	DetailedPass = GenerateOptions{MaxLength: 75, NumBeams: 3, Temperature: 0.7, DoSample: true}
)

// Image is a decoded input ready for a backend.
type Image struct {
	Name   string      // base file name
	Path   string      // original file on disk
	Pixels image.Image // RGB, downscaled to the configured maximum side
}

// Captioner turns an image into a caption.
type Captioner interface {
	Caption(ctx context.Context, img Image, opts GenerateOptions) (string, error)
	Name() string
	Device() string
}

// BackendOptions configure NewCaptioner.
type BackendOptions struct {
	Kind      string // http, exec or ocr
	URL       string
	Command   string
	Model     string
	Projector string
	Timeout   time.Duration
}

// NewCaptioner builds the backend selected by opts.Kind.
func NewCaptioner(opts BackendOptions) (Captioner, error) {
	switch opts.Kind {
	case "http", "":
		return NewHTTPCaptioner(opts.URL, opts.Model, opts.Timeout), nil
	case "exec":
		return NewExecCaptioner(opts.Command, opts.Model, opts.Projector), nil
	case "ocr":
		return NewOCRCaptioner(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Kind)
}

// LoadImage decodes path, records its properties and prepares RGB pixels no larger than maxSide.
// maxSide <= 0 keeps the original size.
func LoadImage(path string, maxSide int) (Image, ImageProperties, error) {
	if !IsSupportedImage(filepath.Base(path)) {
		return Image{}, ImageProperties{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, ImageProperties{}, fmt.Errorf("open image: %w", err)
	}
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return Image{}, ImageProperties{}, fmt.Errorf("open image: empty bounds %dx%d", w, h)
	}
	props := ImageProperties{
		Width:       w,
		Height:      h,
		AspectRatio: math.Round(float64(w)/float64(h)*100) / 100,
		Format:      "JPEG",
	}
	if f, err := imaging.FormatFromFilename(path); err == nil {
		props.Format = f.String()
	}

	// flatten any alpha onto white so every backend sees plain RGB
	rgb := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})
	rgb = imaging.Overlay(rgb, src, image.Pt(0, 0), 1.0)
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		rgb = imaging.Fit(rgb, maxSide, maxSide, imaging.Lanczos)
	}
	return Image{Name: filepath.Base(path), Path: path, Pixels: rgb}, props, nil
}
