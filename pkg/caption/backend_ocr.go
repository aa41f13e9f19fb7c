package caption

import (
	"context"
	"errors"
	"strings"

	"imgcap/pkg/ocr"
)

// OCRCaptioner needs no model: it captions an image by the text Tesseract can read in it.
type OCRCaptioner struct {
	extract func(path string) (ocr.Text, error)
}

func NewOCRCaptioner() *OCRCaptioner {
	return &OCRCaptioner{extract: ocr.ExtractText}
}

func (o *OCRCaptioner) Name() string   { return "tesseract-ocr" }
func (o *OCRCaptioner) Device() string { return "cpu" }

func (o *OCRCaptioner) Caption(ctx context.Context, img Image, opts GenerateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t, err := o.extract(img.Path)
	if err != nil {
		if errors.Is(err, ocr.ErrNoText) {
			return "", ErrNoCaption
		}
		return "", err
	}
	words := strings.Fields(t.Content)
	limit := opts.MaxLength
	if limit <= 0 {
		limit = StandardPass.MaxLength
	}
	// leave room for the fixed wrapper words
	if limit -= 5; limit < 1 {
		limit = 1
	}
	if len(words) > limit {
		words = words[:limit]
	}
	return `an image with the text "` + strings.Join(words, " ") + `"`, nil
}
