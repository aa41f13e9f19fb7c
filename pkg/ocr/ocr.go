package ocr

import (
	"fmt"
	"log"
	"strings"
)

// minConfidence is the mean word confidence (0..100) below which text is treated as noise.
const minConfidence = 30

// Text is the visible text recovered from an image.
type Text struct {
	Content    string
	Confidence float64 // 0..1
	Pass       string
}

// ExtractText runs several Tesseract passes over path and keeps the most legible result.
// It returns ErrNoText when the image carries no readable words.
func ExtractText(path string) (Text, error) {
	passes, err := runAllPasses(path)
	if err != nil {
		return Text{}, fmt.Errorf("ocr passes: %w", err)
	}
	best, ok := bestPass(passes)
	if !ok || len(legibleWords(best.text)) == 0 || best.conf < minConfidence {
		return Text{}, ErrNoText
	}
	log.Printf("OCR %s pass=%s conf=%.1f snippet=%q", path, best.name, best.conf, snippet(best.text, 120))
	return Text{
		Content:    strings.Join(legibleWords(best.text), " "),
		Confidence: best.conf / 100,
		Pass:       best.name,
	}, nil
}

// VisibleText adapts ExtractText to a plain string result.
func VisibleText(path string) (string, error) {
	t, err := ExtractText(path)
	if err != nil {
		return "", err
	}
	return t.Content, nil
}
