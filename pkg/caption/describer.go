package caption

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// TextExtractor returns the visible text of the image at path.
type TextExtractor func(path string) (string, error)

// Describer produces a full Analysis for one image file.
type Describer struct {
	Captioner    Captioner
	MaxImageSide int
	// VisibleText is optional; when set its output is attached as visible_text.
	VisibleText TextExtractor
	Now         func() time.Time
	NewID       func() string
}

// NewDescriber wires c with wall clock time and random analysis ids.
func NewDescriber(c Captioner, maxImageSide int) *Describer {
	return &Describer{
		Captioner:    c,
		MaxImageSide: maxImageSide,
		Now:          time.Now,
		NewID:        func() string { return uuid.NewString() },
	}
}

// Describe never fails: any error is reported inside the returned Analysis.
func (d *Describer) Describe(ctx context.Context, path string) Analysis {
	a, err := d.describe(ctx, path)
	if err != nil {
		log.Printf("ERROR processing %s: %v", path, err)
		return d.failed(path, err)
	}
	return a
}

func (d *Describer) describe(ctx context.Context, path string) (Analysis, error) {
	img, props, err := LoadImage(path, d.MaxImageSide)
	if err != nil {
		return Analysis{}, err
	}
	standard, err := d.Captioner.Caption(ctx, img, StandardPass)
	if err != nil {
		return Analysis{}, fmt.Errorf("standard caption: %w", err)
	}
	detailed, err := d.Captioner.Caption(ctx, img, DetailedPass)
	if err != nil {
		return Analysis{}, fmt.Errorf("detailed caption: %w", err)
	}

	tags := ExtractTags(standard)
	scene := AnalyzeSceneContext(standard)
	a := Analysis{
		ID:              d.newID(),
		Filename:        filepath.Base(path),
		Timestamp:       d.now().Format(time.RFC3339),
		ImageProperties: &props,
		AIDescription:   CreateAIDescription(standard, scene, tags),
		Captions: []Caption{
			{Type: "standard", Text: standard, Confidence: 0.85},
			{Type: "detailed", Text: detailed, Confidence: 0.80},
		},
		Tags:          tags,
		SceneContext:  scene,
		RelatedTopics: GenerateRelatedTopics(tags, scene),
		Metadata: &Metadata{
			ModelUsed:        d.Captioner.Name(),
			ProcessingDevice: d.Captioner.Device(),
			AnalysisVersion:  AnalysisVersion,
		},
	}
	if d.VisibleText != nil {
		if text, err := d.VisibleText(path); err == nil {
			a.VisibleText = text
		}
	}
	return a, nil
}

func (d *Describer) failed(path string, err error) Analysis {
	return Analysis{
		ID:            d.newID(),
		Filename:      filepath.Base(path),
		Timestamp:     d.now().Format(time.RFC3339),
		Error:         err.Error(),
		AIDescription: failedDescription,
		Captions:      []Caption{},
		Tags:          []string{},
		RelatedTopics: []string{"image analysis", "technical support"},
	}
}

func (d *Describer) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Describer) newID() string {
	if d.NewID == nil {
		return uuid.NewString()
	}
	return d.NewID()
}
