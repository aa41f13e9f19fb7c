package caption

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
)

type fakeCaptioner struct {
	standard, detailed string
	err                error
	calls              []GenerateOptions
}

func (f *fakeCaptioner) Caption(ctx context.Context, img Image, opts GenerateOptions) (string, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return "", f.err
	}
	if opts.DoSample {
		return f.detailed, nil
	}
	return f.standard, nil
}
func (f *fakeCaptioner) Name() string   { return "fake-blip" }
func (f *fakeCaptioner) Device() string { return "cpu" }

func writeImage(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := imaging.Save(imaging.New(w, h, color.NRGBA{30, 120, 200, 255}), path); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func fixedDescriber(c Captioner) *Describer {
	d := NewDescriber(c, 256)
	d.Now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	d.NewID = func() string { return "id-1" }
	return d
}

func TestDescribeSuccess(t *testing.T) {
	path := writeImage(t, "walk.png", 800, 400)
	fc := &fakeCaptioner{standard: "a woman walking a dog in the park", detailed: "a woman in a red coat walks her dog through a green park"}
	a := fixedDescriber(fc).Describe(context.Background(), path)

	if a.Failed() {
		t.Fatalf("unexpected failure: %s", a.Error)
	}
	if len(fc.calls) != 2 || fc.calls[0] != StandardPass || fc.calls[1] != DetailedPass {
		t.Fatalf("unexpected passes %+v", fc.calls)
	}
	if a.Filename != "walk.png" || a.ID != "id-1" || a.Timestamp != "2024-05-01T10:00:00Z" {
		t.Fatalf("unexpected header %+v", a)
	}
	p := a.ImageProperties
	if p == nil || p.Width != 800 || p.Height != 400 || p.AspectRatio != 2 || p.Format != "PNG" {
		t.Fatalf("unexpected properties %+v", p)
	}
	if len(a.Captions) != 2 || a.Captions[0].Type != "standard" || a.Captions[0].Confidence != 0.85 || a.Captions[1].Confidence != 0.80 {
		t.Fatalf("unexpected captions %+v", a.Captions)
	}
	if PrimaryCaption(a) != fc.standard {
		t.Fatalf("primary caption should be the standard pass")
	}
	if strings.Join(a.Tags, ",") != "dog,park,walking,woman" {
		t.Fatalf("unexpected tags %v", a.Tags)
	}
	if a.SceneContext.Setting != "outdoor" || a.SceneContext.ActivityLevel != "medium" {
		t.Fatalf("unexpected scene %+v", a.SceneContext)
	}
	if !strings.HasPrefix(a.AIDescription, fc.standard+" This appears to be an outdoor scene.") {
		t.Fatalf("unexpected description %q", a.AIDescription)
	}
	if a.Metadata == nil || a.Metadata.ModelUsed != "fake-blip" || a.Metadata.AnalysisVersion != "1.0" {
		t.Fatalf("unexpected metadata %+v", a.Metadata)
	}
}

func TestDescribeBackendFailure(t *testing.T) {
	path := writeImage(t, "x.jpg", 10, 10)
	a := fixedDescriber(&fakeCaptioner{err: errors.New("backend down")}).Describe(context.Background(), path)
	if !a.Failed() || !strings.Contains(a.Error, "backend down") {
		t.Fatalf("expected failure analysis got %+v", a)
	}
	if a.AIDescription != failedDescription || len(a.Captions) != 0 || len(a.Tags) != 0 {
		t.Fatalf("unexpected failure fields %+v", a)
	}
	if strings.Join(a.RelatedTopics, "|") != "image analysis|technical support" {
		t.Fatalf("unexpected topics %v", a.RelatedTopics)
	}
	if PrimaryCaption(a) != "No caption available" {
		t.Fatalf("unexpected primary caption %q", PrimaryCaption(a))
	}

	b, _ := json.Marshal(a)
	s := string(b)
	for _, frag := range []string{`"captions":[]`, `"tags":[]`, `"scene_context":{}`, `"error":"standard caption: backend down"`} {
		if !strings.Contains(s, frag) {
			t.Fatalf("expected %s in %s", frag, s)
		}
	}
	if strings.Contains(s, "image_properties") || strings.Contains(s, "metadata") {
		t.Fatalf("failure analysis should omit properties and metadata: %s", s)
	}
}

func TestDescribeUndecodableImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := writeFile(path, "not an image"); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc := &fakeCaptioner{standard: "x", detailed: "y"}
	a := fixedDescriber(fc).Describe(context.Background(), path)
	if !a.Failed() {
		t.Fatalf("expected failure for broken image")
	}
	if len(fc.calls) != 0 {
		t.Fatalf("backend must not be called for undecodable input")
	}
}

func TestDescribeAttachesVisibleText(t *testing.T) {
	path := writeImage(t, "sign.png", 20, 20)
	d := fixedDescriber(&fakeCaptioner{standard: "a sign", detailed: "a blue sign"})
	d.VisibleText = func(string) (string, error) { return "OPEN", nil }
	if a := d.Describe(context.Background(), path); a.VisibleText != "OPEN" {
		t.Fatalf("expected visible text, got %q", a.VisibleText)
	}
}

func TestLoadImageDownscales(t *testing.T) {
	path := writeImage(t, "big.jpeg", 2000, 1000)
	img, props, err := LoadImage(path, 500)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if props.Width != 2000 || props.Format != "JPEG" {
		t.Fatalf("properties must describe the original: %+v", props)
	}
	if b := img.Pixels.Bounds(); b.Dx() != 500 || b.Dy() != 250 {
		t.Fatalf("expected 500x250 got %dx%d", b.Dx(), b.Dy())
	}
}

func TestLoadImageRejectsUnsupported(t *testing.T) {
	if _, _, err := LoadImage("notes.txt", 0); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported got %v", err)
	}
}
