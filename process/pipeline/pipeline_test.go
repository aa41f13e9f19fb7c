package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"

	"imgcap/models"
	"imgcap/pkg/caption"
)

// fakeDescriber fails every file whose name starts with "bad".
type fakeDescriber struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeDescriber) Describe(ctx context.Context, path string) caption.Analysis {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	name := filepath.Base(path)
	if strings.HasPrefix(name, "bad") {
		return caption.Analysis{ID: "x", Filename: name, Error: "decode failed", Captions: []caption.Caption{}, Tags: []string{}}
	}
	return caption.Analysis{
		ID:            "id-" + name,
		Filename:      name,
		AIDescription: "This image shows " + name,
		Captions:      []caption.Caption{{Type: "standard", Text: "caption of " + name, Confidence: 0.85}},
		Tags:          []string{"dog"},
	}
}

type memRecorder struct {
	mu       sync.Mutex
	runs     []models.CaptionRun
	analyses map[string]string
}

func (m *memRecorder) SaveRun(run *models.CaptionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memRecorder) SaveAnalysis(runID string, a caption.Analysis) (*models.ImageAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.analyses == nil {
		m.analyses = map[string]string{}
	}
	m.analyses[a.Filename] = runID
	return &models.ImageAnalysis{AnalysisID: a.ID, RunID: runID, FileName: a.Filename}, nil
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func readDoc(t *testing.T, path string, v any) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func TestRunNoImages(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "notes.txt")
	out := filepath.Join(t.TempDir(), "outputs")
	_, err := Run(context.Background(), Options{InputDir: in, OutputDir: out, Describer: &fakeDescriber{}})
	if !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output dir should not be created")
	}
}

func TestRunMissingInputDir(t *testing.T) {
	_, err := Run(context.Background(), Options{InputDir: filepath.Join(t.TempDir(), "nope"), OutputDir: t.TempDir(), Describer: &fakeDescriber{}})
	if err == nil || errors.Is(err, ErrNoImages) {
		t.Fatalf("expected a listing error, got %v", err)
	}
}

func TestRunWritesBothDocuments(t *testing.T) {
	in := t.TempDir()
	for _, n := range []string{"c.JPG", "a.png", "bad.jpeg", "b.jpg", "readme.md"} {
		touch(t, in, n)
	}
	out := filepath.Join(t.TempDir(), "outputs")
	fd := &fakeDescriber{}
	rec := &memRecorder{}
	var mu sync.Mutex
	seen := 0
	sum, err := Run(context.Background(), Options{
		InputDir:  in,
		OutputDir: out,
		Workers:   3,
		Describer: fd,
		Recorder:  rec,
		OnResult: func(caption.Analysis) {
			mu.Lock()
			seen++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Total != 4 || sum.Failed != 1 || fd.calls != 4 || seen != 4 {
		t.Fatalf("unexpected summary %+v calls=%d seen=%d", sum, fd.calls, seen)
	}
	if sum.AIOutput != filepath.Join(out, AIOutputName) || sum.SimpleOutput != filepath.Join(out, SimpleOutputName) {
		t.Fatalf("unexpected output paths %+v", sum)
	}

	var ai AIDocument
	readDoc(t, sum.AIOutput, &ai)
	var names []string
	for _, a := range ai.Images {
		names = append(names, a.Filename)
	}
	if strings.Join(names, ",") != "a.png,b.jpg,bad.jpeg,c.JPG" {
		t.Fatalf("results lost input order: %v", names)
	}

	var simple SimpleDocument
	readDoc(t, sum.SimpleOutput, &simple)
	if len(simple.Images) != 4 || simple.Images[0].Caption != "caption of a.png" {
		t.Fatalf("unexpected simple doc %+v", simple)
	}
	if simple.Images[2].Filename != "bad.jpeg" || simple.Images[2].Caption != "No caption available" {
		t.Fatalf("failed entry should carry the placeholder caption: %+v", simple.Images[2])
	}

	if len(rec.analyses) != 4 || rec.analyses["a.png"] != sum.RunID {
		t.Fatalf("analyses not recorded under run %s: %v", sum.RunID, rec.analyses)
	}
	last := rec.runs[len(rec.runs)-1]
	if last.RunID != sum.RunID || last.Total != 4 || last.Failed != 1 || last.FinishedAt == nil {
		t.Fatalf("run not finished: %+v", last)
	}
}

func TestRunArchivesSuccessfulImages(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.png")
	touch(t, in, "bad.png")
	archive := filepath.Join(t.TempDir(), "done")
	if err := os.MkdirAll(archive, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, archive, "a.png")

	_, err := Run(context.Background(), Options{InputDir: in, OutputDir: t.TempDir(), ArchiveDir: archive, Describer: &fakeDescriber{}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(in, "a.png")); !os.IsNotExist(err) {
		t.Fatalf("a.png should have been moved")
	}
	if _, err := os.Stat(filepath.Join(archive, "a-1.png")); err != nil {
		t.Fatalf("expected collision-free archive name: %v", err)
	}
	if _, err := os.Stat(filepath.Join(in, "bad.png")); err != nil {
		t.Fatalf("failed image must stay in place: %v", err)
	}
}

func TestArchiveFileShrinksLargeImages(t *testing.T) {
	src := filepath.Join(t.TempDir(), "big.png")
	img := imaging.New(1200, 900, color.NRGBA{0, 0, 0, 255})
	// noise defeats PNG compression so the file exceeds the budget
	seed := uint32(7)
	for i := 0; i < len(img.Pix); i++ {
		seed = seed*1664525 + 1013904223
		img.Pix[i] = byte(seed >> 24)
	}
	if err := imaging.Save(img, src); err != nil {
		t.Fatal(err)
	}
	fi, _ := os.Stat(src)
	if fi.Size() <= archiveMaxBytes {
		t.Skip("fixture compressed below the budget")
	}
	dst, err := archiveFile(src, t.TempDir())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	out, err := imaging.Open(dst)
	if err != nil {
		t.Fatalf("open archived: %v", err)
	}
	if out.Bounds().Dx() >= 1200 {
		t.Fatalf("expected a downscaled copy, got width %d", out.Bounds().Dx())
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should be removed")
	}
}

func TestSimplePath(t *testing.T) {
	cases := map[string]string{
		filepath.Join("out", "ai_captions.json"):      filepath.Join("out", "captions.json"),
		filepath.Join("out", "run1_ai_captions.json"): filepath.Join("out", "run1_captions.json"),
		filepath.Join("out", "other.json"):            filepath.Join("out", "captions.json"),
	}
	for in, want := range cases {
		if got := SimplePath(in); got != want {
			t.Fatalf("SimplePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMergeAndReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), AIOutputName)
	doc, err := ReadAIDocument(path)
	if err != nil || doc.Images == nil || len(doc.Images) != 0 {
		t.Fatalf("missing file should read as empty: %+v %v", doc, err)
	}
	list := MergeAnalysis(nil, caption.Analysis{Filename: "a.png", AIDescription: "old"})
	list = MergeAnalysis(list, caption.Analysis{Filename: "b.png"})
	list = MergeAnalysis(list, caption.Analysis{Filename: "a.png", AIDescription: "new"})
	if len(list) != 2 || list[0].AIDescription != "new" {
		t.Fatalf("unexpected merge %+v", list)
	}
	if err := WriteOutputs(path, list); err != nil {
		t.Fatal(err)
	}
	doc, err = ReadAIDocument(path)
	if err != nil || len(doc.Images) != 2 {
		t.Fatalf("round trip: %+v %v", doc, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteOutputsKeepsHTMLAndUnicode(t *testing.T) {
	path := filepath.Join(t.TempDir(), AIOutputName)
	a := caption.Analysis{Filename: "café.png", AIDescription: "a <b> & c"}
	if err := WriteOutputs(path, []caption.Analysis{a}); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), "café.png") || !strings.Contains(string(b), "a <b> & c") {
		t.Fatalf("expected literal text, got %s", b)
	}
	if !strings.Contains(string(b), "\n  \"images\"") {
		t.Fatalf("expected two-space indentation, got %s", b)
	}
}

func TestWatchMergesNewFiles(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	// an earlier run already produced this entry
	if err := WriteOutputs(filepath.Join(out, AIOutputName), []caption.Analysis{{Filename: "old.png"}}); err != nil {
		t.Fatal(err)
	}
	opts := Options{InputDir: in, OutputDir: out, Workers: 1, Describer: &fakeDescriber{}, Recorder: &memRecorder{}}
	w, err := startWatch(opts)
	if err != nil {
		t.Fatalf("start watch: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveWatch(ctx, w, opts) }()

	touch(t, in, "new.png")
	touch(t, in, "ignored.txt")

	deadline := time.Now().Add(5 * time.Second)
	var doc AIDocument
	for time.Now().Before(deadline) {
		doc, _ = ReadAIDocument(opts.AIOutputPath())
		if len(doc.Images) == 2 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watch: %v", err)
	}
	if len(doc.Images) != 2 || doc.Images[0].Filename != "old.png" || doc.Images[1].Filename != "new.png" {
		t.Fatalf("unexpected merged doc %+v", doc.Images)
	}
	var simple SimpleDocument
	readDoc(t, SimplePath(opts.AIOutputPath()), &simple)
	if len(simple.Images) != 2 {
		t.Fatalf("simple doc not updated: %+v", simple)
	}
}

// cancellingDescriber cancels the run after describing its first image.
type cancellingDescriber struct {
	fakeDescriber
	cancel context.CancelFunc
}

func (c *cancellingDescriber) Describe(ctx context.Context, path string) caption.Analysis {
	a := c.fakeDescriber.Describe(ctx, path)
	c.cancel()
	return a
}

func TestRunCancelledKeepsImagesInPlace(t *testing.T) {
	in := t.TempDir()
	touch(t, in, "a.png")
	touch(t, in, "b.png")
	out := t.TempDir()
	archive := filepath.Join(t.TempDir(), "done")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := Run(ctx, Options{
		InputDir:   in,
		OutputDir:  out,
		ArchiveDir: archive,
		Workers:    1,
		Describer:  &cancellingDescriber{cancel: cancel},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, AIOutputName)); !os.IsNotExist(err) {
		t.Fatalf("no output expected after cancel")
	}
	for _, n := range []string{"a.png", "b.png"} {
		if _, err := os.Stat(filepath.Join(in, n)); err != nil {
			t.Fatalf("%s left the input folder without a written result: %v", n, err)
		}
	}
	if entries, _ := os.ReadDir(archive); len(entries) != 0 {
		t.Fatalf("nothing should be archived, got %d entries", len(entries))
	}
}

func TestShortenKeepsRunes(t *testing.T) {
	long := strings.Repeat("日本", 60)
	got := shorten(long, 100)
	if !utf8.ValidString(got) || utf8.RuneCountInString(got) != 103 {
		t.Fatalf("unexpected preview %q", got)
	}
	if shorten("a dog", 100) != "a dog" {
		t.Fatalf("short description must be kept")
	}
}
