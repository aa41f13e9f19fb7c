package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"imgcap/models"
	"imgcap/pkg/caption"
	"imgcap/pkg/store"
)

// ErrNoImages is returned by Run when the input folder holds no supported image.
var ErrNoImages = errors.New("no images found")

// Describer produces an analysis for one image path. *caption.Describer satisfies it.
type Describer interface {
	Describe(ctx context.Context, path string) caption.Analysis
}

// Recorder persists runs and analyses. *store.Store satisfies it.
type Recorder interface {
	SaveRun(run *models.CaptionRun) error
	SaveAnalysis(runID string, a caption.Analysis) (*models.ImageAnalysis, error)
}

// Options configure Run and Watch.
type Options struct {
	InputDir   string
	OutputDir  string
	ArchiveDir string // when set, successfully described files are moved here
	Workers    int    // <= 0 means NumCPU
	Describer  Describer
	Recorder   Recorder // optional
	Verbose    bool
	// OnResult, when set, is called once per finished analysis from the worker goroutine.
	OnResult func(caption.Analysis)
}

// Summary reports the outcome of Run.
type Summary struct {
	RunID        string
	Total        int
	Failed       int
	AIOutput     string
	SimpleOutput string
}

// workers caps the pool at n jobs; n <= 0 means no job cap.
func (o Options) workers(n int) int {
	w := o.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if n > 0 && w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

func (o Options) logV(format string, args ...any) {
	if o.Verbose {
		log.Printf(format, args...)
	}
}

// AIOutputPath is where Run writes ai_captions.json.
func (o Options) AIOutputPath() string {
	return filepath.Join(o.OutputDir, AIOutputName)
}

// Run describes every supported image in InputDir and writes both output documents.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Describer == nil {
		return nil, fmt.Errorf("pipeline: no describer configured")
	}
	log.Printf("Processing images from: %s", opts.InputDir)
	images, err := caption.ListImages(opts.InputDir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		log.Printf("No images found in %s", opts.InputDir)
		return nil, ErrNoImages
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	run := &models.CaptionRun{RunID: uuid.NewString(), InputDir: opts.InputDir, StartedAt: time.Now()}
	if opts.Recorder != nil {
		if err := opts.Recorder.SaveRun(run); err != nil {
			log.Printf("WARN save run %s: %v", run.RunID, err)
		}
	}

	log.Printf("Found %d images to process (workers=%d)", len(images), opts.workers(len(images)))
	results := describeAll(ctx, opts, run.RunID, images)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &Summary{RunID: run.RunID, Total: len(results), AIOutput: opts.AIOutputPath()}
	summary.SimpleOutput = SimplePath(summary.AIOutput)
	for _, a := range results {
		if a.Failed() {
			summary.Failed++
		}
	}
	if err := WriteOutputs(summary.AIOutput, results); err != nil {
		return nil, fmt.Errorf("write outputs: %w", err)
	}
	log.Printf("Processing complete! Results saved to: %s", summary.AIOutput)
	log.Printf("Generated AI-optimized descriptions for %d images (%d failed).", summary.Total, summary.Failed)
	log.Printf("Simple format also saved to: %s", summary.SimpleOutput)

	// sources leave the input folder only once their results are on disk
	for i, a := range results {
		archive(opts, images[i], a)
	}

	if opts.Recorder != nil {
		store.FinishRun(run, summary.Total, summary.Failed)
		if err := opts.Recorder.SaveRun(run); err != nil {
			log.Printf("WARN finish run %s: %v", run.RunID, err)
		}
	}
	return summary, nil
}

// describeAll runs a fixed pool of workers over images; results keep input order.
func describeAll(ctx context.Context, opts Options, runID string, images []string) []caption.Analysis {
	results := make([]caption.Analysis, len(images))
	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < opts.workers(len(images)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				path := images[i]
				log.Printf("[%d/%d] Processing: %s", i+1, len(images), filepath.Base(path))
				a := opts.Describer.Describe(ctx, path)
				results[i] = a
				preview(opts, a)
				finish(opts, runID, a)
			}
		}()
	}
	for i := range images {
		select {
		case idxCh <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(idxCh)
	wg.Wait()
	return results
}

// finish persists and publishes one analysis.
func finish(opts Options, runID string, a caption.Analysis) {
	if opts.Recorder != nil {
		if _, err := opts.Recorder.SaveAnalysis(runID, a); err != nil {
			log.Printf("ERROR save analysis %s: %v", a.Filename, err)
		}
	}
	if opts.OnResult != nil {
		opts.OnResult(a)
	}
}

// archive moves a described source into ArchiveDir. Failed images stay for a retry.
func archive(opts Options, path string, a caption.Analysis) {
	if opts.ArchiveDir == "" || a.Failed() {
		return
	}
	if dst, err := archiveFile(path, opts.ArchiveDir); err != nil {
		log.Printf("WARN archive %s: %v", a.Filename, err)
	} else {
		opts.logV("moved %s to %s", a.Filename, dst)
	}
}

func preview(opts Options, a caption.Analysis) {
	if a.Failed() {
		log.Printf("  FAILED %s: %s", a.Filename, a.Error)
		return
	}
	desc := shorten(a.AIDescription, 100)
	tags := a.Tags
	if len(tags) > 5 {
		tags = tags[:5]
	}
	log.Printf("  AI Description: %s", desc)
	log.Printf("  Tags: %s", strings.Join(tags, ", "))
	opts.logV("  Related topics: %s", strings.Join(a.RelatedTopics, ", "))
}

// shorten keeps the first n runes of s.
func shorten(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
