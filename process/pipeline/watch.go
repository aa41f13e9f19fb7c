package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"imgcap/models"
	"imgcap/pkg/caption"
	"imgcap/pkg/store"
)

const (
	debounceTick   = 250 * time.Millisecond
	debounceStable = 300 * time.Millisecond
)

// Watch describes every supported image that appears in InputDir until ctx is cancelled.
// Each result is merged into the existing output documents by filename.
func Watch(ctx context.Context, opts Options) error {
	w, err := startWatch(opts)
	if err != nil {
		return err
	}
	return serveWatch(ctx, w, opts)
}

func startWatch(opts Options) (*fsnotify.Watcher, error) {
	if opts.Describer == nil {
		return nil, fmt.Errorf("pipeline: no describer configured")
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(opts.InputDir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", opts.InputDir, err)
	}
	return w, nil
}

// serveWatch owns w and closes it on return.
func serveWatch(ctx context.Context, w *fsnotify.Watcher, opts Options) error {
	defer w.Close()
	log.Printf("Watching %s (debounced) ...", opts.InputDir)

	sink, err := newOutputSink(opts.AIOutputPath())
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	run := &models.CaptionRun{RunID: runID, InputDir: opts.InputDir, StartedAt: time.Now()}
	if opts.Recorder != nil {
		if err := opts.Recorder.SaveRun(run); err != nil {
			log.Printf("WARN save run %s: %v", runID, err)
		}
	}

	fileCh := make(chan string, 256)
	var wg sync.WaitGroup
	for i := 0; i < opts.workers(0); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range fileCh {
				log.Printf("NEW %s", filepath.Base(path))
				a := opts.Describer.Describe(ctx, path)
				preview(opts, a)
				finish(opts, runID, a)
				if err := sink.add(a); err != nil {
					log.Printf("ERROR write outputs: %v", err)
					continue
				}
				archive(opts, path, a)
			}
		}()
	}

	err = debounce(ctx, w, fileCh)
	close(fileCh)
	wg.Wait()

	if opts.Recorder != nil {
		total, failed := sink.counts()
		store.FinishRun(run, total, failed)
		if err := opts.Recorder.SaveRun(run); err != nil {
			log.Printf("WARN finish run %s: %v", runID, err)
		}
	}
	return err
}

// debounce forwards created files once they have been quiet for debounceStable.
func debounce(ctx context.Context, w *fsnotify.Watcher, out chan<- string) error {
	pending := map[string]time.Time{}
	ticker := time.NewTicker(debounceTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !caption.IsSupportedImage(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				pending[ev.Name] = time.Now()
			} else if _, seen := pending[ev.Name]; seen && ev.Op&fsnotify.Write == fsnotify.Write {
				pending[ev.Name] = time.Now()
			}
		case <-ticker.C:
			now := time.Now()
			for path, t := range pending {
				if now.Sub(t) > debounceStable {
					delete(pending, path)
					select {
					case out <- path:
					case <-ctx.Done():
						return nil
					}
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("WARN watch error: %v", err)
		}
	}
}

// outputSink keeps the merged document in memory and rewrites both files on every add.
type outputSink struct {
	mu     sync.Mutex
	path   string
	images []caption.Analysis
	added  int
	failed int
}

func newOutputSink(aiPath string) (*outputSink, error) {
	doc, err := ReadAIDocument(aiPath)
	if err != nil {
		return nil, err
	}
	return &outputSink{path: aiPath, images: doc.Images}, nil
}

func (s *outputSink) add(a caption.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = MergeAnalysis(s.images, a)
	s.added++
	if a.Failed() {
		s.failed++
	}
	return WriteOutputs(s.path, s.images)
}

func (s *outputSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.added, s.failed
}
