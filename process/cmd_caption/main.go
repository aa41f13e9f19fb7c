package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"imgcap/pkg/caption"
	"imgcap/pkg/config"
	"imgcap/process/pipeline"
)

// Main: describes every image in a folder, writes ai_captions.json and captions.json, optional watch mode.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	dirFlag := flag.String("dir", cfg.InputDir, "directory to scan for images")
	outFlag := flag.String("out", cfg.OutputDir, "directory for ai_captions.json and captions.json")
	workers := flag.Int("workers", cfg.Workers, "Worker pool size (default NumCPU)")
	backend := flag.String("backend", cfg.Backend, "captioning backend: http, exec or ocr")
	archive := flag.String("archive", cfg.ArchiveDir, "move successfully described images to this directory")
	withOCR := flag.Bool("ocr", cfg.EnableOCR, "attach text read by tesseract as visible_text")
	watch := flag.Bool("watch", false, "Watch directory for new files after the initial pass")
	dryRun := flag.Bool("dry-run", false, "List candidate images without describing them")
	verbose := flag.Bool("verbose", false, "Verbose per-file logging")
	flag.Parse()

	if *dryRun {
		log.Printf("Dry-run: scanning %s", *dirFlag)
		files, err := caption.ListImages(*dirFlag)
		if err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		log.Printf("Found %d candidate files", len(files))
		for _, f := range files {
			log.Printf("  %s", filepath.Base(f))
		}
		return
	}

	cfg.Backend = strings.ToLower(*backend)
	cfg.EnableOCR = *withOCR
	d, err := pipeline.NewDescriber(cfg)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}
	log.Printf("Using backend %s (%s) on %s", cfg.Backend, d.Captioner.Name(), d.Captioner.Device())

	opts := pipeline.Options{
		InputDir:   *dirFlag,
		OutputDir:  *outFlag,
		ArchiveDir: *archive,
		Workers:    *workers,
		Describer:  d,
		Verbose:    *verbose,
	}
	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		log.Printf("WARN database unavailable, results go to JSON only: %v", err)
	} else if st != nil {
		defer st.Close()
		opts.Recorder = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := pipeline.Run(ctx, opts); err != nil && !errors.Is(err, pipeline.ErrNoImages) {
		log.Fatalf("run failed: %v", err)
	} else if err != nil && !*watch {
		os.Exit(1)
	}

	if *watch {
		if err := pipeline.Watch(ctx, opts); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}
}
