package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"imgcap/pkg/config"
	"imgcap/process/pipeline"
)

func main() {
	runID := flag.String("run", "", "run id to retry (default: every run)")
	dir := flag.String("dir", "", "directory holding the images (default: configured input dir)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *dir == "" {
		*dir = cfg.InputDir
	}
	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if st == nil {
		log.Fatal("DB_DSN not set")
	}
	defer st.Close()
	d, err := pipeline.NewDescriber(cfg)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := pipeline.RetryFailed(ctx, st, d, *dir, *runID)
	if err != nil {
		log.Fatalf("retry: %v", err)
	}
	fmt.Printf("fixed=%d still_failed=%d missing=%d\n", res.Fixed, res.Failed, res.Missing)
}
