package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"imgcap/pkg/config"
	"imgcap/process/pipeline"
	"imgcap/process/report"
)

func main() {
	runID := flag.String("run", "", "run id to report on (default: latest run)")
	top := flag.Int("top", 20, "number of tags to print (0 = all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if st == nil {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}
	defer st.Close()

	if err := report.RunReport(os.Stdout, st, *runID, *top); err != nil {
		log.Fatalf("report: %v", err)
	}
}
