package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"imgcap/models"
	"imgcap/pkg/caption"
	"imgcap/pkg/store"
)

// Source is the subset of the store a report reads.
type Source interface {
	GetRun(runID string) (*models.CaptionRun, error)
	LatestRun() (*models.CaptionRun, error)
	TagCounts(runID string) ([]store.TagCount, error)
	FailedCount(runID string) (int64, error)
}

// RunReport prints tag frequencies and the failure count of runID (latest run when empty).
// top <= 0 prints every tag.
func RunReport(w io.Writer, src Source, runID string, top int) error {
	var run *models.CaptionRun
	var err error
	if runID == "" {
		run, err = src.LatestRun()
	} else {
		run, err = src.GetRun(runID)
	}
	if errors.Is(err, store.ErrNotFound) {
		if runID == "" {
			return fmt.Errorf("no runs recorded yet")
		}
		return fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return err
	}

	counts, err := src.TagCounts(run.RunID)
	if err != nil {
		return fmt.Errorf("tag counts: %w", err)
	}
	failed, err := src.FailedCount(run.RunID)
	if err != nil {
		return fmt.Errorf("failed count: %w", err)
	}

	fmt.Fprintf(w, "Report for run=%s dir=%s started=%s\n", run.RunID, run.InputDir, run.StartedAt.UTC().Format(time.RFC3339))
	if run.FinishedAt == nil {
		fmt.Fprintf(w, "  status=unfinished failed=%d\n", failed)
	} else {
		fmt.Fprintf(w, "  images=%d failed=%d duration=%s\n", run.Total, failed, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if top > 0 && len(counts) > top {
		counts = counts[:top]
	}
	for _, c := range counts {
		cat := caption.TagCategory(c.Tag)
		if cat == "" {
			cat = "-"
		}
		fmt.Fprintf(w, "%s|%s|%d\n", c.Tag, cat, c.Count)
	}
	return nil
}
