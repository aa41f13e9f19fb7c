package pipeline

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"imgcap/models"
	"imgcap/pkg/caption"
)

// FailureSource lists failed analyses and saves their replacements.
type FailureSource interface {
	FailedAnalyses(runID string) ([]models.ImageAnalysis, error)
	SaveAnalysis(runID string, a caption.Analysis) (*models.ImageAnalysis, error)
}

// RetryResult counts the outcome of RetryFailed.
type RetryResult struct {
	Fixed   int
	Failed  int
	Missing int
}

// RetryFailed describes again every failed analysis of runID whose file is still in dir.
// A successful retry keeps the analysis id, so the stored row is replaced.
func RetryFailed(ctx context.Context, src FailureSource, d Describer, dir, runID string) (RetryResult, error) {
	var res RetryResult
	rows, err := src.FailedAnalyses(runID)
	if err != nil {
		return res, err
	}
	log.Printf("Retrying %d failed analyses", len(rows))
	for _, row := range rows {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		path := filepath.Join(dir, row.FileName)
		if _, err := os.Stat(path); err != nil {
			log.Printf("SKIP %s: %v", row.FileName, err)
			res.Missing++
			continue
		}
		a := d.Describe(ctx, path)
		if a.Failed() {
			log.Printf("still failing id=%d file=%s: %s", row.ID, row.FileName, a.Error)
			res.Failed++
			continue
		}
		a.ID = row.AnalysisID
		if _, err := src.SaveAnalysis(row.RunID, a); err != nil {
			log.Printf("ERROR update id=%d: %v", row.ID, err)
			res.Failed++
			continue
		}
		log.Printf("fixed id=%d file=%s tags=%v", row.ID, row.FileName, a.Tags)
		res.Fixed++
	}
	return res, nil
}
