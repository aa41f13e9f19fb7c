package ocr

// passResult is the outcome of one Tesseract pass.
type passResult struct {
	name string
	text string
	conf float64 // mean word confidence, 0..100
}

// score favors passes that read many legible words with high confidence.
func (p passResult) score() float64 {
	return float64(len(legibleWords(p.text))) * p.conf
}

// bestPass picks the highest scoring pass. Ties keep the earlier pass.
func bestPass(passes []passResult) (passResult, bool) {
	var best passResult
	found := false
	for _, p := range passes {
		if p.text == "" {
			continue
		}
		if !found || p.score() > best.score() {
			best = p
			found = true
		}
	}
	return best, found
}
