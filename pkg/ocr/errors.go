package ocr

import "errors"

// ErrNoText is returned when no pass produced legible text.
var ErrNoText = errors.New("no text detected")
