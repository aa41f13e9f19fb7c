package caption

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TempMarker tags scratch files written next to inputs so scans never pick them up.
const TempMarker = ".imgcap."

// IsSupportedImage reports whether name carries one of the accepted image extensions.
func IsSupportedImage(name string) bool {
	if strings.Contains(name, TempMarker) {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// ListImages returns the full paths of supported images directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !IsSupportedImage(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
