package pipeline

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// archiveMaxBytes is the size budget for archived copies.
const archiveMaxBytes = 1_000_000

// archiveFile moves src into dir. Files over the budget are re-encoded at a smaller size;
// anything that cannot be decoded is moved as is.
func archiveFile(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := uniquePath(filepath.Join(dir, filepath.Base(src)))
	fi, err := os.Stat(src)
	if err != nil {
		return "", err
	}
	if fi.Size() <= archiveMaxBytes {
		return dst, moveFile(src, dst)
	}
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return dst, moveFile(src, dst)
	}
	// encoded size roughly scales with area
	scale := math.Sqrt(float64(archiveMaxBytes) / float64(fi.Size()))
	scale = math.Max(0.1, math.Min(scale, 0.95))
	w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(img.Bounds().Dy())*scale)))
	small := imaging.Resize(img, w, h, imaging.Lanczos)
	if err := imaging.Save(small, dst, imaging.JPEGQuality(85)); err != nil {
		return dst, moveFile(src, dst)
	}
	if err := os.Remove(src); err != nil {
		return dst, err
	}
	if fi2, err := os.Stat(dst); err == nil && fi2.Size() > archiveMaxBytes {
		smaller := imaging.Resize(small, int(float64(w)*0.8), 0, imaging.Lanczos)
		_ = imaging.Save(smaller, dst, imaging.JPEGQuality(80))
	}
	return dst, nil
}

// uniquePath appends -1, -2, ... before the extension until path is free.
func uniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		p := fmt.Sprintf("%s-%d%s", stem, i, ext)
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return p
		}
	}
}

// moveFile renames src to dst, falling back to copy and remove across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
