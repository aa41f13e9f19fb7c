package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imgcap/pkg/caption"
)

const (
	AIOutputName     = "ai_captions.json"
	SimpleOutputName = "captions.json"
)

// AIDocument is the layout of ai_captions.json.
type AIDocument struct {
	Images []caption.Analysis `json:"images"`
}

// SimpleDocument is the layout of captions.json.
type SimpleDocument struct {
	Images []caption.SimpleCaption `json:"images"`
}

// SimplePath derives the captions.json path that sits next to aiPath.
func SimplePath(aiPath string) string {
	dir, base := filepath.Split(aiPath)
	if strings.Contains(base, AIOutputName) {
		return dir + strings.Replace(base, AIOutputName, SimpleOutputName, 1)
	}
	return filepath.Join(dir, SimpleOutputName)
}

// WriteOutputs writes both documents for analyses; the ai document goes to aiPath.
func WriteOutputs(aiPath string, analyses []caption.Analysis) error {
	if analyses == nil {
		analyses = []caption.Analysis{}
	}
	if err := writeJSON(aiPath, AIDocument{Images: analyses}); err != nil {
		return err
	}
	simple := SimpleDocument{Images: make([]caption.SimpleCaption, 0, len(analyses))}
	for _, a := range analyses {
		simple.Images = append(simple.Images, caption.Simplify(a))
	}
	return writeJSON(SimplePath(aiPath), simple)
}

// ReadAIDocument loads an existing ai_captions.json. A missing file yields an empty document.
func ReadAIDocument(path string) (AIDocument, error) {
	var doc AIDocument
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return AIDocument{Images: []caption.Analysis{}}, nil
	}
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("decode %s: %w", path, err)
	}
	if doc.Images == nil {
		doc.Images = []caption.Analysis{}
	}
	return doc, nil
}

// MergeAnalysis replaces the entry with the same filename or appends a.
func MergeAnalysis(list []caption.Analysis, a caption.Analysis) []caption.Analysis {
	for i := range list {
		if list[i].Filename == a.Filename {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}

// writeJSON writes v with two-space indentation and literal non-ASCII, via temp file and rename.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
