package caption

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Local vision models usually fit a single request in VRAM at a time.
var execMutex sync.Mutex

const (
	standardPrompt = "Describe this image in one short sentence."
	detailedPrompt = "Describe this image in detail."
	bannerAnchor   = "per image patch)"
)

// ExecCaptioner runs a llava.cpp style binary against a temporary JPEG copy of the image.
type ExecCaptioner struct {
	command   string
	model     string
	projector string
}

func NewExecCaptioner(command, model, projector string) *ExecCaptioner {
	return &ExecCaptioner{command: command, model: model, projector: projector}
}

func (e *ExecCaptioner) Name() string {
	if e.model == "" {
		return "llava"
	}
	return e.model
}

func (e *ExecCaptioner) Device() string { return "local" }

func (e *ExecCaptioner) Caption(ctx context.Context, img Image, opts GenerateOptions) (string, error) {
	tmp, err := os.CreateTemp("", "prep-*"+TempMarker+"jpg")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)
	if err := imaging.Save(img.Pixels, tmpPath, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("write temp image: %w", err)
	}

	execMutex.Lock()
	defer execMutex.Unlock()
	cmd := exec.CommandContext(ctx, e.command, e.args(tmpPath, opts)...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run %s: %w: %s", e.command, err, snippet(strings.TrimSpace(stderr.String()), 200))
	}
	text := removeBanner(out.String())
	if text == "" {
		return "", ErrNoCaption
	}
	return text, nil
}

func (e *ExecCaptioner) args(imagePath string, opts GenerateOptions) []string {
	prompt := standardPrompt
	if opts.DoSample {
		prompt = detailedPrompt
	}
	var args []string
	if e.model != "" {
		args = append(args, "-m", e.model)
	}
	if e.projector != "" {
		args = append(args, "--mmproj", e.projector)
	}
	args = append(args,
		"--image", imagePath,
		"--temp", strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
		"-n", strconv.Itoa(opts.MaxLength),
		"-p", prompt,
	)
	return args
}

// removeBanner drops the model loading chatter printed before the answer.
func removeBanner(s string) string {
	if i := strings.Index(s, bannerAnchor); i != -1 {
		s = s[i+len(bannerAnchor):]
	}
	return strings.TrimSpace(s)
}
