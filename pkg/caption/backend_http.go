package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
)

// HTTPCaptioner calls a BLIP-style inference server that accepts a multipart image upload.
type HTTPCaptioner struct {
	url    string
	model  string
	client *http.Client
}

// NewHTTPCaptioner returns a captioner posting to url. timeout <= 0 means 60s.
func NewHTTPCaptioner(url, model string, timeout time.Duration) *HTTPCaptioner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPCaptioner{url: url, model: model, client: &http.Client{Timeout: timeout}}
}

func (h *HTTPCaptioner) Name() string {
	if h.model == "" {
		return "BLIP-base"
	}
	return h.model
}

func (h *HTTPCaptioner) Device() string { return "remote" }

func (h *HTTPCaptioner) Caption(ctx context.Context, img Image, opts GenerateOptions) (string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("image", img.Name)
	if err != nil {
		return "", err
	}
	if err := imaging.Encode(fw, img.Pixels, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	fields := map[string]string{
		"model":       h.model,
		"max_length":  strconv.Itoa(opts.MaxLength),
		"num_beams":   strconv.Itoa(opts.NumBeams),
		"temperature": strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
		"do_sample":   strconv.FormatBool(opts.DoSample),
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	res, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("caption request: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read caption response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", fmt.Errorf("caption backend status %d: %s", res.StatusCode, snippet(strings.TrimSpace(string(raw)), 200))
	}
	text, err := parseCaptionResponse(raw)
	if err != nil {
		return "", err
	}
	return text, nil
}

// parseCaptionResponse accepts {"caption":...}, {"generated_text":...} or [{"generated_text":...}].
func parseCaptionResponse(raw []byte) (string, error) {
	type payload struct {
		Caption       string `json:"caption"`
		GeneratedText string `json:"generated_text"`
	}
	pick := func(p payload) string {
		if p.Caption != "" {
			return p.Caption
		}
		return p.GeneratedText
	}
	trimmed := bytes.TrimSpace(raw)
	var text string
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []payload
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return "", fmt.Errorf("decode caption response: %w", err)
		}
		if len(list) > 0 {
			text = pick(list[0])
		}
	} else {
		var p payload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return "", fmt.Errorf("decode caption response: %w", err)
		}
		text = pick(p)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoCaption
	}
	return text, nil
}

// snippet shortens s for logs and error messages.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
