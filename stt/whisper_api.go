package stt

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/net/http2"
	"go.aimuz.me/murmur/internal/types"
)

const (
	// Model is the only transcription model used.
	Model = openai.AudioModelWhisper1

	defaultTimeout = 60 * time.Second
	maxErrorBody   = 64 << 10
)

// WhisperAPIConfig holds configuration for WhisperAPI.
type WhisperAPIConfig struct {
	APIKey   string
	BaseURL  string        // Optional, defaults to OpenAI's API
	Language string        // Optional; empty or "auto" lets the service detect it
	Timeout  time.Duration // Whole-request timeout, defaults to 60s

	HTTPClient *http.Client // Optional, replaces the default HTTP/2 client
}

// WhisperAPI transcribes artifacts with OpenAI's audio transcription endpoint.
type WhisperAPI struct {
	client   openai.Client
	language string
}

var _ Transcriber = (*WhisperAPI)(nil)

// NewWhisperAPI creates a new WhisperAPI client. Requests are never retried.
func NewWhisperAPI(cfg WhisperAPIConfig) *WhisperAPI {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = newHTTPClient(timeout)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(hc),
		option.WithMaxRetries(0),
		option.WithMiddleware(remoteStatus),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	lang := strings.TrimSpace(cfg.Language)
	if strings.EqualFold(lang, types.LanguageAuto) {
		lang = ""
	}

	return &WhisperAPI{
		client:   openai.NewClient(opts...),
		language: lang,
	}
}

// Transcribe uploads the artifact and returns the recognized text.
// Errors are *RemoteError or *TransportError.
func (w *WhisperAPI) Transcribe(ctx context.Context, art types.Artifact) (string, error) {
	f, err := os.Open(art.Path)
	if err != nil {
		return "", &TransportError{Op: "open artifact", Err: err}
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(f, filepath.Base(art.Path), "audio/wav"),
		Model: Model,
	}
	if w.language != "" {
		params.Language = openai.String(w.language)
	}

	start := time.Now()
	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	text := strings.TrimSpace(resp.Text)
	slog.Debug("transcribed", "path", art.Path, "chars", len(text), "took", time.Since(start))
	return text, nil
}

// remoteStatus turns every non-2xx response into a RemoteError carrying the raw body,
// including bodies that are not JSON error envelopes.
func remoteStatus(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, &TransportError{Op: "read error response", Err: err}
	}
	return nil, &RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

func classify(err error) error {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return transport
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &RemoteError{Status: apiErr.StatusCode, Body: apiErr.RawJSON()}
	}
	return &TransportError{Op: "transcribe", Err: err}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		slog.Debug("configure http2 transport", "error", err)
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}
