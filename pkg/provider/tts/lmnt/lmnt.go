// Package lmnt provides an LMNT speech-synthesis adapter. It implements
// the tts.Adapter interface.
//
// LMNT returns base64-encoded audio plus a duration inside a JSON envelope.
package lmnt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const (
	slug           = "lmnt"
	defaultBaseURL = "https://api.lmnt.com"
	speechPath     = "/v1/ai/speech"
	contentType    = "audio/mpeg"
)

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client used for synthesis calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// Adapter implements tts.Adapter backed by LMNT.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new LMNT Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// speechRequest is the JSON body sent to POST /v1/ai/speech.
type speechRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
	Format   string `json:"format"`
}

// speechResponse is the JSON envelope; Audio is base64-encoded.
type speechResponse struct {
	Audio           string  `json:"audio"`
	DurationSeconds float64 `json:"duration"`
	RequestID       string  `json:"request_id,omitempty"`
}

// Generate synthesizes req.Text via POST /v1/ai/speech and decodes the
// base64 envelope. LMNT requires a voice and fails fast without one.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.VendorVoiceID == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("vendor voice id is required"),
		}
	}

	lang := req.LanguageCode
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	body, err := json.Marshal(speechRequest{
		Text:     req.Text,
		Voice:    req.VendorVoiceID,
		Model:    req.VendorModelID,
		Language: lang,
		Format:   "mp3",
	})
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+speechPath, bytes.NewReader(body))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("X-API-Key", req.Credential)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST speech: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("speech returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	var envelope speechResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           fmt.Errorf("decode speech response: %w", err),
		}
	}

	audio, err := base64.StdEncoding.DecodeString(envelope.Audio)
	if err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           fmt.Errorf("decode audio content: %w", err),
		}
	}
	if len(audio) == 0 {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           tts.ErrEmptyAudio,
		}
	}

	return &tts.Result{
		Audio:           audio,
		ContentType:     contentType,
		Duration:        time.Duration(envelope.DurationSeconds * float64(time.Second)),
		VendorRequestID: envelope.RequestID,
	}, nil
}
