// Package playht provides a Play.ht speech-synthesis adapter. It
// implements the tts.Adapter interface.
//
// Play.ht answers the synthesis POST with a JSON job envelope carrying a
// URL where the finished audio can be downloaded, so every generation is
// two HTTP calls: submit, then fetch.
package playht

import (
	"bytes"
	"context"
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
	slug           = "playht"
	defaultBaseURL = "https://api.play.ht"
	ttsPath        = "/api/v2/tts"
	contentType    = "audio/mpeg"
)

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client used for both calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// WithUserID sets the Play.ht user id sent alongside the API key. Play.ht
// authenticates with a (user id, secret) pair; when unset, only the secret
// header is sent.
func WithUserID(id string) Option {
	return func(a *Adapter) {
		a.userID = id
	}
}

// Adapter implements tts.Adapter backed by Play.ht.
type Adapter struct {
	httpClient *http.Client
	userID     string
}

// New creates a new Play.ht Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ttsJobRequest is the JSON body sent to POST /api/v2/tts.
type ttsJobRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice"`
	VoiceEngine  string `json:"voice_engine,omitempty"`
	OutputFormat string `json:"output_format"`
}

// ttsJobResponse is the job envelope; the audio lives behind URL.
type ttsJobResponse struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"` // seconds
}

// Generate synthesizes req.Text: submit the job, then fetch the audio from
// the URL in the job envelope. Play.ht requires a voice and fails fast
// without one.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.VendorVoiceID == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("vendor voice id is required"),
		}
	}

	job, err := a.submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if job.URL == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("job response missing audio url"),
		}
	}

	audio, err := a.fetch(ctx, req, job.URL)
	if err != nil {
		return nil, err
	}

	result := &tts.Result{
		Audio:           audio,
		ContentType:     contentType,
		VendorRequestID: job.ID,
	}
	if job.Duration > 0 {
		result.Duration = secondsToDuration(job.Duration)
	}
	return result, nil
}

// submit posts the synthesis job and decodes the job envelope.
func (a *Adapter) submit(ctx context.Context, req tts.Request) (*ttsJobResponse, error) {
	body, err := json.Marshal(ttsJobRequest{
		Text:         req.Text,
		Voice:        req.VendorVoiceID,
		VoiceEngine:  req.VendorModelID,
		OutputFormat: "mp3",
	})
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+ttsPath, bytes.NewReader(body))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)
	if a.userID != "" {
		httpReq.Header.Set("X-User-Id", a.userID)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST tts: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("tts returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	var job ttsJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           fmt.Errorf("decode job response: %w", err),
		}
	}
	return &job, nil
}

// fetch downloads the finished audio from the job URL.
func (a *Adapter) fetch(ctx context.Context, req tts.Request, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create audio request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("GET audio: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("audio fetch returned status %d", resp.StatusCode),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("read audio response: %w", err))
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
	return audio, nil
}

// secondsToDuration converts the vendor's fractional seconds to a
// time.Duration.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
