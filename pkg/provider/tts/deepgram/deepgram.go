// Package deepgram provides a Deepgram Aura speech-synthesis adapter. It
// implements the tts.Adapter interface.
//
// Aura addresses voices through the model parameter itself (e.g.,
// "aura-asteria-en"), so the vendor voice id, when present, takes the place
// of the model in the query string. Responses are raw audio bytes.
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const (
	slug           = "deepgram"
	defaultBaseURL = "https://api.deepgram.com"
	speakPath      = "/v1/speak"
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

// Adapter implements tts.Adapter backed by Deepgram Aura.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new Deepgram Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// speakRequest is the JSON body sent to POST /v1/speak.
type speakRequest struct {
	Text string `json:"text"`
}

// Generate synthesizes req.Text via POST /v1/speak.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	body, err := json.Marshal(speakRequest{Text: req.Text})
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	model := req.VendorModelID
	if req.VendorVoiceID != "" {
		model = req.VendorVoiceID
	}
	params := url.Values{}
	params.Set("model", model)
	params.Set("encoding", "mp3")

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(base, "/")+speakPath+"?"+params.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Authorization", "Token "+req.Credential)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST speak: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("speak returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
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

	return &tts.Result{
		Audio:           audio,
		ContentType:     contentType,
		VendorRequestID: resp.Header.Get("dg-request-id"),
	}, nil
}
