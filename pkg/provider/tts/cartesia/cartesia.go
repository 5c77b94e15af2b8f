// Package cartesia provides a Cartesia Sonic speech-synthesis adapter
// using the bytes endpoint. It implements the tts.Adapter interface.
package cartesia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const (
	slug           = "cartesia"
	defaultBaseURL = "https://api.cartesia.ai"
	bytesPath      = "/tts/bytes"
	apiVersion     = "2024-06-10"
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

// Adapter implements tts.Adapter backed by Cartesia.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new Cartesia Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// bytesRequest is the JSON body sent to POST /tts/bytes.
type bytesRequest struct {
	ModelID    string `json:"model_id"`
	Transcript string `json:"transcript"`
	Language   string `json:"language,omitempty"`
	Voice      struct {
		Mode string `json:"mode"`
		ID   string `json:"id"`
	} `json:"voice"`
	OutputFormat struct {
		Container  string `json:"container"`
		BitRate    int    `json:"bit_rate"`
		SampleRate int    `json:"sample_rate"`
	} `json:"output_format"`
}

// Generate synthesizes req.Text via POST /tts/bytes. Cartesia requires a
// voice id and fails fast without one.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.VendorVoiceID == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("vendor voice id is required"),
		}
	}

	var body bytesRequest
	body.ModelID = req.VendorModelID
	body.Transcript = req.Text
	// Cartesia takes the bare language code, not a locale.
	if i := strings.IndexByte(req.LanguageCode, '-'); i > 0 {
		body.Language = req.LanguageCode[:i]
	} else {
		body.Language = req.LanguageCode
	}
	body.Voice.Mode = "id"
	body.Voice.ID = req.VendorVoiceID
	body.OutputFormat.Container = "mp3"
	body.OutputFormat.BitRate = 128000
	body.OutputFormat.SampleRate = 44100

	data, err := json.Marshal(body)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+bytesPath, bytes.NewReader(data))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("X-API-Key", req.Credential)
	httpReq.Header.Set("Cartesia-Version", apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST tts/bytes: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("tts/bytes returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
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
		VendorRequestID: resp.Header.Get("X-Request-Id"),
	}, nil
}
