// Package neuphonic provides a Neuphonic speech-synthesis adapter. It
// implements the tts.Adapter interface.
//
// Neuphonic returns hex-encoded audio inside a JSON envelope, the only
// vendor in the fleet to do so.
package neuphonic

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const (
	slug           = "neuphonic"
	defaultBaseURL = "https://api.neuphonic.com"
	ssePath        = "/sse/speak"
	contentType    = "audio/wav"
)

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client used for synthesis calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// Adapter implements tts.Adapter backed by Neuphonic.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new Neuphonic Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// speakRequest is the JSON body sent to the speak endpoint.
type speakRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id,omitempty"`
	LangCode string `json:"lang_code,omitempty"`
	Model    string `json:"model,omitempty"`
}

// speakResponse is the JSON envelope; Data.Audio is hex-encoded.
type speakResponse struct {
	Data struct {
		Audio string `json:"audio"`
	} `json:"data"`
}

// Generate synthesizes req.Text and decodes the hex audio envelope.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	lang := req.LanguageCode
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	body, err := json.Marshal(speakRequest{
		Text:     req.Text,
		VoiceID:  req.VendorVoiceID,
		LangCode: lang,
		Model:    req.VendorModelID,
	})
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+ssePath, bytes.NewReader(body))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("X-API-Key", req.Credential)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

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

	var envelope speakResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           fmt.Errorf("decode speak response: %w", err),
		}
	}

	audio, err := hex.DecodeString(envelope.Data.Audio)
	if err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           fmt.Errorf("decode hex audio: %w", err),
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

	return &tts.Result{Audio: audio, ContentType: contentType}, nil
}
