// Package google provides a Google Cloud Text-to-Speech adapter using the
// REST synthesis endpoint. It implements the tts.Adapter interface.
//
// Google returns base64-encoded audio inside a JSON envelope and requires a
// full BCP-47 locale (e.g., "en-US"), so the adapter owns a short-code to
// locale mapping table with a safe default.
package google

import (
	"bytes"
	"context"
	"encoding/base64"
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
	slug           = "google"
	defaultBaseURL = "https://texttospeech.googleapis.com"
	synthesizePath = "/v1/text:synthesize"
	contentType    = "audio/mpeg"
)

// locales maps short language codes to the locale Google expects. Codes
// already carrying a region pass through unchanged; unknown short codes
// fall back to en-US.
var locales = map[string]string{
	"en": "en-US",
	"de": "de-DE",
	"fr": "fr-FR",
	"es": "es-ES",
	"it": "it-IT",
	"pt": "pt-BR",
	"hi": "hi-IN",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"zh": "cmn-CN",
	"nl": "nl-NL",
	"pl": "pl-PL",
	"ru": "ru-RU",
	"ta": "ta-IN",
	"te": "te-IN",
}

const defaultLocale = "en-US"

// Locale returns the full locale for a language code. Codes that already
// contain a region subtag are returned unchanged.
func Locale(code string) string {
	if strings.Contains(code, "-") {
		return code
	}
	if loc, ok := locales[strings.ToLower(code)]; ok {
		return loc
	}
	return defaultLocale
}

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client used for synthesis calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// Adapter implements tts.Adapter backed by Google Cloud Text-to-Speech.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new Google Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ---- request/response types (REST v1) ----

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name,omitempty"`
		SsmlGender   string `json:"ssmlGender,omitempty"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"` // base64
}

// ssmlGender maps the generic gender tag to Google's SSML gender enum,
// used for voice selection when no explicit voice name is configured.
func ssmlGender(g tts.Gender) string {
	switch g {
	case tts.GenderMale:
		return "MALE"
	case tts.GenderFemale:
		return "FEMALE"
	default:
		return "NEUTRAL"
	}
}

// Generate synthesizes req.Text via POST /v1/text:synthesize and decodes
// the base64 audio envelope.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	var body synthesizeRequest
	body.Input.Text = req.Text
	body.Voice.LanguageCode = Locale(req.LanguageCode)
	body.Voice.Name = req.VendorVoiceID
	if req.VendorVoiceID == "" {
		body.Voice.SsmlGender = ssmlGender(req.Gender)
	}
	body.AudioConfig.AudioEncoding = "MP3"

	data, err := json.Marshal(body)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+synthesizePath, bytes.NewReader(data))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("X-Goog-Api-Key", req.Credential)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST text:synthesize: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("text:synthesize returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
		}
	}

	var envelope synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           fmt.Errorf("decode synthesize response: %w", err),
		}
	}

	audio, err := base64.StdEncoding.DecodeString(envelope.AudioContent)
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

	return &tts.Result{Audio: audio, ContentType: contentType}, nil
}
