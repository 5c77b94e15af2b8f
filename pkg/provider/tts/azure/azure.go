// Package azure provides an Azure Cognitive Services Speech adapter using
// the REST synthesis endpoint. It implements the tts.Adapter interface.
//
// Azure voices are bound to a locale and addressed by full voice name
// (e.g., "en-US-JennyNeural"), so the adapter requires a vendor voice id
// and fails fast without one. Requests are SSML documents; responses are
// raw audio bytes.
package azure

import (
	"context"
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
	slug           = "azure"
	defaultBaseURL = "https://eastus.tts.speech.microsoft.com"
	synthesizePath = "/cognitiveservices/v1"
	outputFormat   = "audio-24khz-96kbitrate-mono-mp3"
	contentType    = "audio/mpeg"
)

// locales maps short language codes to the locale used in the SSML
// envelope. Codes already carrying a region pass through; unknown codes
// fall back to en-US.
var locales = map[string]string{
	"en": "en-US",
	"de": "de-DE",
	"fr": "fr-FR",
	"es": "es-ES",
	"hi": "hi-IN",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"zh": "zh-CN",
	"pt": "pt-BR",
	"ta": "ta-IN",
}

const defaultLocale = "en-US"

// Locale returns the full locale for a language code.
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

// Adapter implements tts.Adapter backed by Azure Speech.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new Azure Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// escapeSSML escapes the XML-significant characters in text.
func escapeSSML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(text)
}

// Generate synthesizes req.Text via an SSML POST. Azure returns the raw
// audio bytes directly.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.VendorVoiceID == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("vendor voice id is required"),
		}
	}

	locale := Locale(req.LanguageCode)
	ssml := fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'>%s</voice></speak>`,
		locale, locale, req.VendorVoiceID, escapeSSML(req.Text),
	)

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+synthesizePath, strings.NewReader(ssml))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", req.Credential)
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST synthesize: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("synthesize returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
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
		VendorRequestID: resp.Header.Get("X-RequestId"),
	}, nil
}
