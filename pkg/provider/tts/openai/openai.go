// Package openai provides an OpenAI speech-synthesis adapter built on the
// official openai-go SDK. It implements the tts.Adapter interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const (
	slug        = "openai"
	contentType = "audio/mpeg"
)

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client handed to the SDK.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// Adapter implements tts.Adapter backed by the OpenAI audio/speech API.
// The SDK client is constructed per call because the credential is looked
// up just-in-time and must not outlive the request.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new OpenAI Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// defaultVoice picks an OpenAI voice by gender when no vendor voice id is
// configured. OpenAI requires a voice on every request.
func defaultVoice(g tts.Gender) oai.AudioSpeechNewParamsVoice {
	if g == tts.GenderFemale {
		return oai.AudioSpeechNewParamsVoiceNova
	}
	return oai.AudioSpeechNewParamsVoiceOnyx
}

// Generate synthesizes req.Text via POST /v1/audio/speech. The response is
// raw MP3 bytes.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(req.Credential),
		option.WithHTTPClient(a.httpClient),
	}
	if req.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(req.BaseURL))
	}
	client := oai.NewClient(reqOpts...)

	voice := oai.AudioSpeechNewParamsVoice(req.VendorVoiceID)
	if req.VendorVoiceID == "" {
		voice = defaultVoice(req.Gender)
	}

	resp, err := client.Audio.Speech.New(ctx, oai.AudioSpeechNewParams{
		Model: oai.SpeechModel(req.VendorModelID),
		Input: req.Text,
		Voice: voice,
	})
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return nil, &tts.Error{
				Provider:      slug,
				VendorModelID: req.VendorModelID,
				StatusCode:    apiErr.StatusCode,
				Kind:          tts.KindForStatus(apiErr.StatusCode),
				Err:           err,
			}
		}
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("audio/speech: %w", err))
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("read audio response: %w", err))
	}
	if len(audio) == 0 {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           tts.ErrEmptyAudio,
		}
	}

	return &tts.Result{
		Audio:           audio,
		ContentType:     contentType,
		VendorRequestID: resp.Header.Get("x-request-id"),
	}, nil
}
