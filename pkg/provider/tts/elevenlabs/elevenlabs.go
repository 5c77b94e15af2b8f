// Package elevenlabs provides an ElevenLabs-backed TTS adapter. It
// implements the tts.Adapter interface.
//
// ElevenLabs exposes two physically different endpoints: the batch
// text-to-speech endpoint (POST /v1/text-to-speech/{voice}) returning raw
// MP3 bytes, and the low-latency stream-input WebSocket returning
// base64-encoded chunks in JSON frames. The adapter selects the WebSocket
// endpoint for flash and turbo model variants and the batch endpoint for
// everything else; callers are unaware of the distinction.
package elevenlabs

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

	"github.com/coder/websocket"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const (
	slug           = "elevenlabs"
	defaultBaseURL = "https://api.elevenlabs.io"
	wsEndpointFmt  = "wss://api.elevenlabs.io/v1/text-to-speech/%s/stream-input?model_id=%s"
	contentType    = "audio/mpeg"
)

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client used for batch synthesis calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// Adapter implements tts.Adapter backed by the ElevenLabs API.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new ElevenLabs Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// synthesisRequest is the JSON body sent to the batch endpoint.
type synthesisRequest struct {
	Text          string         `json:"text"`
	ModelID       string         `json:"model_id"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
}

// voiceSettings mirrors the ElevenLabs voice_settings object.
type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Generate synthesizes req.Text. ElevenLabs always requires a voice id; a
// missing one fails fast without a network call.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.VendorVoiceID == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("vendor voice id is required"),
		}
	}
	if useStreamEndpoint(req.VendorModelID) {
		return a.generateStream(ctx, req)
	}
	return a.generateBatch(ctx, req)
}

// useStreamEndpoint reports whether the model variant is served by the
// low-latency stream-input WebSocket rather than the batch endpoint.
func useStreamEndpoint(vendorModelID string) bool {
	return strings.Contains(vendorModelID, "flash") || strings.Contains(vendorModelID, "turbo")
}

// generateBatch performs one POST /v1/text-to-speech/{voice} call and
// returns the raw MP3 bytes.
func (a *Adapter) generateBatch(ctx context.Context, req tts.Request) (*tts.Result, error) {
	body, err := json.Marshal(synthesisRequest{
		Text:          req.Text,
		ModelID:       req.VendorModelID,
		VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75},
	})
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	base := req.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	url := strings.TrimRight(base, "/") + "/v1/text-to-speech/" + req.VendorVoiceID

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("xi-api-key", req.Credential)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentType)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST text-to-speech: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("text-to-speech returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
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
		VendorRequestID: resp.Header.Get("request-id"),
	}, nil
}

// ---- WebSocket stream-input types ----

// boiMessage is the initial "begin of input" frame that authenticates and
// configures the stream. ElevenLabs requires a non-empty first text value.
type boiMessage struct {
	Text          string         `json:"text"`
	VoiceSettings *voiceSettings `json:"voice_settings,omitempty"`
	XiAPIKey      string         `json:"xi_api_key"`
}

// textMessage carries one text frame; an empty Text flushes the stream.
type textMessage struct {
	Text string `json:"text"`
}

// audioFrame is a JSON frame received from the stream-input socket.
type audioFrame struct {
	Audio   string `json:"audio"` // base64-encoded MP3 chunk
	IsFinal bool   `json:"isFinal"`
	Message string `json:"message,omitempty"`
}

// generateStream opens the stream-input WebSocket, sends the full text in a
// single frame plus a flush, and concatenates the base64 audio chunks. The
// caller's context deadline aborts the socket mid-stream.
func (a *Adapter) generateStream(ctx context.Context, req tts.Request) (*tts.Result, error) {
	wsURL := fmt.Sprintf(wsEndpointFmt, req.VendorVoiceID, req.VendorModelID)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("dial stream-input: %w", err))
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	frames := []any{
		boiMessage{Text: " ", VoiceSettings: &voiceSettings{Stability: 0.5, SimilarityBoost: 0.75}, XiAPIKey: req.Credential},
		textMessage{Text: req.Text},
		textMessage{Text: ""}, // flush
	}
	for _, frame := range frames {
		data, err := json.Marshal(frame)
		if err != nil {
			return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal frame: %w", err))
		}
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("send frame: %w", err))
		}
	}

	var audio []byte
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			// A normal closure after the final frame ends the stream.
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure && len(audio) > 0 {
				break
			}
			return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("read stream frame: %w", err))
		}
		var frame audioFrame
		if err := json.Unmarshal(msg, &frame); err != nil {
			return nil, &tts.Error{
				Provider:      slug,
				VendorModelID: req.VendorModelID,
				Kind:          tts.KindValidation,
				Err:           fmt.Errorf("malformed stream frame: %w", err),
			}
		}
		if frame.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(frame.Audio)
			if err != nil {
				return nil, &tts.Error{
					Provider:      slug,
					VendorModelID: req.VendorModelID,
					Kind:          tts.KindValidation,
					Err:           fmt.Errorf("decode audio chunk: %w", err),
				}
			}
			audio = append(audio, chunk...)
		}
		if frame.IsFinal {
			break
		}
	}

	if len(audio) == 0 {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           tts.ErrEmptyAudio,
		}
	}
	return &tts.Result{Audio: audio, ContentType: contentType}, nil
}
