// Package coqui provides an adapter for a self-hosted Coqui XTTS v2
// server. It implements the tts.Adapter interface.
//
// Coqui is the one self-hosted vendor in the fleet: there is no public
// endpoint, so the provider's base URL override is mandatory and its
// absence is a configuration error. Synthesis is a single POST
// /tts_to_audio/ call returning a WAV container; the clip duration is
// derived from the WAV header.
package coqui

import (
	"bytes"
	"context"
	"encoding/binary"
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
	slug        = "coqui"
	ttsEndpoint = "/tts_to_audio/"
	contentType = "audio/wav"
)

// Option is a functional option for configuring the Adapter.
type Option func(*Adapter)

// WithHTTPClient overrides the HTTP client used for synthesis calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = c
	}
}

// Adapter implements tts.Adapter backed by a Coqui XTTS v2 server.
type Adapter struct {
	httpClient *http.Client
}

// New creates a new Coqui Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{httpClient: &http.Client{}}
	for _, o := range opts {
		o(a)
	}
	return a
}

// ttsRequest is the JSON body sent to POST /tts_to_audio/.
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

// Generate synthesizes req.Text against the self-hosted server named in
// req.BaseURL. XTTS requires a speaker reference, so a missing voice id
// fails fast.
func (a *Adapter) Generate(ctx context.Context, req tts.Request) (*tts.Result, error) {
	if req.BaseURL == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindConfig,
			Err:           errors.New("base url is required for a self-hosted server"),
		}
	}
	if req.VendorVoiceID == "" {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			Kind:          tts.KindValidation,
			Err:           errors.New("vendor voice id (speaker) is required"),
		}
	}

	lang := req.LanguageCode
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	body, err := json.Marshal(ttsRequest{
		Text:       req.Text,
		SpeakerWav: req.VendorVoiceID,
		Language:   lang,
	})
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(req.BaseURL, "/")+ttsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", contentType)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("POST %s: %w", ttsEndpoint, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindForStatus(resp.StatusCode),
			Err:           fmt.Errorf("%s returned status %d", ttsEndpoint, resp.StatusCode),
		}
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, tts.WrapTransport(slug, req.VendorModelID, fmt.Errorf("read WAV response: %w", err))
	}
	if len(wav) == 0 {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           tts.ErrEmptyAudio,
		}
	}

	info, err := parseWAV(wav)
	if err != nil {
		return nil, &tts.Error{
			Provider:      slug,
			VendorModelID: req.VendorModelID,
			StatusCode:    resp.StatusCode,
			Kind:          tts.KindValidation,
			Err:           err,
		}
	}

	return &tts.Result{
		Audio:       wav,
		ContentType: contentType,
		Duration:    info.Duration(),
	}, nil
}

// wavInfo holds the format metadata extracted from a RIFF/WAVE header.
type wavInfo struct {
	DataOffset    int // byte offset of the first PCM sample
	DataSize      int // PCM payload size in bytes
	SampleRate    int // samples per second
	Channels      int // 1 = mono, 2 = stereo
	BitsPerSample int
}

// Duration computes the clip length from the PCM payload size and format.
// Returns zero when the header did not carry enough information.
func (w wavInfo) Duration() time.Duration {
	bytesPerSec := w.SampleRate * w.Channels * w.BitsPerSample / 8
	if bytesPerSec <= 0 || w.DataSize <= 0 {
		return 0
	}
	return time.Duration(float64(w.DataSize) / float64(bytesPerSec) * float64(time.Second))
}

// parseWAV scans the RIFF/WAVE container in wav and returns the data chunk
// location and audio format from the "fmt " sub-chunk. Walking the chunks
// is more robust than hardcoding a fixed 44-byte offset because the fmt
// chunk size may vary.
func parseWAV(wav []byte) (wavInfo, error) {
	if len(wav) < 12 {
		return wavInfo{}, errors.New("WAV response too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return wavInfo{}, errors.New("WAV response missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return wavInfo{}, errors.New("WAV response missing WAVE identifier")
	}

	var info wavInfo

	// Walk RIFF chunks starting immediately after the 12-byte header.
	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && offset+8+16 <= len(wav) {
				fmtData := wav[offset+8:]
				info.Channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				info.SampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				info.BitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			}
		case "data":
			info.DataOffset = offset + 8
			info.DataSize = chunkSize
			return info, nil
		}

		// Chunks are word-aligned: pad by 1 if the size is odd.
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return wavInfo{}, errors.New("WAV response missing data chunk")
}
