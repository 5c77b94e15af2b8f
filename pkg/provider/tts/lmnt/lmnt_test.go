package lmnt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

func TestGenerateDecodesEnvelope(t *testing.T) {
	var gotBody speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(speechResponse{
			Audio:           base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
			DurationSeconds: 1.5,
			RequestID:       "lm-1",
		})
	}))
	defer srv.Close()

	a := New(WithHTTPClient(srv.Client()))
	result, err := a.Generate(context.Background(), tts.Request{
		Text:          "Hello world",
		VendorModelID: "blizzard",
		VendorVoiceID: "ava",
		LanguageCode:  "en-GB",
		Credential:    "lm-key",
		BaseURL:       srv.URL,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(result.Audio) != "mp3-bytes" {
		t.Errorf("Audio = %q", result.Audio)
	}
	if result.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", result.Duration)
	}
	if result.VendorRequestID != "lm-1" {
		t.Errorf("VendorRequestID = %q, want lm-1", result.VendorRequestID)
	}
	if gotBody.Language != "en" {
		t.Errorf("request language = %q, want the short code en", gotBody.Language)
	}
	if gotBody.Voice != "ava" {
		t.Errorf("request voice = %q, want ava", gotBody.Voice)
	}
}

func TestGenerateRequiresVoice(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	a := New(WithHTTPClient(srv.Client()))
	_, err := a.Generate(context.Background(), tts.Request{Text: "hi", BaseURL: srv.URL})
	terr := tts.AsError(err)
	if terr == nil || terr.Kind != tts.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
	if calls != 0 {
		t.Errorf("server was called %d times, want fail-fast with no network call", calls)
	}
}

func TestGenerateRejectsBadBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"audio": "not base64!!"}`)
	}))
	defer srv.Close()

	a := New(WithHTTPClient(srv.Client()))
	_, err := a.Generate(context.Background(), tts.Request{Text: "hi", VendorVoiceID: "ava", BaseURL: srv.URL})
	terr := tts.AsError(err)
	if terr == nil || terr.Kind != tts.KindValidation {
		t.Errorf("err = %v, want validation error for malformed audio", err)
	}
}
