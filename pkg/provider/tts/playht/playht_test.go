package playht

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

func TestGenerateFetchesSecondaryURL(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/api/v2/tts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ttsJobResponse{
			ID:       "job-1",
			URL:      srv.URL + "/audio/job-1.mp3",
			Duration: 1.5,
		})
	})
	mux.HandleFunc("/audio/job-1.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3-bytes"))
	})

	result, err := New().Generate(context.Background(), tts.Request{
		Text:          "Hello.",
		VendorModelID: "PlayHT2.0",
		VendorVoiceID: "larry",
		Credential:    "k",
		BaseURL:       srv.URL,
	})
	if err != nil {
		t.Fatalf("Generate: unexpected error: %v", err)
	}
	if string(result.Audio) != "mp3-bytes" {
		t.Errorf("Audio = %q, want mp3-bytes", result.Audio)
	}
	if result.VendorRequestID != "job-1" {
		t.Errorf("VendorRequestID = %q, want job-1", result.VendorRequestID)
	}
	if result.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", result.Duration)
	}
}

func TestGenerateMissingJobURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ttsJobResponse{ID: "job-2"})
	}))
	defer srv.Close()

	_, err := New().Generate(context.Background(), tts.Request{
		Text: "x", VendorVoiceID: "larry", Credential: "k", BaseURL: srv.URL,
	})
	terr := tts.AsError(err)
	if terr == nil || terr.Kind != tts.KindValidation {
		t.Fatalf("missing job url: error = %v, want validation error", err)
	}
}

func TestGenerateMissingVoiceFailsFast(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	_, err := New().Generate(context.Background(), tts.Request{
		Text: "x", Credential: "k", BaseURL: srv.URL,
	})
	terr := tts.AsError(err)
	if terr == nil || terr.Kind != tts.KindValidation {
		t.Fatalf("missing voice: error = %v, want validation error", err)
	}
	if calls != 0 {
		t.Errorf("vendor was called %d times, want 0", calls)
	}
}
