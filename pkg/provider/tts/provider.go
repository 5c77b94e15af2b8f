// Package tts defines the Adapter interface for text-to-speech vendor
// backends, the request/result contract shared by every adapter, the typed
// error model used to classify vendor failures, and the process-wide
// Registry that maps provider slugs to adapter instances.
//
// An adapter wraps exactly one vendor API (e.g., ElevenLabs, Google Cloud
// TTS, Azure Speech) and translates a generic synthesis request into that
// vendor's HTTP call. Vendor idiosyncrasies such as locale code mapping,
// response envelope decoding, and endpoint selection live inside the
// adapter; callers see only Request and Result.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"time"
)

// Gender tags a voice model for fallback voice selection when a vendor
// requires a voice and none is configured.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderNeuter Gender = "neuter"
)

// Request is the generic synthesis request handed to an adapter.
type Request struct {
	// Text is the sentence to synthesize. Must be non-empty.
	Text string

	// VendorModelID is the vendor-specific model identifier
	// (e.g., "eleven_multilingual_v2", "tts-1-hd").
	VendorModelID string

	// VendorVoiceID is the vendor-specific voice or character identifier.
	// Optional for vendors with a default voice; some vendors reject
	// requests without one, in which case the adapter fails fast with a
	// validation error before any network call.
	VendorVoiceID string

	// LanguageCode is the effective language for this synthesis, as a short
	// code or full locale (e.g., "en", "en-IN"). Adapters that require a
	// full locale own their own mapping table with a safe default.
	LanguageCode string

	// Gender is used by adapters to pick a default voice when
	// VendorVoiceID is empty and the vendor requires one anyway.
	Gender Gender

	// Credential is the vendor API key or token, looked up just-in-time by
	// the caller. Never retained by the adapter beyond the call.
	Credential string

	// BaseURL optionally overrides the adapter's default endpoint, e.g. for
	// self-hosted vendors or regional gateways. Empty means the adapter's
	// built-in default.
	BaseURL string
}

// Result is a successful synthesis response, produced by an adapter and
// consumed by the generation orchestrator. It is transient: only the
// derived cache row is persisted.
type Result struct {
	// Audio is the raw audio bytes. Always non-empty; adapters reject
	// zero-length vendor responses as errors.
	Audio []byte

	// ContentType is the MIME type of Audio (e.g., "audio/mpeg").
	ContentType string

	// Duration is the clip length when the vendor reports it; zero when
	// unknown.
	Duration time.Duration

	// VendorRequestID is the vendor-side request or trace identifier when
	// the vendor provides one, for later correlation. Optional.
	VendorRequestID string
}

// Adapter is the abstraction over one TTS vendor.
//
// Generate performs a single synthesis call. The supplied context carries
// the call deadline; cancellation must abort the in-flight network request,
// not merely stop waiting for it. Failures are reported as *[Error] values
// so callers can classify them without inspecting message text.
//
// Implementations must be safe for concurrent use: multiple Generate calls
// may run in parallel.
type Adapter interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
