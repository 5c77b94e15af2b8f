package tts

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Kind classifies a synthesis failure. The kind is assigned at the point
// where the error is created, inside the adapter or transport layer, so
// that retry eligibility never depends on inspecting message text.
type Kind int

const (
	// KindConfig marks configuration errors: unknown provider slug, missing
	// credential, unimplemented adapter. Never retried.
	KindConfig Kind = iota

	// KindValidation marks request or response validation errors: missing
	// required vendor voice id, malformed vendor response, vendor 4xx.
	// Never retried.
	KindValidation

	// KindTransient marks failures worth retrying: timeouts, connection
	// resets, vendor 5xx.
	KindTransient

	// KindNotFound marks missing catalog references (model, sentence,
	// provider, language). Signaled before any vendor call; never retried.
	KindNotFound
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not-found"
	default:
		return "unknown"
	}
}

// Error is the typed failure produced by adapters and enriched by the
// generation orchestrator. It carries enough context to diagnose a vendor
// failure without reproducing it.
type Error struct {
	// Provider is the provider slug (registry key) of the failing vendor.
	Provider string

	// VendorModelID is the vendor-specific model identifier, when known.
	VendorModelID string

	// SentenceID is the sentence being synthesized; zero when the failure
	// happened below the orchestrator.
	SentenceID int64

	// StatusCode is the vendor HTTP status, or zero when no response was
	// received.
	StatusCode int

	// Latency is the elapsed wall-clock time of the failing operation,
	// including retries when set by the orchestrator.
	Latency time.Duration

	// Kind classifies the failure and decides retry eligibility.
	Kind Kind

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("tts %s: provider %q", e.Kind, e.Provider)
	if e.VendorModelID != "" {
		msg += fmt.Sprintf(" model %q", e.VendorModelID)
	}
	if e.SentenceID != 0 {
		msg += fmt.Sprintf(" sentence %d", e.SentenceID)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Latency > 0 {
		msg += fmt.Sprintf(" after %s", e.Latency.Round(time.Millisecond))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth retrying.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

// AsError extracts a *Error from err's chain. Returns nil when err carries
// no typed synthesis error.
func AsError(err error) *Error {
	var terr *Error
	if errors.As(err, &terr) {
		return terr
	}
	return nil
}

// Retryable reports whether err should be retried. Typed errors decide via
// their kind; untyped context deadline/cancellation and network errors are
// treated as transient so that transport-level failures outside an adapter
// remain retryable.
func Retryable(err error) bool {
	if terr := AsError(err); terr != nil {
		return terr.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// KindForStatus maps a vendor HTTP status code to an error kind: 5xx and
// the retry-after style statuses (408, 429) are transient, everything else
// is a validation failure.
func KindForStatus(status int) Kind {
	switch {
	case status >= 500:
		return KindTransient
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return KindTransient
	default:
		return KindValidation
	}
}

// WrapTransport converts a transport-level failure (request construction,
// connection error, body read) into a typed adapter error. Context
// expirations and network errors become transient; everything else is a
// validation failure.
func WrapTransport(provider, vendorModelID string, err error) *Error {
	kind := KindValidation
	if Retryable(err) {
		kind = KindTransient
	}
	return &Error{
		Provider:      provider,
		VendorModelID: vendorModelID,
		Kind:          kind,
		Err:           err,
	}
}

// ErrEmptyAudio is the cause recorded when a vendor returns a well-formed
// success with zero audio bytes. Some vendors answer HTTP 200 with empty
// audio on malformed input; adapters must reject that as an error.
var ErrEmptyAudio = errors.New("vendor returned empty audio")

// ErrNotImplemented is the cause used by intentionally stubbed adapters.
var ErrNotImplemented = errors.New("adapter not yet implemented")
