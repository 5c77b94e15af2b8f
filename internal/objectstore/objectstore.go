// Package objectstore stores generated audio blobs and mints time-limited
// signed download URLs for them.
//
// The production implementation is backed by a NATS JetStream object-store
// bucket. JetStream has no native presigned-URL mechanism, so signed URLs
// are minted locally: an HMAC over key and expiry, verified by the
// download endpoint that fronts the bucket.
package objectstore

import (
	"context"
	"time"
)

// Store is the blob-storage surface the orchestrator depends on.
// Implementations are safe for concurrent use.
type Store interface {
	// Upload stores data under key, overwriting any existing object.
	Upload(ctx context.Context, key string, data []byte) error

	// Download retrieves the object stored under key.
	Download(ctx context.Context, key string) ([]byte, error)

	// SignedURL returns a time-limited download URL for key. The URL must
	// not be persisted beyond its stated expiry.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
