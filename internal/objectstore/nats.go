package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var _ Store = (*NATSStore)(nil)

// NATSStore stores blobs in a NATS JetStream object-store bucket and mints
// signed URLs through a [URLSigner]. Safe for concurrent use.
type NATSStore struct {
	bucket string
	store  nats.ObjectStore
	signer *URLSigner
}

// NewNATSStore binds to (or creates) the named bucket on js. signer mints
// the download URLs returned by [NATSStore.SignedURL].
func NewNATSStore(js nats.JetStreamContext, bucket string, signer *URLSigner) (*NATSStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "generated audio clips",
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("object store: create bucket %q: %w", bucket, err)
		}
		store, err = js.ObjectStore(bucket)
		if err != nil {
			return nil, fmt.Errorf("object store: bind bucket %q: %w", bucket, err)
		}
	}
	return &NATSStore{bucket: bucket, store: store, signer: signer}, nil
}

// Upload implements [Store].
func (n *NATSStore) Upload(_ context.Context, key string, data []byte) error {
	_, err := n.store.Put(&nats.ObjectMeta{Name: key}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("object store: put %q in bucket %q: %w", key, n.bucket, err)
	}
	return nil
}

// Download implements [Store].
func (n *NATSStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("object store: get %q from bucket %q: %w", key, n.bucket, err)
	}
	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()
	if readErr != nil {
		return nil, fmt.Errorf("object store: read %q: %w", key, readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("object store: close %q: %w", key, closeErr)
	}
	return data, nil
}

// SignedURL implements [Store].
func (n *NATSStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return n.signer.Sign(key, ttl), nil
}
