package tts

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoAdapter is returned by [Registry.Lookup] when no adapter has been
// registered under the requested provider slug. This is a configuration
// error: callers must surface it immediately and never retry.
var ErrNoAdapter = errors.New("tts: no adapter for this provider")

// Registry maps provider slugs to adapter instances. It is populated once
// at process start by registering every built-in adapter, and is safe for
// concurrent use afterwards.
//
// The same adapter may be registered under several alias slugs, since one
// vendor may be referenced by more than one human-chosen name in
// configuration ("eleven" and "elevenlabs", say).
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register registers adapter under every given slug. Subsequent calls with
// an already-registered slug overwrite the previous registration.
func (r *Registry) Register(adapter Adapter, slugs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, slug := range slugs {
		r.adapters[slug] = adapter
	}
}

// Lookup returns the adapter registered under slug. Returns an error
// wrapping [ErrNoAdapter] for unknown slugs.
func (r *Registry) Lookup(slug string) (Adapter, error) {
	r.mu.RLock()
	adapter, ok := r.adapters[slug]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoAdapter, slug)
	}
	return adapter, nil
}

// Slugs returns all registered slugs in sorted order, for startup logging
// and config validation.
func (r *Registry) Slugs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slugs := make([]string, 0, len(r.adapters))
	for slug := range r.adapters {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
