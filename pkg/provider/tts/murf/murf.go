// Package murf is a placeholder adapter for Murf.ai. Synthesis is not yet
// implemented; every call fails with a configuration error, which the
// registry and orchestrator treat exactly like any other adapter failure.
package murf

import (
	"context"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const slug = "murf"

// Adapter is the unimplemented Murf.ai adapter.
type Adapter struct{}

// New creates a new Murf Adapter.
func New() *Adapter { return &Adapter{} }

// Generate always fails with tts.ErrNotImplemented.
// TODO: implement once a Murf API account and contract tests exist.
func (a *Adapter) Generate(_ context.Context, req tts.Request) (*tts.Result, error) {
	return nil, &tts.Error{
		Provider:      slug,
		VendorModelID: req.VendorModelID,
		Kind:          tts.KindConfig,
		Err:           tts.ErrNotImplemented,
	}
}
