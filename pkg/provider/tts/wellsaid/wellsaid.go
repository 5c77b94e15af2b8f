// Package wellsaid is a placeholder adapter for WellSaid Labs. Synthesis
// is not yet implemented; every call fails with a configuration error.
package wellsaid

import (
	"context"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Adapter = (*Adapter)(nil)

const slug = "wellsaid"

// Adapter is the unimplemented WellSaid adapter.
type Adapter struct{}

// New creates a new WellSaid Adapter.
func New() *Adapter { return &Adapter{} }

// Generate always fails with tts.ErrNotImplemented.
func (a *Adapter) Generate(_ context.Context, req tts.Request) (*tts.Result, error) {
	return nil, &tts.Error{
		Provider:      slug,
		VendorModelID: req.VendorModelID,
		Kind:          tts.KindConfig,
		Err:           tts.ErrNotImplemented,
	}
}
