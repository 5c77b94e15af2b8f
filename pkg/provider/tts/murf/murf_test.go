package murf

import (
	"context"
	"errors"
	"testing"

	"github.com/voxarena/voxarena/pkg/provider/tts"
)

func TestGenerateNotImplemented(t *testing.T) {
	_, err := New().Generate(context.Background(), tts.Request{Text: "x", VendorModelID: "gen2"})
	if !errors.Is(err, tts.ErrNotImplemented) {
		t.Fatalf("error = %v, want ErrNotImplemented", err)
	}
	terr := tts.AsError(err)
	if terr == nil || terr.Kind != tts.KindConfig {
		t.Fatalf("error = %v, want config-class typed error", err)
	}
	if terr.Retryable() {
		t.Error("not-implemented error must not be retryable")
	}
}
