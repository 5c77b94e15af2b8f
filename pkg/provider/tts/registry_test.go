package tts

import (
	"context"
	"errors"
	"testing"
)

// fakeAdapter is a minimal Adapter for registry tests.
type fakeAdapter struct{ name string }

func (f *fakeAdapter) Generate(context.Context, Request) (*Result, error) {
	return &Result{Audio: []byte(f.name), ContentType: "audio/mpeg"}, nil
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	a := &fakeAdapter{name: "a"}
	reg.Register(a, "acme")

	got, err := reg.Lookup("acme")
	if err != nil {
		t.Fatalf("Lookup(acme): unexpected error: %v", err)
	}
	if got != a {
		t.Errorf("Lookup(acme) returned a different adapter instance")
	}
}

func TestRegistryUnknownSlug(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Lookup("nope")
	if !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("Lookup(nope) error = %v, want ErrNoAdapter", err)
	}
}

func TestRegistryAliases(t *testing.T) {
	reg := NewRegistry()
	a := &fakeAdapter{name: "eleven"}
	reg.Register(a, "elevenlabs", "eleven", "11labs")

	for _, slug := range []string{"elevenlabs", "eleven", "11labs"} {
		got, err := reg.Lookup(slug)
		if err != nil {
			t.Fatalf("Lookup(%q): unexpected error: %v", slug, err)
		}
		if got != a {
			t.Errorf("Lookup(%q) returned a different adapter instance", slug)
		}
	}
}

func TestRegistrySlugs(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeAdapter{}, "zeta", "alpha")

	slugs := reg.Slugs()
	if len(slugs) != 2 || slugs[0] != "alpha" || slugs[1] != "zeta" {
		t.Errorf("Slugs() = %v, want [alpha zeta]", slugs)
	}
}
