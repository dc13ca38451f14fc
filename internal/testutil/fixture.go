package testutil

import (
	"testing"

	"github.com/roach88/mirkit/internal/fixture"
	"github.com/roach88/mirkit/internal/mir"
)

// ParseFixture builds a fixture from YAML source, failing the test on
// any error.
func ParseFixture(t testing.TB, src string) *fixture.Fixture {
	t.Helper()
	fx, err := fixture.Parse([]byte(src))
	if err != nil {
		t.Fatalf("fixture.Parse() failed: %v", err)
	}
	return fx
}

// LoadFixture reads a fixture file, failing the test on any error.
func LoadFixture(t testing.TB, path string) *fixture.Fixture {
	t.Helper()
	fx, err := fixture.Load(path)
	if err != nil {
		t.Fatalf("fixture.Load(%s) failed: %v", path, err)
	}
	return fx
}

// Body returns the named body of fx, failing the test when there is none.
func Body(t testing.TB, fx *fixture.Fixture, name string) *mir.Body {
	t.Helper()
	b, ok := fx.Body(name)
	if !ok {
		t.Fatalf("fixture has no body %q", name)
	}
	return b
}
