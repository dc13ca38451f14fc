package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const testBodies = `
bodies:
  - name: first
    arg_count: 1
    locals: [{ty: i32}, {ty: i32}]
    blocks:
      - statements:
          - assign: {place: _0, binop: Add, args: [_1, "const 1_i32"]}
        terminator: {return: true}
  - name: second
    locals: [{ty: bool}]
    blocks:
      - statements:
          - assign: {place: _0, use: const true}
        terminator: {goto: 1}
      - terminator: {return: true}
`

// createTestBodies builds the two bodies in testBodies.
func createTestBodies(t *testing.T) (first, second *mir.Body) {
	t.Helper()
	f := testutil.ParseFixture(t, testBodies)
	return testutil.Body(t, f, "first"), testutil.Body(t, f, "second")
}
