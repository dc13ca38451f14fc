package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirkit/internal/mir"
	"github.com/roach88/mirkit/internal/store"
	"github.com/roach88/mirkit/internal/testutil"
)

func TestCacheCommand_PutListGetDelete(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mir.db")

	out, _, err := executeRoot(t, "cache", "put", db, diamondFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "stored 3 bodies (0 unchanged)")

	out, _, err = executeRoot(t, "cache", "put", db, diamondFixture)
	require.NoError(t, err)
	assert.Contains(t, out, "stored 0 bodies (3 unchanged)")

	out, _, err = executeRoot(t, "--format", "json", "cache", "list", db)
	require.NoError(t, err)
	var listed struct {
		Data []CacheEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data, 3)
	assert.Equal(t, "diamond", listed.Data[0].Body)
	assert.Equal(t, "0:3", listed.Data[0].DefID)
	assert.Equal(t, "built", listed.Data[0].Phase)
	diamond := testutil.Body(t, testutil.LoadFixture(t, diamondFixture), "diamond")
	assert.Equal(t, fmt.Sprintf("%016x", store.Fingerprint(diamond, store.Incremental)), listed.Data[0].Fingerprint)

	out, _, err = executeRoot(t, "cache", "get", db, "0:3")
	require.NoError(t, err)
	assert.Contains(t, out, "// MIR for `diamond` at built")

	out, _, err = executeRoot(t, "cache", "get", db, "3", "--phase", "runtime-optimized")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)

	out, _, err = executeRoot(t, "cache", "delete", db, "3")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 1 entries")

	_, _, err = executeRoot(t, "cache", "get", db, "3")
	require.Error(t, err)
}

func TestCacheCommand_Channels(t *testing.T) {
	db := filepath.Join(t.TempDir(), "mir.db")

	_, _, err := executeRoot(t, "cache", "put", db, diamondFixture, "diamond", "--channel", "metadata")
	require.NoError(t, err)

	out, _, err := executeRoot(t, "cache", "list", db)
	require.NoError(t, err)
	assert.Contains(t, out, "no bodies cached")

	out, _, err = executeRoot(t, "cache", "get", db, "3", "--channel", "metadata")
	require.NoError(t, err)
	assert.Contains(t, out, "fn diamond(_1: i32) -> i32 {")

	_, _, err = executeRoot(t, "cache", "list", db, "--channel", "disk")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestParseDefID(t *testing.T) {
	tests := []struct {
		in      string
		want    mir.DefID
		wantErr string
	}{
		{in: "7", want: mir.DefID{Index: 7}},
		{in: "2:7", want: mir.DefID{Crate: 2, Index: 7}},
		{in: "x:7", wantErr: "bad crate"},
		{in: "2:", wantErr: "bad index"},
		{in: "-1", wantErr: "bad index"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDefID(tt.in)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCacheSource_Promoted(t *testing.T) {
	src, err := cacheSource(&CacheOptions{Promoted: 1}, "0:3")
	require.NoError(t, err)
	require.NotNil(t, src.Promoted)
	assert.Equal(t, mir.Promoted(1), *src.Promoted)

	src, err = cacheSource(&CacheOptions{Promoted: -1}, "3")
	require.NoError(t, err)
	assert.Nil(t, src.Promoted)
}

func TestRenderCacheTable(t *testing.T) {
	out := renderCacheTable([]CacheEntry{
		{Seq: 1, DefID: "0:3", Body: "diamond", Phase: "built", Fingerprint: "00000000deadbeef", StoredSize: 40, RawSize: 60},
		{Seq: 2, DefID: "0:1", Body: "LIMIT", Phase: "built", Fingerprint: "0000000000c0ffee", StoredSize: 10, RawSize: 12},
	})

	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, lines[0], "FINGERPRINT")
	assert.Contains(t, out, "diamond")
	assert.Contains(t, out, "00000000deadbeef")
	assert.Contains(t, out, "40/60")
	assert.Contains(t, out, "50/72")
}
