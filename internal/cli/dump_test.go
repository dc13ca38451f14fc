package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpCommand(t *testing.T) {
	out, _, err := executeRoot(t, "dump", diamondFixture)
	require.NoError(t, err)

	assert.Contains(t, out, "// MIR for `diamond` at built")
	assert.Contains(t, out, "StorageLive(_2);")
	assert.NotContains(t, out, "LIMIT")
}

func TestDumpCommand_Consts(t *testing.T) {
	out, _, err := executeRoot(t, "--format", "json", "dump", diamondFixture, "--consts")
	require.NoError(t, err)

	var resp struct {
		Data []DumpedBody `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "diamond", resp.Data[0].Name)
	assert.Equal(t, "LIMIT", resp.Data[1].Name)
	assert.Equal(t, "DOUBLE_LIMIT", resp.Data[2].Name)
	assert.Equal(t, "built", resp.Data[1].Phase)
}

func TestDumpCommand_NamedBodies(t *testing.T) {
	out, _, err := executeRoot(t, "dump", diamondFixture, "LIMIT")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT")
	assert.NotContains(t, out, "diamond")

	_, _, err = executeRoot(t, "dump", diamondFixture, "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
