package bal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTraceManager(t *testing.T) {
	dir := t.TempDir()

	tm := CreateTraceManager("idle", false)
	require.False(t, tm.Active())
	tm.AddCallTrace("h1", "curl chain", "{}", nil)
	require.Empty(t, tm.Traces)

	written, err := tm.WriteToFile(filepath.Join(dir, "idle.json"))
	require.NoError(t, err)
	require.False(t, written)
	require.NoFileExists(t, filepath.Join(dir, "idle.json"))

	tm = CreateTraceManager("busy", true)
	tm.AddCallTrace("h1", "curl chain", "{}", nil)
	tm.AddCallTrace("h1", "curl mine", "", errors.New("exit status 7"))
	tm.AddCallTrace("h2", "curl chain", "{}", nil)
	require.Len(t, tm.Traces["h1"], 2)
	require.Equal(t, "exit status 7", tm.Traces["h1"][1].Err)

	filename := filepath.Join(dir, "busy.json")
	written, err = tm.WriteToFile(filename)
	require.NoError(t, err)
	require.True(t, written)

	bytes, err := os.ReadFile(filename)
	require.NoError(t, err)
	read := TraceManager{}
	require.NoError(t, json.Unmarshal(bytes, &read))
	require.Equal(t, *tm, read)
}
