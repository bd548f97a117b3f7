package bal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeCfgDict(t *testing.T) {
	ncd := DefaultNodeCfgDict()

	pow, present := ncd.RecoverNodeCfg("pow")
	require.True(t, present)
	require.Equal(t, POWNodeCfg(), pow)

	_, present = ncd.RecoverNodeCfg("pbft")
	require.False(t, present)

	custom := NodeCfg{Server: "node.py", ServerArgs: "-p {port}", Client: "curl", ClientArgs: curlClientArgs, Port: "5001"}
	require.Error(t, ncd.AddNodeCfg("pow", custom, false))
	require.NoError(t, ncd.AddNodeCfg("pow", custom, true))
	require.NoError(t, ncd.AddNodeCfg("custom", custom, false))

	pow, _ = ncd.RecoverNodeCfg("pow")
	require.Equal(t, "5001", pow.Port)
}

func TestNodeCfgDictFiles(t *testing.T) {
	ncd := DefaultNodeCfgDict()
	dir := t.TempDir()

	for _, name := range []string{"nodes.yaml", "nodes.json"} {
		filename := filepath.Join(dir, name)
		require.NoError(t, ncd.WriteToFile(filename))

		read, err := ReadNodeCfgDict(filename, UseYAMLExt(filename), nil)
		require.NoError(t, err)
		require.Equal(t, ncd, read)
	}

	read, err := ReadNodeCfgDict("", true, []byte("dictname: inline\ncfgs:\n  echo:\n    client: echo\n    cargs: '{command}'\n"))
	require.NoError(t, err)
	echo, present := read.RecoverNodeCfg("echo")
	require.True(t, present)
	require.Equal(t, NodeCfg{Client: "echo", ClientArgs: "{command}"}, echo)

	_, err = ReadNodeCfgDict(filepath.Join(dir, "missing.json"), false, nil)
	require.Error(t, err)
}
