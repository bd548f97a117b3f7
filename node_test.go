package bal

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, cfg NodeCfg) (*BCNode, *LocalHost) {
	t.Helper()
	host := CreateLocalHost("h1", "10.0.0.1", 0.5)
	node, err := CreateBCNode(host, cfg)
	require.NoError(t, err)
	return node, host
}

func TestCreateBCNode(t *testing.T) {
	node, _ := newTestNode(t, NodeCfg{Client: "curl"})
	require.Equal(t, DefaultServerDir, node.Cfg().ServerDir)
	require.Equal(t, DefaultSocket, node.Cfg().Socket)
	require.Equal(t, "h1", node.Name())
	require.Equal(t, filepath.Join(DefaultServerDir, "bc_h1.log"), node.LogPath())

	host := CreateLocalHost("h1", "10.0.0.1", 1)
	_, err := CreateBCNode(host, NodeCfg{Server: "srv", ServerArgs: "-x {command}"})
	require.ErrorIs(t, err, ErrBadTemplate)

	_, err = CreateBCNode(host, NodeCfg{Client: "cli", ClientArgs: "-x {socket}"})
	require.ErrorIs(t, err, ErrBadTemplate)

	_, err = CreateBCNode(host, NodeCfg{Client: "cli", ClientArgs: "{command} > out.txt"})
	require.ErrorIs(t, err, ErrBadTemplate)

	_, err = CreatePOWNode(host)
	require.NoError(t, err)
	_, err = CreatePOSNode(host)
	require.NoError(t, err)
}

func TestServerArgv(t *testing.T) {
	node, _ := newTestNode(t, POWNodeCfg())
	argv := node.ServerArgv("/sim/run1")
	require.Equal(t, []string{
		"-p", "5000", "-s", "6000", "-d", "2", "-k", "/tmp/bcn/10.0.0.1pow.pem", "-n", "h1", "-sp", "/sim/run1",
	}, argv)

	node, _ = newTestNode(t, POSNodeCfg())
	argv = node.ServerArgv("/sim/run1")
	require.Equal(t, []string{
		"-p", "5000", "-s", "6000", "-v", "pos", "-k", "/tmp/bcn/10.0.0.1pos.pem", "-n", "h1", "-sp", "/sim/run1",
	}, argv)

	// a simulation path with a space stays one argument
	argv = node.ServerArgv("/sim/my run")
	require.Equal(t, "/sim/my run", argv[len(argv)-1])
}

func TestClientArgv(t *testing.T) {
	node, _ := newTestNode(t, POWNodeCfg())

	require.Equal(t, []string{"-s", "-X", "GET", "http://10.0.0.1:5000/chain"}, node.ClientArgv("chain", ""))

	data := `{"sender": "10.0.0.1", "recipient": "10.0.0.2", "amount": 3}`
	require.Equal(t, []string{
		"-s", "-X", "POST", "-H", "Content-Type: application/json", "-d", data,
		"http://10.0.0.1:5000/transactions/new",
	}, node.ClientArgv("transactions/new", data))

	// commands reach the client whole, whatever shell characters they hold
	for _, command := range []string{"chain?a=1&b=2", "nodes/resolve;x", "find|me", "it's", "two words"} {
		require.Equal(t, []string{"-s", "-X", "GET", "http://10.0.0.1:5000/" + command}, node.ClientArgv(command, ""), command)
	}

	// no {command} in the client template appends the command
	node, _ = newTestNode(t, NodeCfg{Client: "cli"})
	require.Equal(t, []string{"mine"}, node.ClientArgv("mine", ""))

	node, _ = newTestNode(t, NodeCfg{Client: "cli", ClientArgs: "-v --port {port}", Port: "7000"})
	require.Equal(t, []string{"-v", "--port", "7000", "mine&go"}, node.ClientArgv("mine&go", ""))

	// an empty client dir drops its argument
	node, _ = newTestNode(t, NodeCfg{Client: "cli", ClientArgs: "{cdir} {command}"})
	require.Equal(t, []string{"mine"}, node.ClientArgv("mine", ""))
}

func TestExecutableNotFound(t *testing.T) {
	node, _ := newTestNode(t, NodeCfg{
		Server:    "no-such-blockchain-server",
		ServerDir: t.TempDir(),
		Client:    "no-such-blockchain-client",
	})

	err := node.Start("/sim")
	require.ErrorIs(t, err, ErrExecutableNotFound)
	require.Contains(t, err.Error(), "no-such-blockchain-server")
	require.False(t, node.Running())

	_, err = node.Call("chain", true, "")
	require.ErrorIs(t, err, ErrExecutableNotFound)

	require.Empty(t, node.IsAvailable())
}

func TestIsAvailable(t *testing.T) {
	shPath, err := exec.LookPath("sh")
	require.NoError(t, err)

	node, _ := newTestNode(t, NodeCfg{Server: "sh", Client: "no-such-blockchain-client"})
	require.Equal(t, shPath, node.IsAvailable())

	node, _ = newTestNode(t, NodeCfg{Server: "sh", Client: "sh"})
	require.Equal(t, shPath+"\n"+shPath, node.IsAvailable())
}

func TestStartStop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bcn")
	node, host := newTestNode(t, NodeCfg{Server: "sleep", ServerArgs: "30", ServerDir: dir})

	require.ErrorIs(t, node.Stop(), ErrNodeNotRunning)

	require.NoError(t, node.Start("/sim"))
	require.True(t, node.Running())
	require.False(t, node.Execed)
	require.FileExists(t, filepath.Join(dir, "bc_h1.log"))

	require.ErrorIs(t, node.Start("/sim"), ErrNodeRunning)

	require.NoError(t, node.Stop())
	require.False(t, node.Running())
	require.True(t, host.Stopped())
}

func TestServerLog(t *testing.T) {
	dir := t.TempDir()
	node, _ := newTestNode(t, NodeCfg{Server: "echo", ServerArgs: "{name} {IP} {simulation_path}", ServerDir: dir})

	require.NoError(t, node.Start("/sim/run2"))
	require.Eventually(t, func() bool {
		log, err := os.ReadFile(node.LogPath())
		return err == nil && len(log) > 0
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, node.Stop())

	log, err := os.ReadFile(node.LogPath())
	require.NoError(t, err)
	require.Equal(t, "h1 10.0.0.1 /sim/run2\n", string(log))
}

func TestNoServer(t *testing.T) {
	node, host := newTestNode(t, NodeCfg{Client: "echo"})
	require.NoError(t, node.Start("/sim"))
	require.False(t, node.Running())
	require.NoError(t, node.Stop())
	require.True(t, host.Stopped())
}

func TestCall(t *testing.T) {
	node, _ := newTestNode(t, NodeCfg{Client: "echo", ClientArgs: "{command} {method}"})
	echo := new(bytes.Buffer)
	node.Echo = echo
	node.Trace = CreateTraceManager("calls", true)

	result, err := node.Call("chain", true, "")
	require.NoError(t, err)
	require.Equal(t, "chain GET\n", result)
	require.Empty(t, echo.String())

	data := `{"amount": 1}`
	result, err = node.Call("transactions/new", false, data)
	require.NoError(t, err)
	require.Equal(t, `transactions/new POST -H Content-Type: application/json -d {"amount": 1}`+"\n", result)
	require.Equal(t, result, echo.String())

	result, err = node.Call("chain?a=1&b=2", true, "")
	require.NoError(t, err)
	require.Equal(t, "chain?a=1&b=2 GET\n", result)

	traces := node.Trace.Traces["h1"]
	require.Len(t, traces, 3)
	require.True(t, strings.HasSuffix(traces[0].Command, "echo chain GET"), traces[0].Command)
	require.Equal(t, "chain GET\n", traces[0].Result)
	require.Empty(t, traces[1].Err)
}

func TestCallClientDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker"), nil, 0644))

	node, _ := newTestNode(t, NodeCfg{Client: "ls", ClientDir: dir})
	result, err := node.Call("marker", true, "")
	require.NoError(t, err)
	require.Equal(t, "marker", strings.TrimSpace(result))
}

func TestCallFailure(t *testing.T) {
	node, _ := newTestNode(t, NodeCfg{Client: "false"})
	node.Trace = CreateTraceManager("calls", true)

	_, err := node.Call("chain", true, "")
	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.NotEmpty(t, node.Trace.Traces["h1"][0].Err)
}

func TestCmdString(t *testing.T) {
	require.Equal(t, "curl -s 'Content-Type: json' ''", cmdString("curl", []string{"-s", "Content-Type: json", ""}))
	require.Equal(t, `echo 'it'\''s'`, cmdString("echo", []string{"it's"}))
}

// failingHost runs commands locally but cannot be stopped
type failingHost struct {
	*LocalHost
	err error
}

func (fh *failingHost) Stop() error {
	return fh.err
}

func TestStopHostError(t *testing.T) {
	errGone := errors.New("namespace gone")
	host := &failingHost{LocalHost: CreateLocalHost("h1", "10.0.0.1", 1), err: errGone}
	node, err := CreateBCNode(host, NodeCfg{Server: "sleep", ServerArgs: "30", ServerDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, node.Start("/sim"))
	err = node.Stop()
	require.ErrorIs(t, err, errGone)
	require.False(t, node.Running())
}
