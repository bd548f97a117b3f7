package bal

// node.go holds the blockchain node controller. A BCNode runs one configured
// blockchain server and/or client executable on a simulated host: it launches the
// server in the background with its output logged to a file, stops it, and issues
// client calls against it.

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	// ErrExecutableNotFound is returned when a configured server or client is not on the search path
	ErrExecutableNotFound = errors.New("executable not found")

	// ErrNodeRunning is returned by Start when the server was already started
	ErrNodeRunning = errors.New("node server already running")

	// ErrNodeNotRunning is returned by Stop when no server was started
	ErrNodeNotRunning = errors.New("node server not running")
)

// Host is a simulated host as seen by a node: it names the host, gives its
// address, builds commands that run inside it, and cleans it up
type Host interface {
	Name() string
	IP() string

	// Command prepares the named program to run on the host
	Command(name string, args ...string) *exec.Cmd

	// Stop releases whatever the host holds once its processes are gone
	Stop() error
}

// LocalHost is a Host whose processes run directly on the local machine
type LocalHost struct {
	name    string
	ip      string
	cpu     float64
	stopped bool
}

var _ Host = (*LocalHost)(nil)

// CreateLocalHost is a constructor. cpu is the share of the cpu the host is given
func CreateLocalHost(name, ip string, cpu float64) *LocalHost {
	return &LocalHost{name: name, ip: ip, cpu: cpu}
}

// Name returns the host name
func (lh *LocalHost) Name() string {
	return lh.name
}

// IP returns the host address
func (lh *LocalHost) IP() string {
	return lh.ip
}

// CPU returns the host's share of the cpu
func (lh *LocalHost) CPU() float64 {
	return lh.cpu
}

// Command returns an exec.Cmd for the named program
func (lh *LocalHost) Command(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

// Stop marks the host stopped
func (lh *LocalHost) Stop() error {
	lh.stopped = true
	return nil
}

// Stopped reports whether Stop has been called
func (lh *LocalHost) Stopped() bool {
	return lh.stopped
}

// NodeCfg holds the configuration of a blockchain node: which server and client to run,
// their argument templates and working directories, and the node's port and socket.
type NodeCfg struct {
	Server     string `json:"server" yaml:"server"`
	ServerArgs string `json:"sargs" yaml:"sargs"`
	ServerDir  string `json:"sdir" yaml:"sdir"`

	Client     string `json:"client" yaml:"client"`
	ClientArgs string `json:"cargs" yaml:"cargs"`
	ClientDir  string `json:"cdir" yaml:"cdir"`

	Port   string `json:"port" yaml:"port"`
	Socket string `json:"socket" yaml:"socket"`
}

// default server working directory, and socket
const (
	DefaultServerDir = "/tmp/bcn"
	DefaultSocket    = "6000"
)

// client arguments of both presets, a curl call against the node's http port
const curlClientArgs = "-s -X {method} http://{IP}:{port}/{command}"

// POWNodeCfg returns the configuration of a node running a proof-of-work blockchain server
func POWNodeCfg() NodeCfg {
	return NodeCfg{
		Server:     "blockchain.py",
		ServerArgs: "-p {port} -s {socket} -d 2 -k {sdir}/{IP}pow.pem -n {name} -sp {simulation_path}",
		ServerDir:  DefaultServerDir,
		Client:     "curl",
		ClientArgs: curlClientArgs,
		Port:       "5000",
		Socket:     DefaultSocket,
	}
}

// POSNodeCfg returns the configuration of a node running a proof-of-stake blockchain server
func POSNodeCfg() NodeCfg {
	return NodeCfg{
		Server:     "blockchain.py",
		ServerArgs: "-p {port} -s {socket} -v pos -k {sdir}/{IP}pos.pem -n {name} -sp {simulation_path}",
		ServerDir:  DefaultServerDir,
		Client:     "curl",
		ClientArgs: curlClientArgs,
		Port:       "5000",
		Socket:     DefaultSocket,
	}
}

// BCNode controls the blockchain server and client of one simulated host
type BCNode struct {
	host Host
	cfg  NodeCfg

	sargs *argTemplate
	cargs *argTemplate

	// handle of the running server, nil when not started
	proc    *exec.Cmd
	logFile *os.File

	// Execed is true when the server replaced the host's shell rather than running
	// in the background.  Start always runs it in the background.
	Execed bool

	// Echo receives the output of calls that are not silent
	Echo io.Writer

	// Trace, when not nil, records every client call
	Trace *TraceManager

	// lookPath resolves executables on the search path
	lookPath func(string) (string, error)
}

// CreateBCNode is a constructor. Empty ServerDir and Socket fields get their defaults,
// and the argument templates are validated here so that a bad key is reported
// before anything is launched.
func CreateBCNode(host Host, cfg NodeCfg) (*BCNode, error) {
	if cfg.ServerDir == "" {
		cfg.ServerDir = DefaultServerDir
	}
	if cfg.Socket == "" {
		cfg.Socket = DefaultSocket
	}

	sargs, serr := parseArgTemplate(cfg.ServerArgs, serverTemplateKeys)
	cargs, cerr := parseArgTemplate(cfg.ClientArgs, clientTemplateKeys)
	if serr != nil || cerr != nil {
		return nil, errors.Join(serr, cerr)
	}

	node := &BCNode{host: host, cfg: cfg, sargs: sargs, cargs: cargs, Echo: os.Stdout, lookPath: exec.LookPath}
	return node, nil
}

// CreatePOWNode is a constructor for a node with the proof-of-work preset
func CreatePOWNode(host Host) (*BCNode, error) {
	return CreateBCNode(host, POWNodeCfg())
}

// CreatePOSNode is a constructor for a node with the proof-of-stake preset
func CreatePOSNode(host Host) (*BCNode, error) {
	return CreateBCNode(host, POSNodeCfg())
}

// Name returns the name of the node's host
func (node *BCNode) Name() string {
	return node.host.Name()
}

// Cfg returns the node configuration
func (node *BCNode) Cfg() NodeCfg {
	return node.cfg
}

// LogPath returns the file the server's output goes to
func (node *BCNode) LogPath() string {
	return filepath.Join(node.cfg.ServerDir, "bc_"+node.host.Name()+".log")
}

// Running reports whether the server has been started and not stopped
func (node *BCNode) Running() bool {
	return node.proc != nil
}

// resolve looks the executable up on the search path
func (node *BCNode) resolve(name string) (string, error) {
	path, err := node.lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrExecutableNotFound, name, err)
	}
	return path, nil
}

// ServerArgv returns the arguments the server is started with
func (node *BCNode) ServerArgv(simPath string) []string {
	values := map[string]string{
		"name":            node.host.Name(),
		"IP":              node.host.IP(),
		"port":            node.cfg.Port,
		"cdir":            node.cfg.ClientDir,
		"sdir":            node.cfg.ServerDir,
		"socket":          node.cfg.Socket,
		"simulation_path": simPath,
	}
	return node.sargs.argv(values, nil)
}

// ClientArgv returns the arguments a call of command is made with. A non-empty data
// is a JSON body sent with POST, otherwise the method is GET. When the client
// template has no {command} the command is appended as the last argument.
func (node *BCNode) ClientArgv(command, data string) []string {
	method := []string{"GET"}
	if data != "" {
		method = []string{"POST", "-H", "Content-Type: application/json", "-d", data}
	}

	values := map[string]string{
		"command": command,
		"name":    node.host.Name(),
		"IP":      node.host.IP(),
		"port":    node.cfg.Port,
		"cdir":    node.cfg.ClientDir,
		"sdir":    node.cfg.ServerDir,
	}
	argv := node.cargs.argv(values, map[string][]string{"method": method})
	if !node.cargs.uses("command") {
		argv = append(argv, command)
	}
	return argv
}

// Start launches the server in the background, with its standard output and error
// going to <sdir>/bc_<name>.log. simPath is handed to the server as its simulation path.
// A node without a server has nothing to start.
func (node *BCNode) Start(simPath string) error {
	if node.cfg.Server == "" {
		return nil
	}
	if node.proc != nil {
		return fmt.Errorf("%w: %s", ErrNodeRunning, node.Name())
	}

	server, err := node.resolve(node.cfg.Server)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(node.cfg.ServerDir, 0755); err != nil {
		return err
	}

	argv := node.ServerArgv(simPath)
	logFile, err := os.OpenFile(node.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	cmd := node.host.Command(server, argv...)
	cmd.Dir = node.cfg.ServerDir
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	logger.Debug().Str("node", node.Name()).Str("cmd", cmdString(server, argv)).Str("log", node.LogPath()).Msg("start server")

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return err
	}

	node.proc = cmd
	node.logFile = logFile
	node.Execed = false
	return nil
}

// Stop terminates the server, waits for it to exit, and then stops the host
func (node *BCNode) Stop() error {
	if node.proc == nil {
		if node.cfg.Server != "" {
			return fmt.Errorf("%w: %s", ErrNodeNotRunning, node.Name())
		}
		return node.host.Stop()
	}

	// the server may have exited on its own, in which case there is nothing to signal
	serr := node.proc.Process.Signal(syscall.SIGTERM)
	if errors.Is(serr, os.ErrProcessDone) {
		serr = nil
	}

	// an exit status after SIGTERM is the expected outcome
	werr := node.proc.Wait()
	var exitErr *exec.ExitError
	if errors.As(werr, &exitErr) {
		logger.Debug().Str("node", node.Name()).Str("status", exitErr.String()).Msg("server exited")
		werr = nil
	}

	cerr := node.logFile.Close()
	node.proc = nil
	node.logFile = nil

	herr := node.host.Stop()
	return ReportErrs([]error{serr, werr, cerr, herr})
}

// IsAvailable returns the search-path locations of the configured server and
// client, one per line. It is empty when neither can be found.
func (node *BCNode) IsAvailable() string {
	found := []string{}
	for _, name := range []string{node.cfg.Server, node.cfg.Client} {
		if name == "" {
			continue
		}
		if path, err := node.lookPath(name); err == nil {
			found = append(found, path)
		}
	}
	return strings.Join(found, "\n")
}

// Call runs the client with command against the node's server and returns what
// the client printed. When data is not empty it is sent as a JSON body with POST.
// Unless silent, the output is also echoed.
func (node *BCNode) Call(command string, silent bool, data string) (string, error) {
	client, err := node.resolve(node.cfg.Client)
	if err != nil {
		return "", err
	}

	argv := node.ClientArgv(command, data)

	var out bytes.Buffer
	cmd := node.host.Command(client, argv...)
	if node.cfg.ClientDir != "" {
		cmd.Dir = node.cfg.ClientDir
	}
	cmd.Stdout = &out
	cmd.Stderr = &out
	if !silent && node.Echo != nil {
		cmd.Stdout = io.MultiWriter(&out, node.Echo)
		cmd.Stderr = cmd.Stdout
	}

	err = cmd.Run()
	result := out.String()

	cmdLine := cmdString(client, argv)
	logger.Debug().Str("node", node.Name()).Str("command", cmdLine).Str("result", result).Msg("call")
	if node.Trace != nil {
		node.Trace.AddCallTrace(node.Name(), cmdLine, result, err)
	}
	return result, err
}

// cmdString renders a program and its arguments as one line, quoting arguments with spaces
func cmdString(name string, argv []string) string {
	words := []string{name}
	for _, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
		}
		words = append(words, arg)
	}
	return strings.Join(words, " ")
}
