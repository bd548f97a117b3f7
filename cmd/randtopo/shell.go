package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ceyonur/bal"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const shellHelp = `Commands:
  nodes                           list switches and hosts
  links                           list links with their bandwidth
  net                             list every device with its neighbors
  dump [file]                     show hosts, or write the topology to a .json or .yaml file
  route <dev> <dev>               show a shortest route between two devices
  start <host> pow|pos <simpath>  start a blockchain node on a host
  call <host> <command> [json]    call a node; a json body makes it a POST
  avail <host>                    show where the node's executables were found
  presets [file]                  list node kinds, or write them to a .json or .yaml file
  stop <host>                     stop the node of a host
  exit, quit                      stop the network and leave
`

// shell runs the commands typed at the randtopo prompt against a running network
type shell struct {
	sim   *bal.LocalSim
	out   io.Writer
	cfgs  *bal.NodeCfgDict
	trace *bal.TraceManager
}

func newShell(sim *bal.LocalSim, out io.Writer, cfgs *bal.NodeCfgDict) *shell {
	return &shell{sim: sim, out: out, cfgs: cfgs}
}

// exec runs one command line, and reports whether the shell should quit
func (sh *shell) exec(line string) (bool, error) {
	words, err := bal.SplitArgs(line)
	if err != nil {
		return false, err
	}
	if len(words) == 0 {
		return false, nil
	}

	args := words[1:]
	switch words[0] {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprint(sh.out, shellHelp)
	case "nodes":
		sh.nodes()
	case "links":
		for _, link := range sh.sim.Topo().Links {
			fmt.Fprintf(sh.out, "%s<->%s (%d Mbps)\n", link.Dev1, link.Dev2, link.Bndwdth)
		}
	case "net":
		sh.net()
	case "dump":
		return false, sh.dump(args)
	case "route":
		if len(args) != 2 {
			return false, fmt.Errorf("usage: route <dev> <dev>")
		}
		route, err := sh.sim.Routes().Route(args[0], args[1])
		if err != nil {
			return false, err
		}
		fmt.Fprintln(sh.out, bal.ShowPath(route))
	case "start":
		return false, sh.start(args)
	case "call":
		return false, sh.call(args)
	case "avail":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: avail <host>")
		}
		node, err := sh.node(args[0])
		if err != nil {
			return false, err
		}
		fmt.Fprintln(sh.out, node.IsAvailable())
	case "presets":
		if len(args) == 1 {
			return false, sh.cfgs.WriteToFile(args[0])
		}
		kinds := maps.Keys(sh.cfgs.Cfgs)
		slices.Sort(kinds)
		fmt.Fprintln(sh.out, strings.Join(kinds, " "))
	case "stop":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: stop <host>")
		}
		node, err := sh.node(args[0])
		if err != nil {
			return false, err
		}
		sh.sim.DetachNode(args[0])
		return false, node.Stop()
	default:
		return false, fmt.Errorf("unknown command %q, try help", words[0])
	}
	return false, nil
}

func (sh *shell) nodes() {
	names := []string{}
	for _, swtch := range sh.sim.Topo().Switches {
		names = append(names, swtch.Name)
	}
	names = append(names, sh.sim.Hosts()...)
	fmt.Fprintf(sh.out, "available nodes are:\n%s\n", strings.Join(names, " "))
}

func (sh *shell) net() {
	tc := sh.sim.Topo()
	routes := sh.sim.Routes()
	for _, swtch := range tc.Switches {
		fmt.Fprintf(sh.out, "%s %s\n", swtch.Name, strings.Join(routes.Neighbors(swtch.Name), " "))
	}
	for _, host := range tc.Hosts {
		fmt.Fprintf(sh.out, "%s %s\n", host.Name, strings.Join(routes.Neighbors(host.Name), " "))
	}
}

func (sh *shell) dump(args []string) error {
	if len(args) == 1 {
		return sh.sim.Topo().WriteToFile(args[0])
	}
	for _, host := range sh.sim.Topo().Hosts {
		state := ""
		if node, present := sh.sim.Node(host.Name); present && node.Running() {
			state = " node running"
		}
		fmt.Fprintf(sh.out, "<Host %s: %s cpu=%.3f%s>\n", host.Name, host.IP, host.CPU, state)
	}
	return nil
}

func (sh *shell) node(hostName string) (*bal.BCNode, error) {
	node, present := sh.sim.Node(hostName)
	if !present {
		return nil, fmt.Errorf("no node on host %s", hostName)
	}
	return node, nil
}

func (sh *shell) start(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: start <host> pow|pos <simpath>")
	}
	cfg, present := sh.cfgs.RecoverNodeCfg(args[1])
	if !present {
		return fmt.Errorf("unknown node kind %q", args[1])
	}

	node, err := sh.sim.AttachNode(args[0], cfg)
	if err != nil {
		return err
	}
	node.Echo = sh.out
	node.Trace = sh.trace

	if err := node.Start(args[2]); err != nil {
		sh.sim.DetachNode(args[0])
		return err
	}
	fmt.Fprintf(sh.out, "%s: logging to %s\n", args[0], node.LogPath())
	return nil
}

func (sh *shell) call(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("usage: call <host> <command> [json]")
	}
	node, err := sh.node(args[0])
	if err != nil {
		return err
	}

	data := ""
	if len(args) == 3 {
		data = args[2]
	}
	_, err = node.Call(args[1], false, data)
	return err
}
