package bal

// sim.go boots a described network so that blockchain nodes can be run on its hosts

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"
)

// ErrNotBuilt is returned when a simulator is started before it is built
var ErrNotBuilt = errors.New("network not built")

// Simulator is a network simulator able to take a topology description and run it
type Simulator interface {
	Build(tc *TopoCfg) error
	Start() error
	Stop() error

	// Host returns the simulated host of the given name
	Host(name string) (Host, bool)

	// Hosts returns the host names, in topology order
	Hosts() []string
}

// LocalSim is a Simulator whose hosts are LocalHosts, their processes running
// on the local machine
type LocalSim struct {
	params NetParams

	topo    *TopoCfg
	routes  *RouteTable
	hosts   map[string]*LocalHost
	order   []string
	nodes   map[string]*BCNode
	running bool
}

var _ Simulator = (*LocalSim)(nil)

// CreateLocalSim is a constructor
func CreateLocalSim(params NetParams) *LocalSim {
	ls := new(LocalSim)
	ls.params = params.withDefaults()
	ls.hosts = make(map[string]*LocalHost)
	ls.nodes = make(map[string]*BCNode)
	return ls
}

// Build creates a host for every host the topology describes. When the
// network parameters ask for it, the topology must be connected.
func (ls *LocalSim) Build(tc *TopoCfg) error {
	if ls.running {
		return fmt.Errorf("network %s is running", ls.topo.Name)
	}

	routes := BuildRoutes(tc)
	if ls.params.WaitConnected && !routes.Connected() {
		return fmt.Errorf("network %s is not connected", tc.Name)
	}

	ls.topo = tc
	ls.routes = routes
	ls.hosts = make(map[string]*LocalHost)
	ls.order = []string{}
	for _, hd := range tc.Hosts {
		ls.hosts[hd.Name] = CreateLocalHost(hd.Name, hd.IP, hd.CPU)
		ls.order = append(ls.order, hd.Name)
	}

	logger.Info().Str("network", tc.Name).Int("switches", len(tc.Switches)).
		Int("hosts", len(tc.Hosts)).Int("links", len(tc.Links)).Msg("network built")
	return nil
}

// Start starts the network
func (ls *LocalSim) Start() error {
	if ls.topo == nil {
		return ErrNotBuilt
	}
	ls.running = true
	logger.Info().Str("network", ls.topo.Name).Msg("network started")
	return nil
}

// Stop stops every running node, then every host, and marks the network stopped
func (ls *LocalSim) Stop() error {
	if ls.topo == nil {
		return ErrNotBuilt
	}

	errs := []error{}
	for _, name := range ls.nodeNames() {
		node := ls.nodes[name]
		if node.Running() {
			errs = append(errs, node.Stop())
		}
		delete(ls.nodes, name)
	}
	for _, name := range ls.order {
		if !ls.hosts[name].Stopped() {
			errs = append(errs, ls.hosts[name].Stop())
		}
	}
	ls.running = false

	logger.Info().Str("network", ls.topo.Name).Msg("network stopped")
	return ReportErrs(errs)
}

// Running reports whether the network has been started and not stopped
func (ls *LocalSim) Running() bool {
	return ls.running
}

// Host returns the simulated host of the given name
func (ls *LocalSim) Host(name string) (Host, bool) {
	lh, present := ls.hosts[name]
	if !present {
		return nil, false
	}
	return lh, true
}

// Hosts returns the host names, in topology order
func (ls *LocalSim) Hosts() []string {
	return append([]string{}, ls.order...)
}

// Topo returns the topology the network was built from
func (ls *LocalSim) Topo() *TopoCfg {
	return ls.topo
}

// Routes returns the route table of the network
func (ls *LocalSim) Routes() *RouteTable {
	return ls.routes
}

// AttachNode creates a node with the given configuration on the named host.
// A host carries at most one node.
func (ls *LocalSim) AttachNode(hostName string, cfg NodeCfg) (*BCNode, error) {
	host, present := ls.hosts[hostName]
	if !present {
		return nil, fmt.Errorf("host %s not in network", hostName)
	}
	if _, present := ls.nodes[hostName]; present {
		return nil, fmt.Errorf("host %s already carries a node", hostName)
	}

	node, err := CreateBCNode(host, cfg)
	if err != nil {
		return nil, err
	}
	ls.nodes[hostName] = node
	return node, nil
}

// DetachNode forgets the node of the named host
func (ls *LocalSim) DetachNode(hostName string) {
	delete(ls.nodes, hostName)
}

// Node returns the node attached to the named host, if any
func (ls *LocalSim) Node(hostName string) (*BCNode, bool) {
	node, present := ls.nodes[hostName]
	return node, present
}

// nodeNames returns the names of hosts carrying nodes, sorted
func (ls *LocalSim) nodeNames() []string {
	names := make([]string, 0, len(ls.nodes))
	for name := range ls.nodes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
