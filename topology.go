package bal

// topology.go generates random topologies of switches and hosts

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"
)

// ErrBadTopoParams is returned when a random topology cannot be built from the arguments given
var ErrBadTopoParams = errors.New("bad topology parameters")

// DefaultLinkTarget is the number of edges asked of the switch graph. Larger
// values make the emulator unstable, so by default only the spanning tree is built.
const DefaultLinkTarget = 1

// NetParams holds the settings of the simulated network that a random topology
// is described for
type NetParams struct {
	// address block hosts are numbered from, e.g. "10.0.0.0/8"
	IPBase string `json:"ipbase" yaml:"ipbase"`

	SwitchModel string `json:"switchmodel" yaml:"switchmodel"`
	HostModel   string `json:"hostmodel" yaml:"hostmodel"`

	// "standalone" switches act as learning bridges without a controller
	FailMode string `json:"failmode" yaml:"failmode"`

	// when true the simulator checks that the network is connected before it starts
	WaitConnected bool `json:"waitconnected" yaml:"waitconnected"`

	// edge count target handed to RandomConnectedGraph
	LinkTarget int `json:"linktarget" yaml:"linktarget"`
}

// DefaultNetParams returns the settings used by the randtopo command
func DefaultNetParams() NetParams {
	return NetParams{
		IPBase:        "10.0.0.0/8",
		SwitchModel:   "OVSKernelSwitch",
		HostModel:     "CPULimitedHost",
		FailMode:      "standalone",
		WaitConnected: true,
		LinkTarget:    DefaultLinkTarget,
	}
}

// withDefaults fills the empty fields of np from DefaultNetParams
func (np NetParams) withDefaults() NetParams {
	dflt := DefaultNetParams()
	if np.IPBase == "" {
		np.IPBase = dflt.IPBase
	}
	if np.FailMode == "" {
		np.FailMode = dflt.FailMode
	}
	if np.LinkTarget == 0 {
		np.LinkTarget = dflt.LinkTarget
	}
	return np
}

// hostAddrs returns n consecutive addresses following the base address of ipBase
func hostAddrs(ipBase string, n int) ([]string, error) {
	prefix, err := netip.ParsePrefix(ipBase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTopoParams, err)
	}

	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if n > 0 && hostBits < 62 && n > (1<<hostBits)-2 {
		return nil, fmt.Errorf("%w: %d hosts do not fit in %s", ErrBadTopoParams, n, ipBase)
	}

	addrs := make([]string, 0, n)
	addr := prefix.Masked().Addr()
	for idx := 0; idx < n; idx++ {
		addr = addr.Next()
		addrs = append(addrs, addr.String())
	}
	return addrs, nil
}

// RandomTopology describes a network of switchNumber switches s1..sN wired together
// as a random connected graph, and hostNumber hosts h1..hH. Each host gets a random
// bandwidth in [1, maxBW] and a cpu share of bandwidth/maxBW, and is linked with
// that bandwidth to a uniformly chosen switch. Switch-to-switch links carry the
// weight of their edge in the graph as bandwidth. The network is described, not started.
func RandomTopology(switchNumber, hostNumber, maxBW int, params NetParams, rng RandSrc) (*TopoCfgFrame, error) {
	if switchNumber < 1 || hostNumber < 0 || maxBW < 1 {
		return nil, fmt.Errorf("%w: switches %d, hosts %d, maximum bandwidth %d",
			ErrBadTopoParams, switchNumber, hostNumber, maxBW)
	}
	params = params.withDefaults()

	addrs, err := hostAddrs(params.IPBase, hostNumber)
	if err != nil {
		return nil, err
	}

	adjMatrix, err := RandomConnectedGraph(switchNumber, params.LinkTarget, maxBW, rng)
	if err != nil {
		return nil, err
	}

	tf := CreateTopoCfgFrame(fmt.Sprintf("random-%ds-%dh", switchNumber, hostNumber))

	switches := make([]*SwitchFrame, switchNumber)
	for idx := 0; idx < switchNumber; idx++ {
		switches[idx] = CreateSwitch("s"+strconv.Itoa(idx+1), params.SwitchModel, params.FailMode)
		if err := tf.AddSwitch(switches[idx]); err != nil {
			return nil, err
		}
	}

	for idx := 0; idx < hostNumber; idx++ {
		bndwdth := ran(rng, maxBW) + 1
		cpu := float64(bndwdth) / float64(maxBW)

		host := CreateHost("h"+strconv.Itoa(idx+1), params.HostModel, addrs[idx], cpu)
		if err := tf.AddHost(host); err != nil {
			return nil, err
		}

		selected := switches[ran(rng, switchNumber)]
		if err := tf.ConnectDevs(selected, host, bndwdth); err != nil {
			return nil, err
		}
	}

	for i := 0; i < switchNumber; i++ {
		for j := i + 1; j < switchNumber; j++ {
			bndwdth := adjMatrix.Weight(i, j)
			if bndwdth == 0 {
				continue
			}
			if err := tf.ConnectDevs(switches[i], switches[j], bndwdth); err != nil {
				return nil, err
			}
		}
	}

	logger.Debug().Str("topology", tf.Name).Strs("edges", adjMatrix.EdgeList()).Msg("switch graph")
	return tf, nil
}
