package bal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// chainTopo is s1-s2-s3 with h1 on s1 and h2 on s3
func chainTopo(t *testing.T) *TopoCfg {
	t.Helper()
	tf := CreateTopoCfgFrame("chain")
	switches := []*SwitchFrame{}
	for _, name := range []string{"s1", "s2", "s3"} {
		sf := CreateSwitch(name, "", "standalone")
		require.NoError(t, tf.AddSwitch(sf))
		switches = append(switches, sf)
	}
	h1 := CreateHost("h1", "", "10.0.0.1", 1)
	h2 := CreateHost("h2", "", "10.0.0.2", 1)
	require.NoError(t, tf.AddHost(h1))
	require.NoError(t, tf.AddHost(h2))

	require.NoError(t, tf.ConnectDevs(switches[0], h1, 1))
	require.NoError(t, tf.ConnectDevs(switches[2], h2, 1))
	require.NoError(t, tf.ConnectDevs(switches[0], switches[1], 1))
	require.NoError(t, tf.ConnectDevs(switches[1], switches[2], 1))

	tc := tf.Transform()
	return &tc
}

func TestRoute(t *testing.T) {
	rt := BuildRoutes(chainTopo(t))
	require.True(t, rt.Connected())

	route, err := rt.Route("h1", "h2")
	require.NoError(t, err)
	require.Equal(t, []string{"h1", "s1", "s2", "s3", "h2"}, route)
	require.Equal(t, "h1,s1,s2,s3,h2", ShowPath(route))

	// answered by walking the tree rooted in h1 backwards
	route, err = rt.Route("h2", "h1")
	require.NoError(t, err)
	require.Equal(t, []string{"h2", "s3", "s2", "s1", "h1"}, route)

	route, err = rt.Route("s2", "s2")
	require.NoError(t, err)
	require.Equal(t, []string{"s2"}, route)

	_, err = rt.Route("h1", "h7")
	require.Error(t, err)
	_, err = rt.Route("h7", "h1")
	require.Error(t, err)
}

func TestRouteDisconnected(t *testing.T) {
	tc := chainTopo(t)
	tc.Hosts = append(tc.Hosts, HostDesc{Name: "h3", IP: "10.0.0.3", CPU: 1})

	rt := BuildRoutes(tc)
	require.False(t, rt.Connected())

	_, err := rt.Route("h1", "h3")
	require.Error(t, err)
}

func TestNeighbors(t *testing.T) {
	rt := BuildRoutes(chainTopo(t))
	require.Equal(t, []string{"h1", "s2"}, rt.Neighbors("s1"))
	require.Equal(t, []string{"s1", "s3"}, rt.Neighbors("s2"))
	require.Equal(t, []string{"s1"}, rt.Neighbors("h1"))
	require.Nil(t, rt.Neighbors("s9"))
}
