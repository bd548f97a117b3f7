package bal

// routes.go provides functions to create and access shortest path routes through a described network

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// The general approach is to convert the TopoCfg representation of the network
// into the data structures used by a graph package that has built-in path discovery
// algorithms.  Weighting each link by 1, a shortest path minimizes the number of hops.
//
// The Dijkstra algorithm we call computes a tree of shortest paths from a named node,
// so to find the path from src to dst we either compute such a tree rooted in src, or
// look up a cached tree rooted in src, or failing that one rooted in dst, whose path
// to src is by symmetry the reversal of what we want.

// RouteTable answers route queries over one topology
type RouteTable struct {
	// device names indexed by graph node id, and the reverse map
	names []string
	ids   map[string]int64

	connGraph *simple.WeightedUndirectedGraph

	// cachedSP saves the result of computing shortest-path trees, keyed by root id
	cachedSP map[int64]path.Shortest
}

// BuildRoutes returns a RouteTable over the devices and links of tc
func BuildRoutes(tc *TopoCfg) *RouteTable {
	rt := new(RouteTable)
	rt.ids = make(map[string]int64)
	rt.cachedSP = make(map[int64]path.Shortest)
	rt.connGraph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))

	for _, swtch := range tc.Switches {
		rt.addDev(swtch.Name)
	}
	for _, host := range tc.Hosts {
		rt.addDev(host.Name)
	}

	for _, link := range tc.Links {
		id1, present1 := rt.ids[link.Dev1]
		id2, present2 := rt.ids[link.Dev2]

		// a link naming an unknown device, or looping back to its own device, carries no route
		if !present1 || !present2 || id1 == id2 {
			continue
		}
		rt.connGraph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(id1), T: simple.Node(id2), W: 1.0})
	}
	return rt
}

// addDev gives a device the next graph node id
func (rt *RouteTable) addDev(name string) {
	if _, present := rt.ids[name]; present {
		return
	}
	id := int64(len(rt.names))
	rt.names = append(rt.names, name)
	rt.ids[name] = id
	rt.connGraph.AddNode(simple.Node(id))
}

// getSPTree returns the shortest path tree rooted in input argument 'from'.
// If the tree is found in the cache it is returned, if not it is computed, saved, and returned.
func (rt *RouteTable) getSPTree(from int64) path.Shortest {
	spTree, present := rt.cachedSP[from]
	if present {
		return spTree
	}
	spTree = path.DijkstraFrom(simple.Node(from), rt.connGraph)
	rt.cachedSP[from] = spTree
	return spTree
}

// convertNodeSeq extracts the device names from a sequence of graph nodes
func (rt *RouteTable) convertNodeSeq(nsQ []graph.Node) []string {
	rtn := make([]string, 0, len(nsQ))
	for _, node := range nsQ {
		rtn = append(rtn, rt.names[node.ID()])
	}
	return rtn
}

// Route returns the names of the devices on a shortest path from src to dst, both included
func (rt *RouteTable) Route(src, dst string) ([]string, error) {
	srcID, present := rt.ids[src]
	if !present {
		return nil, fmt.Errorf("device %s not in topology", src)
	}
	dstID, present := rt.ids[dst]
	if !present {
		return nil, fmt.Errorf("device %s not in topology", dst)
	}

	var route []string
	_, srcTree := rt.cachedSP[srcID]
	dstSPTree, dstTree := rt.cachedSP[dstID]
	if !srcTree && dstTree {
		// a tree rooted in dst exists already, walk it backwards
		revNodeSeq, _ := dstSPTree.To(srcID)
		revRoute := rt.convertNodeSeq(revNodeSeq)
		for idx := len(revRoute) - 1; idx >= 0; idx-- {
			route = append(route, revRoute[idx])
		}
	} else {
		nodeSeq, _ := rt.getSPTree(srcID).To(dstID)
		route = rt.convertNodeSeq(nodeSeq)
	}

	if len(route) == 0 {
		return nil, fmt.Errorf("no route from %s to %s", src, dst)
	}
	return route, nil
}

// Connected reports whether every device can reach every other device
func (rt *RouteTable) Connected() bool {
	if len(rt.names) < 2 {
		return true
	}
	return len(topo.ConnectedComponents(rt.connGraph)) == 1
}

// ShowPath returns a comma-separated list of the device names on a route
func ShowPath(route []string) string {
	return strings.Join(route, ",")
}

// Neighbors returns the names of the devices directly linked to the named one, sorted
func (rt *RouteTable) Neighbors(name string) []string {
	id, present := rt.ids[name]
	if !present {
		return nil
	}
	nbrs := []string{}
	for _, node := range graph.NodesOf(rt.connGraph.From(id)) {
		nbrs = append(nbrs, rt.names[node.ID()])
	}
	slices.Sort(nbrs)
	return nbrs
}
