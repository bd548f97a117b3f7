package bal

// graph.go builds random connected graphs, the switch fabric of a random topology

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrBadGraphParams is returned when the requested graph cannot be built
var ErrBadGraphParams = errors.New("bad graph parameters")

// AdjMatrix is a flattened, row-major V x V adjacency matrix. A non-zero
// cell (i,j) holds the weight of the edge between vertices i and j, 0 means
// no edge. Vertices are 0-based here; EdgeList reports them 1-based.
type AdjMatrix struct {
	V     int
	Cells []int
}

// CreateAdjMatrix is a constructor for an edgeless matrix over v vertices
func CreateAdjMatrix(v int) *AdjMatrix {
	am := new(AdjMatrix)
	am.V = v
	am.Cells = make([]int, v*v)
	return am
}

// Weight returns the weight of edge (i,j), 0 if absent
func (am *AdjMatrix) Weight(i, j int) int {
	return am.Cells[i*am.V+j]
}

// SetEdge writes the weight of the undirected edge (i,j) into both cells
func (am *AdjMatrix) SetEdge(i, j, w int) {
	am.Cells[i*am.V+j] = w
	am.Cells[j*am.V+i] = w
}

// NumEdges counts the edges, each undirected edge once
func (am *AdjMatrix) NumEdges() int {
	count := 0
	for i := 0; i < am.V; i++ {
		for j := i + 1; j < am.V; j++ {
			if am.Weight(i, j) != 0 {
				count += 1
			}
		}
	}
	return count
}

// EdgeList returns one "i j w" line per edge of the upper triangle, with
// vertices labeled from 1
func (am *AdjMatrix) EdgeList() []string {
	lines := []string{}
	for i := 0; i < am.V; i++ {
		for j := i + 1; j < am.V; j++ {
			w := am.Weight(i, j)
			if w == 0 {
				continue
			}
			lines = append(lines, strconv.Itoa(i+1)+" "+strconv.Itoa(j+1)+" "+strconv.Itoa(w))
		}
	}
	return lines
}

// Graph returns the matrix as a gonum weighted undirected graph whose node ids are
// the 0-based vertex indices
func (am *AdjMatrix) Graph() *simple.WeightedUndirectedGraph {
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for i := 0; i < am.V; i++ {
		g.AddNode(simple.Node(i))
	}
	for i := 0; i < am.V; i++ {
		for j := i + 1; j < am.V; j++ {
			w := am.Weight(i, j)
			if w == 0 {
				continue
			}
			g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(i), T: simple.Node(j), W: float64(w)})
		}
	}
	return g
}

// Connected reports whether every vertex can reach every other vertex
func (am *AdjMatrix) Connected() bool {
	if am.V < 2 {
		return true
	}
	var g graph.Undirected = am.Graph()
	return len(topo.ConnectedComponents(g)) == 1
}

// RandomConnectedGraph returns the adjacency matrix of a random connected graph over
// v vertices. A random spanning tree comes first: the vertices are randomly permuted
// and each one after the first is attached to a uniformly chosen earlier one. Random
// extra edges are then added until the graph holds e edges. When e < v-1 the tree is
// returned as is. Edge weights are uniform in [1, w].
func RandomConnectedGraph(v, e, w int, rng RandSrc) (*AdjMatrix, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: %d vertices", ErrBadGraphParams, v)
	}
	if v > 1 && w < 1 {
		return nil, fmt.Errorf("%w: maximum weight %d", ErrBadGraphParams, w)
	}

	// a complete graph bounds the extra-edge loop
	if maxEdges := v * (v - 1) / 2; e > maxEdges {
		return nil, fmt.Errorf("%w: %d edges requested, at most %d possible over %d vertices",
			ErrBadGraphParams, e, maxEdges, v)
	}

	am := CreateAdjMatrix(v)
	if v < 2 {
		return am, nil
	}

	tree := permute(rng, v)
	for i := 1; i < v; i++ {
		j := ran(rng, i)
		am.SetEdge(tree[i], tree[j], ran(rng, w)+1)
	}

	count := v - 1
	for count < e {
		i := ran(rng, v)
		j := ran(rng, v)
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		if am.Weight(i, j) == 0 {
			am.SetEdge(i, j, ran(rng, w)+1)
			count += 1
		}
	}

	return am, nil
}
