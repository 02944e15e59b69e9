package topology

import (
	"sort"

	"github.com/ritzau/vitals-analyzer/pkg/model"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Index is a gonum-backed adjacency view of a model.Graph. Node IDs are
// assigned in sorted node-ID order so iteration results are deterministic.
type Index struct {
	graph  *simple.WeightedDirectedGraph
	ids    map[string]int64 // Map from node ID to gonum ID
	labels []string         // gonum ID -> node ID
}

// NewIndex builds an index over the nodes and edges of g
func NewIndex(g *model.Graph) *Index {
	idx := &Index{
		graph: simple.NewWeightedDirectedGraph(0, 0),
		ids:   make(map[string]int64, len(g.Nodes)),
	}

	for _, id := range g.NodeIDs() {
		idx.addNode(id)
	}

	for _, e := range g.Edges {
		from, okFrom := idx.ids[e.From]
		to, okTo := idx.ids[e.To]
		if !okFrom || !okTo || from == to {
			continue
		}
		// keep the strongest edge if a pair is somehow linked twice
		if existing := idx.graph.WeightedEdge(from, to); existing != nil && existing.Weight() >= e.Strength {
			continue
		}
		idx.graph.SetWeightedEdge(idx.graph.NewWeightedEdge(idx.graph.Node(from), idx.graph.Node(to), e.Strength))
	}

	return idx
}

func (idx *Index) addNode(id string) {
	if _, exists := idx.ids[id]; exists {
		return
	}
	gid := int64(len(idx.labels))
	idx.ids[id] = gid
	idx.labels = append(idx.labels, id)
	idx.graph.AddNode(simple.Node(gid))
}

// Graph returns the underlying directed graph
func (idx *Index) Graph() graph.Directed {
	return idx.graph
}

// Label returns the node ID for a gonum ID
func (idx *Index) Label(gid int64) string {
	if gid < 0 || gid >= int64(len(idx.labels)) {
		return ""
	}
	return idx.labels[gid]
}

// Len returns the number of indexed nodes
func (idx *Index) Len() int {
	return len(idx.labels)
}

// Successors returns the IDs of nodes the given node has edges to, sorted
func (idx *Index) Successors(id string) []string {
	gid, ok := idx.ids[id]
	if !ok {
		return nil
	}
	return idx.collect(idx.graph.From(gid))
}

// Predecessors returns the IDs of nodes with edges into the given node, sorted
func (idx *Index) Predecessors(id string) []string {
	gid, ok := idx.ids[id]
	if !ok {
		return nil
	}
	return idx.collect(idx.graph.To(gid))
}

// Weight returns the strength of the edge from -> to and whether it exists
func (idx *Index) Weight(from, to string) (float64, bool) {
	fid, okFrom := idx.ids[from]
	tid, okTo := idx.ids[to]
	if !okFrom || !okTo {
		return 0, false
	}
	edge := idx.graph.WeightedEdge(fid, tid)
	if edge == nil {
		return 0, false
	}
	return edge.Weight(), true
}

func (idx *Index) collect(iter graph.Nodes) []string {
	var out []string
	for iter.Next() {
		out = append(out, idx.labels[iter.Node().ID()])
	}
	sort.Strings(out)
	return out
}
