package model

import (
	"errors"
	"fmt"
	"sort"
)

// NodeKind distinguishes finding nodes from metric nodes
type NodeKind string

const (
	NodeKindFinding NodeKind = "finding"
	NodeKindMetric  NodeKind = "metric"
)

// Relationship is the causal meaning of an edge
type Relationship string

const (
	RelContributes Relationship = "contributes" // Adds to the target's cost
	RelDepends     Relationship = "depends"     // Target metric is downstream of the source metric
	RelCompounds   Relationship = "compounds"   // Both sit on the pre-LCP critical path
	RelDuplicates  Relationship = "duplicates"  // Same issue reported twice
	RelBlocks      Relationship = "blocks"      // Bottleneck on a metric
	RelDelays      Relationship = "delays"      // Waste that delays a metric
)

// DepthUnreachable marks a node with no path to any metric node
const DepthUnreachable = -1

var (
	// ErrUnknownNode is returned when an edge references a node that is not in the graph
	ErrUnknownNode = errors.New("edge references unknown node")
	// ErrSelfLoop is returned when an edge starts and ends on the same node
	ErrSelfLoop = errors.New("self-loop edge")
)

// GraphNode is a vertex of the correlation graph: either a finding or a metric
type GraphNode struct {
	ID          string      `json:"id"`
	Kind        NodeKind    `json:"kind"`
	Description string      `json:"description"`
	IssueType   string      `json:"issueType,omitempty"` // Classified type, findings only
	Depth       int         `json:"depth"`               // DepthUnreachable when no metric is reachable
	CausedBy    []string    `json:"causedBy"`
	Causes      []string    `json:"causes"`
	Finding     *Finding    `json:"finding,omitempty"`
	Metric      *MetricNode `json:"metric,omitempty"`
}

// IsFinding reports whether the node wraps a finding
func (n *GraphNode) IsFinding() bool {
	return n.Kind == NodeKindFinding
}

// IsMetric reports whether the node wraps a metric
func (n *GraphNode) IsMetric() bool {
	return n.Kind == NodeKindMetric
}

// Edge represents a directed causal connection between two nodes
type Edge struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Relationship Relationship `json:"relationship"`
	Strength     float64      `json:"strength"`
	Mechanism    string       `json:"mechanism"`
}

// CriticalPath is the strongest causal chain from a root cause to one metric.
// An empty Path means there was not enough evidence to explain the metric.
type CriticalPath struct {
	Metric   string   `json:"metric"`
	Path     []string `json:"path"`
	Strength float64  `json:"strength"`
}

// Graph is the findings correlation graph for a single analysis run
type Graph struct {
	Nodes         map[string]*GraphNode `json:"nodes"`
	Edges         []*Edge               `json:"edges"`
	RootCauses    []string              `json:"rootCauses"`
	Symptoms      []string              `json:"symptoms"`
	CriticalPaths []CriticalPath        `json:"criticalPaths"`
	Cycles        [][]string            `json:"cycles,omitempty"`
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:         make(map[string]*GraphNode),
		Edges:         make([]*Edge, 0),
		RootCauses:    make([]string, 0),
		Symptoms:      make([]string, 0),
		CriticalPaths: make([]CriticalPath, 0),
	}
}

// AddNode adds a node to the graph. If a node with the same ID exists, it is replaced.
func (g *Graph) AddNode(node *GraphNode) {
	if node.CausedBy == nil {
		node.CausedBy = make([]string, 0)
	}
	if node.Causes == nil {
		node.Causes = make([]string, 0)
	}
	g.Nodes[node.ID] = node
}

// AddEdge adds an edge to the graph. Both endpoints must already exist.
func (g *Graph) AddEdge(edge *Edge) error {
	if err := g.checkEdge(edge); err != nil {
		return err
	}
	g.Edges = append(g.Edges, edge)
	return nil
}

func (g *Graph) checkEdge(edge *Edge) error {
	if edge.From == edge.To {
		return fmt.Errorf("%w: %s", ErrSelfLoop, edge.From)
	}
	if _, ok := g.Nodes[edge.From]; !ok {
		return fmt.Errorf("%w: %s (from)", ErrUnknownNode, edge.From)
	}
	if _, ok := g.Nodes[edge.To]; !ok {
		return fmt.Errorf("%w: %s (to)", ErrUnknownNode, edge.To)
	}
	return nil
}

// Validate checks the structural invariants of the whole graph
func (g *Graph) Validate() error {
	for id, node := range g.Nodes {
		if node.ID != id {
			return fmt.Errorf("node stored under %q has ID %q", id, node.ID)
		}
		if node.IsMetric() && node.Depth != 0 {
			return fmt.Errorf("metric node %s has depth %d", id, node.Depth)
		}
	}
	for _, edge := range g.Edges {
		if err := g.checkEdge(edge); err != nil {
			return err
		}
	}
	return nil
}

// NodeIDs returns all node IDs in sorted order
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FindingNodes returns finding nodes sorted by ID
func (g *Graph) FindingNodes() []*GraphNode {
	return g.nodesOfKind(NodeKindFinding)
}

// MetricNodes returns metric nodes in report order (LCP, CLS, INP, TBT, TTFB, FCP)
func (g *Graph) MetricNodes() []*GraphNode {
	nodes := g.nodesOfKind(NodeKindMetric)
	sort.SliceStable(nodes, func(i, j int) bool {
		return MetricRank(nodes[i].Metric.Metric) < MetricRank(nodes[j].Metric.Metric)
	})
	return nodes
}

func (g *Graph) nodesOfKind(kind NodeKind) []*GraphNode {
	var nodes []*GraphNode
	for _, id := range g.NodeIDs() {
		if n := g.Nodes[id]; n.Kind == kind {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// EdgesFrom returns edges leaving the given node, in insertion order
func (g *Graph) EdgesFrom(id string) []*Edge {
	var edges []*Edge
	for _, e := range g.Edges {
		if e.From == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// FindEdge returns the edge from one node to another, or nil
func (g *Graph) FindEdge(from, to string) *Edge {
	for _, e := range g.Edges {
		if e.From == from && e.To == to {
			return e
		}
	}
	return nil
}

// IsRootCause reports whether the node was classified as a root cause
func (g *Graph) IsRootCause(id string) bool {
	return contains(g.RootCauses, id)
}

// IsSymptom reports whether the node was classified as a symptom
func (g *Graph) IsSymptom(id string) bool {
	return contains(g.Symptoms, id)
}

// CriticalPathFor returns the critical path entry for a metric
func (g *Graph) CriticalPathFor(metric string) (CriticalPath, bool) {
	metric = NormalizeMetric(metric)
	for _, cp := range g.CriticalPaths {
		if cp.Metric == metric {
			return cp, true
		}
	}
	return CriticalPath{}, false
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// GraphStats summarizes a graph for reports
type GraphStats struct {
	Findings         int                  `json:"findings"`
	Metrics          int                  `json:"metrics"`
	Edges            int                  `json:"edges"`
	RootCauses       int                  `json:"rootCauses"`
	Symptoms         int                  `json:"symptoms"`
	Disconnected     int                  `json:"disconnected"` // Findings with no path to any metric
	Cycles           int                  `json:"cycles"`
	ByRelationship   map[Relationship]int `json:"byRelationship"`
	ExplainedPaths   int                  `json:"explainedPaths"`
	UnexplainedPaths int                  `json:"unexplainedPaths"`
}

// Stats computes summary statistics
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		Edges:          len(g.Edges),
		RootCauses:     len(g.RootCauses),
		Symptoms:       len(g.Symptoms),
		Cycles:         len(g.Cycles),
		ByRelationship: make(map[Relationship]int),
	}
	for _, n := range g.Nodes {
		switch n.Kind {
		case NodeKindFinding:
			stats.Findings++
			if n.Depth == DepthUnreachable {
				stats.Disconnected++
			}
		case NodeKindMetric:
			stats.Metrics++
		}
	}
	for _, e := range g.Edges {
		stats.ByRelationship[e.Relationship]++
	}
	for _, cp := range g.CriticalPaths {
		if len(cp.Path) > 0 {
			stats.ExplainedPaths++
		} else {
			stats.UnexplainedPaths++
		}
	}
	return stats
}
