package analysis

import (
	"fmt"
	"sort"

	"github.com/ritzau/vitals-analyzer/pkg/cycles"
	"github.com/ritzau/vitals-analyzer/pkg/logging"
	"github.com/ritzau/vitals-analyzer/pkg/model"
	"github.com/ritzau/vitals-analyzer/pkg/topology"
)

// DefaultMaxExpansions bounds the critical path search per metric
const DefaultMaxExpansions = 100000

// strengthEpsilon absorbs float noise when comparing path strengths
const strengthEpsilon = 1e-9

// Options configures the analyzer
type Options struct {
	// MaxExpansions caps how many nodes the critical path search may expand
	// per metric. When reached, the best path found so far is kept.
	MaxExpansions int
}

// DefaultOptions returns the analyzer defaults
func DefaultOptions() Options {
	return Options{MaxExpansions: DefaultMaxExpansions}
}

// Analyze annotates g in place: node depths, causedBy/causes lists, root
// causes, symptoms, causal cycles and one critical path per metric node.
// Critical path strength is the product of the edge strengths along the path.
func Analyze(g *model.Graph, opts Options) error {
	logger := logging.New("analysis")

	if err := g.Validate(); err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultMaxExpansions
	}

	idx := topology.NewIndex(g)

	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		node.CausedBy = nonNil(idx.Predecessors(id))
		node.Causes = nonNil(idx.Successors(id))
	}

	computeDepths(g, idx)
	classifyNodes(g)

	g.Cycles = cycles.FindCausalCycles(idx)
	for _, cycle := range g.Cycles {
		logger.Warn("causal cycle between findings", "nodes", cycle)
	}

	g.CriticalPaths = make([]model.CriticalPath, 0)
	for _, metric := range g.MetricNodes() {
		search := newPathSearch(g, idx, metric.ID, opts.MaxExpansions)
		cp := search.run()
		cp.Metric = metric.Metric.Metric
		if search.truncated {
			logger.Warn("critical path search truncated", "metric", cp.Metric, "expansions", search.expansions)
		}
		g.CriticalPaths = append(g.CriticalPaths, cp)
	}

	logger.Debug("graph analyzed",
		"nodes", len(g.Nodes),
		"edges", len(g.Edges),
		"rootCauses", len(g.RootCauses),
		"symptoms", len(g.Symptoms),
		"cycles", len(g.Cycles),
	)
	return nil
}

// computeDepths runs a multi-source BFS from every metric node along
// reversed edges: a finding's depth is 1 + the smallest depth among the
// nodes it points to.
func computeDepths(g *model.Graph, idx *topology.Index) {
	queue := make([]string, 0, len(g.Nodes))
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if node.IsMetric() {
			node.Depth = 0
			queue = append(queue, id)
		} else {
			node.Depth = model.DepthUnreachable
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		depth := g.Nodes[current].Depth

		for _, pred := range idx.Predecessors(current) {
			node := g.Nodes[pred]
			if node.Depth != model.DepthUnreachable || node.IsMetric() {
				continue
			}
			node.Depth = depth + 1
			queue = append(queue, pred)
		}
	}
}

// classifyNodes fills RootCauses and Symptoms. A node with no edges at all is neither.
func classifyNodes(g *model.Graph) {
	g.RootCauses = make([]string, 0)
	g.Symptoms = make([]string, 0)

	for _, node := range g.FindingNodes() {
		explained := false
		for _, pred := range node.CausedBy {
			if g.Nodes[pred].IsFinding() {
				explained = true
				break
			}
		}

		switch {
		case explained:
			g.Symptoms = append(g.Symptoms, node.ID)
		case len(node.Causes) > 0:
			g.RootCauses = append(g.RootCauses, node.ID)
		}
	}
}

// pathSearch looks for the strongest simple path from any root cause to one metric node
type pathSearch struct {
	g          *model.Graph
	idx        *topology.Index
	target     string
	budget     int
	expansions int
	truncated  bool

	found        bool
	best         []string
	bestStrength float64
}

func newPathSearch(g *model.Graph, idx *topology.Index, target string, budget int) *pathSearch {
	return &pathSearch{g: g, idx: idx, target: target, budget: budget}
}

func (s *pathSearch) run() model.CriticalPath {
	for _, root := range s.g.RootCauses {
		visited := map[string]bool{root: true}
		s.visit(root, []string{root}, visited, 1.0)
	}

	if !s.found {
		return model.CriticalPath{Path: make([]string, 0)}
	}
	return model.CriticalPath{Path: s.best, Strength: s.bestStrength}
}

func (s *pathSearch) visit(node string, path []string, visited map[string]bool, strength float64) {
	if node == s.target {
		s.consider(path, strength)
		return
	}
	if s.expansions >= s.budget {
		s.truncated = true
		return
	}
	s.expansions++

	for _, next := range s.orderedSuccessors(node) {
		if visited[next.id] {
			continue
		}
		nextNode := s.g.Nodes[next.id]
		if nextNode.IsMetric() && next.id != s.target {
			continue
		}
		if nextNode.IsFinding() && nextNode.Depth == model.DepthUnreachable {
			continue
		}

		nextStrength := strength * next.weight
		// Strengths are <= 1, so extending a path never makes it stronger
		if s.found && nextStrength < s.bestStrength-strengthEpsilon {
			continue
		}

		visited[next.id] = true
		s.visit(next.id, append(path, next.id), visited, nextStrength)
		visited[next.id] = false
	}
}

func (s *pathSearch) consider(path []string, strength float64) {
	if s.found && !better(path, strength, s.best, s.bestStrength) {
		return
	}
	s.found = true
	s.best = append([]string(nil), path...)
	s.bestStrength = strength
}

// better orders candidate paths: stronger first, then longer, then
// lexicographically smaller node-ID sequence
func better(path []string, strength float64, best []string, bestStrength float64) bool {
	if strength > bestStrength+strengthEpsilon {
		return true
	}
	if strength < bestStrength-strengthEpsilon {
		return false
	}
	if len(path) != len(best) {
		return len(path) > len(best)
	}
	for i := range path {
		if path[i] != best[i] {
			return path[i] < best[i]
		}
	}
	return false
}

type weightedSuccessor struct {
	id     string
	weight float64
}

// orderedSuccessors returns successors strongest first so pruning kicks in early
func (s *pathSearch) orderedSuccessors(node string) []weightedSuccessor {
	ids := s.idx.Successors(node)
	out := make([]weightedSuccessor, 0, len(ids))
	for _, id := range ids {
		w, _ := s.idx.Weight(node, id)
		out = append(out, weightedSuccessor{id: id, weight: w})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].weight != out[j].weight {
			return out[i].weight > out[j].weight
		}
		return out[i].id < out[j].id
	})
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return make([]string, 0)
	}
	return ids
}
