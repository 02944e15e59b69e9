package graph

import (
	"fmt"
	"math"
	"sort"

	"github.com/ritzau/vitals-analyzer/pkg/analysis"
	"github.com/ritzau/vitals-analyzer/pkg/classify"
	"github.com/ritzau/vitals-analyzer/pkg/logging"
	"github.com/ritzau/vitals-analyzer/pkg/model"
	"github.com/ritzau/vitals-analyzer/pkg/relations"
)

// Option configures a Build call
type Option func(*buildOptions)

type buildOptions struct {
	analysis analysis.Options
}

// WithMaxPathExpansions bounds the critical path search per metric
func WithMaxPathExpansions(n int) Option {
	return func(o *buildOptions) {
		o.analysis.MaxExpansions = n
	}
}

// Build creates the correlation graph for one analysis run and analyzes it.
//
// Finding IDs are expected to be unique; when two findings share an ID the
// later one replaces the earlier one, and a finding whose ID names a metric
// node is skipped. Findings whose metric has no metric
// node simply get no metric edge. Between any two findings at most one edge
// is attached: the first one proposed by relations.Detectors.
func Build(findings []model.Finding, metricValues map[string]float64, opts ...Option) (*model.Graph, error) {
	o := buildOptions{analysis: analysis.DefaultOptions()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.New("graph")
	g := model.NewGraph()

	// 1. Metric nodes
	metrics, shadowed := model.NormalizeMetrics(metricValues)
	for _, key := range shadowed {
		logger.Warn("metric given more than once, ignoring value", "key", key, "metric", model.NormalizeMetric(key))
	}
	for _, metric := range sortedKeys(metrics) {
		value := metrics[metric]
		node, ok := model.NewMetricNode(metric, value)
		if !ok {
			logger.Debug("no threshold for metric, skipping node", "metric", metric)
			continue
		}
		g.AddNode(&model.GraphNode{
			ID:          model.MetricNodeID(node.Metric),
			Kind:        model.NodeKindMetric,
			Description: fmt.Sprintf("%s = %g%s (threshold %g%s)", node.Metric, node.Value, node.Unit, node.Threshold, node.Unit),
			Metric:      node,
		})
	}

	// 2. Finding nodes
	unique := withoutMetricIDs(lastByID(findings), g)
	for i := range unique {
		f := &unique[i]
		g.AddNode(&model.GraphNode{
			ID:          f.ID,
			Kind:        model.NodeKindFinding,
			Description: f.Description,
			IssueType:   classify.Classify(*f),
			Finding:     f,
		})
	}

	// 3. Finding -> metric edges
	for _, f := range unique {
		metricID := model.MetricNodeID(f.Metric)
		if _, ok := g.Nodes[metricID]; !ok {
			continue
		}
		if err := g.AddEdge(metricEdge(f, metricID)); err != nil {
			return nil, fmt.Errorf("adding metric edge for %s: %w", f.ID, err)
		}
	}

	// 4. Finding <-> finding edges, first detector wins per pair
	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			edge, detector := relations.Detect(unique[i], unique[j])
			if edge == nil {
				continue
			}
			if err := g.AddEdge(edge); err != nil {
				return nil, fmt.Errorf("adding %s edge %s -> %s: %w", detector, edge.From, edge.To, err)
			}
			logging.Trace("relationship detected", "detector", detector, "from", edge.From, "to", edge.To)
		}
	}

	// 5. Depth, root causes, symptoms, critical paths
	if err := analysis.Analyze(g, o.analysis); err != nil {
		return nil, err
	}

	logger.Debug("graph built", "findings", len(unique), "metrics", len(g.Nodes)-len(unique), "edges", len(g.Edges))
	return g, nil
}

func metricEdge(f model.Finding, metricID string) *model.Edge {
	rel := model.RelContributes
	switch f.Type {
	case model.FindingBottleneck:
		rel = model.RelBlocks
	case model.FindingWaste:
		rel = model.RelDelays
	}
	return &model.Edge{
		From:         f.ID,
		To:           metricID,
		Relationship: rel,
		Strength:     clamp01(f.Confidence()),
		Mechanism:    f.Mechanism(),
	}
}

// lastByID keeps one finding per ID (the last one), in order of first
// appearance. Findings without an ID cannot be referenced and are dropped.
func lastByID(findings []model.Finding) []model.Finding {
	pos := make(map[string]int, len(findings))
	out := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		if f.ID == "" {
			logging.Warn("skipping finding without id", "description", f.Description)
			continue
		}
		if i, seen := pos[f.ID]; seen {
			out[i] = f.Clone()
			continue
		}
		pos[f.ID] = len(out)
		out = append(out, f.Clone())
	}
	return out
}

// withoutMetricIDs drops findings whose ID is taken by a metric node
func withoutMetricIDs(findings []model.Finding, g *model.Graph) []model.Finding {
	out := findings[:0]
	for _, f := range findings {
		if node, ok := g.Nodes[f.ID]; ok && node.IsMetric() {
			logging.Warn("skipping finding whose id names a metric node", "id", f.ID)
			continue
		}
		out = append(out, f)
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
