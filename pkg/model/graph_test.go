package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestGraph() *Graph {
	g := NewGraph()
	lcp, _ := NewMetricNode("LCP", 4200)
	g.AddNode(&GraphNode{ID: MetricNodeID("LCP"), Kind: NodeKindMetric, Metric: lcp})
	g.AddNode(&GraphNode{ID: "f1", Kind: NodeKindFinding, Finding: &Finding{ID: "f1", Metric: "LCP"}})
	g.AddNode(&GraphNode{ID: "f2", Kind: NodeKindFinding, Finding: &Finding{ID: "f2", Metric: "LCP"}})
	return g
}

func TestAddEdge(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{name: "finding to metric", edge: Edge{From: "f1", To: "metric-LCP", Relationship: RelBlocks, Strength: 0.7}},
		{name: "finding to finding", edge: Edge{From: "f1", To: "f2", Relationship: RelContributes, Strength: 0.6}},
		{name: "self loop", edge: Edge{From: "f1", To: "f1"}, wantErr: ErrSelfLoop},
		{name: "unknown source", edge: Edge{From: "nope", To: "f1"}, wantErr: ErrUnknownNode},
		{name: "unknown target", edge: Edge{From: "f1", To: "metric-CLS"}, wantErr: ErrUnknownNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph()
			edge := tt.edge
			err := g.AddEdge(&edge)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("AddEdge() error = %v, want %v", err, tt.wantErr)
				}
				if len(g.Edges) != 0 {
					t.Errorf("rejected edge was stored: %v", g.Edges)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddEdge() unexpected error: %v", err)
			}
			if g.FindEdge(tt.edge.From, tt.edge.To) == nil {
				t.Errorf("edge %s -> %s not found", tt.edge.From, tt.edge.To)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	g := newTestGraph()
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate() on valid graph: %v", err)
	}

	g.Edges = append(g.Edges, &Edge{From: "f1", To: "ghost"})
	if err := g.Validate(); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Validate() error = %v, want ErrUnknownNode", err)
	}

	g = newTestGraph()
	g.Nodes["metric-LCP"].Depth = 2
	if err := g.Validate(); err == nil {
		t.Error("Validate() accepted a metric node with non-zero depth")
	}
}

func TestMetricNodesOrder(t *testing.T) {
	g := NewGraph()
	for _, m := range []string{"FCP", "cls", "LCP", "TTFB"} {
		node, ok := NewMetricNode(m, 1)
		if !ok {
			t.Fatalf("NewMetricNode(%q) not ok", m)
		}
		g.AddNode(&GraphNode{ID: MetricNodeID(m), Kind: NodeKindMetric, Metric: node})
	}

	var got []string
	for _, n := range g.MetricNodes() {
		got = append(got, n.Metric.Metric)
	}
	want := []string{"LCP", "CLS", "TTFB", "FCP"}
	if len(got) != len(want) {
		t.Fatalf("MetricNodes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("MetricNodes()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNewMetricNode(t *testing.T) {
	tests := []struct {
		metric   string
		value    float64
		wantOK   bool
		wantOver bool
	}{
		{metric: "LCP", value: 4200, wantOK: true, wantOver: true},
		{metric: "lcp", value: 2500, wantOK: true, wantOver: false},
		{metric: "CLS", value: 0.18, wantOK: true, wantOver: true},
		{metric: "SI", value: 3000, wantOK: false},
	}

	for _, tt := range tests {
		node, ok := NewMetricNode(tt.metric, tt.value)
		if ok != tt.wantOK {
			t.Errorf("NewMetricNode(%q) ok = %v, want %v", tt.metric, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if node.OverThreshold != tt.wantOver {
			t.Errorf("NewMetricNode(%q, %g).OverThreshold = %v, want %v", tt.metric, tt.value, node.OverThreshold, tt.wantOver)
		}
		if node.Metric != NormalizeMetric(tt.metric) {
			t.Errorf("metric name = %q, want normalized %q", node.Metric, NormalizeMetric(tt.metric))
		}
	}
}

func TestStats(t *testing.T) {
	g := newTestGraph()
	g.Nodes["f2"].Depth = DepthUnreachable
	g.Nodes["f1"].Depth = 1
	if err := g.AddEdge(&Edge{From: "f1", To: "metric-LCP", Relationship: RelBlocks, Strength: 0.7}); err != nil {
		t.Fatal(err)
	}
	g.RootCauses = []string{"f1"}
	g.CriticalPaths = []CriticalPath{{Metric: "LCP", Path: []string{"f1", "metric-LCP"}, Strength: 0.7}}

	stats := g.Stats()
	if stats.Findings != 2 || stats.Metrics != 1 || stats.Edges != 1 {
		t.Errorf("counts = %d findings, %d metrics, %d edges; want 2, 1, 1", stats.Findings, stats.Metrics, stats.Edges)
	}
	if stats.Disconnected != 1 {
		t.Errorf("Disconnected = %d, want 1", stats.Disconnected)
	}
	if stats.ByRelationship[RelBlocks] != 1 {
		t.Errorf("ByRelationship[blocks] = %d, want 1", stats.ByRelationship[RelBlocks])
	}
	if stats.ExplainedPaths != 1 || stats.UnexplainedPaths != 0 {
		t.Errorf("paths explained/unexplained = %d/%d, want 1/0", stats.ExplainedPaths, stats.UnexplainedPaths)
	}
}

func TestFindingDefaults(t *testing.T) {
	f := Finding{ID: "x", Metric: " lcp ", Description: "desc"}
	if f.Confidence() != DefaultConfidence {
		t.Errorf("Confidence() = %g, want %g", f.Confidence(), DefaultConfidence)
	}
	if f.MetricName() != "LCP" {
		t.Errorf("MetricName() = %q, want LCP", f.MetricName())
	}
	if f.Mechanism() != "desc" {
		t.Errorf("Mechanism() = %q, want description fallback", f.Mechanism())
	}

	f.Evidence = &Evidence{Confidence: 0.9, Reference: "a.js"}
	f.Validation = &Validation{Sources: []string{"a"}}
	c := f.Clone()
	c.Evidence.Confidence = 0.1
	c.Validation.Sources[0] = "b"
	if f.Evidence.Confidence != 0.9 || f.Validation.Sources[0] != "a" {
		t.Error("Clone() shares memory with the original")
	}
}

func TestNormalizeMetrics(t *testing.T) {
	got, shadowed := NormalizeMetrics(map[string]float64{"lcp": 1000, "LCP": 4200, "cls ": 0.2})

	want := map[string]float64{"LCP": 4200, "CLS": 0.2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"lcp"}, shadowed); diff != "" {
		t.Errorf("shadowed keys mismatch (-want +got):\n%s", diff)
	}

	if got, shadowed := NormalizeMetrics(nil); len(got) != 0 || shadowed != nil {
		t.Errorf("NormalizeMetrics(nil) = %v, %v", got, shadowed)
	}
}
