package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

func heroFinding() model.Finding {
	return model.Finding{
		ID:          "F1",
		Type:        model.FindingBottleneck,
		Metric:      "LCP",
		Description: "LCP hero image is discovered late",
		Evidence:    &model.Evidence{Source: "lighthouse", Reference: "hero.jpg"},
	}
}

func TestBuild_SingleBottleneck(t *testing.T) {
	g, err := Build([]model.Finding{heroFinding()}, map[string]float64{"LCP": 4200})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	edge := g.FindEdge("F1", "metric-LCP")
	if edge == nil {
		t.Fatal("expected edge F1 -> metric-LCP")
	}
	if edge.Relationship != model.RelBlocks || edge.Strength != model.DefaultConfidence {
		t.Errorf("edge = %s %g, want blocks %g", edge.Relationship, edge.Strength, model.DefaultConfidence)
	}

	if diff := cmp.Diff([]string{"F1"}, g.RootCauses); diff != "" {
		t.Errorf("root causes mismatch (-want +got):\n%s", diff)
	}
	want := []model.CriticalPath{{Metric: "LCP", Path: []string{"F1", "metric-LCP"}, Strength: 0.7}}
	if diff := cmp.Diff(want, g.CriticalPaths); diff != "" {
		t.Errorf("critical paths mismatch (-want +got):\n%s", diff)
	}
	if got := g.Nodes["F1"].IssueType; got != "lcp-image" {
		t.Errorf("issue type = %q, want lcp-image", got)
	}
	if got := g.Nodes["metric-LCP"].Metric; got == nil || !got.OverThreshold {
		t.Errorf("metric node = %+v, want LCP over threshold", got)
	}
}

func TestBuild_DisconnectedFinding(t *testing.T) {
	orphan := model.Finding{ID: "F2", Type: model.FindingBottleneck, Metric: "CLS", Description: "Banner without dimensions"}

	g, err := Build([]model.Finding{heroFinding(), orphan}, map[string]float64{"LCP": 4200})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	node, ok := g.Nodes["F2"]
	if !ok {
		t.Fatal("disconnected finding has no node")
	}
	if node.Depth != model.DepthUnreachable {
		t.Errorf("depth = %d, want unreachable", node.Depth)
	}
	if g.IsRootCause("F2") || g.IsSymptom("F2") {
		t.Error("disconnected finding was classified")
	}
	for _, cp := range g.CriticalPaths {
		for _, id := range cp.Path {
			if id == "F2" {
				t.Errorf("disconnected finding on %s critical path", cp.Metric)
			}
		}
	}
	if len(g.CriticalPaths) != 1 {
		t.Errorf("expected only the LCP critical path, got %+v", g.CriticalPaths)
	}
}

func TestBuild_MetricEdges(t *testing.T) {
	findings := []model.Finding{
		{ID: "waste", Type: model.FindingWaste, Metric: "tbt", Description: "Unused polyfills", Evidence: &model.Evidence{Confidence: 1.5}},
		{ID: "opp", Type: model.FindingOpportunity, Metric: "INP", Description: "Yield inside the click event handler", Reasoning: &model.Reasoning{Mechanism: "Splitting the handler shortens input delay"}},
		{ID: "unknown", Type: model.FindingBottleneck, Metric: "SI", Description: "Speed index is slow"},
	}
	g, err := Build(findings, map[string]float64{"TBT": 450, "INP": 180, "SI": 5000})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if _, ok := g.Nodes["metric-SI"]; ok {
		t.Error("metric without threshold got a node")
	}

	waste := g.FindEdge("waste", "metric-TBT")
	if waste == nil || waste.Relationship != model.RelDelays || waste.Strength != 1 {
		t.Errorf("waste edge = %+v, want delays with strength clamped to 1", waste)
	}
	opp := g.FindEdge("opp", "metric-INP")
	if opp == nil || opp.Relationship != model.RelContributes {
		t.Fatalf("opportunity edge = %+v, want contributes", opp)
	}
	if opp.Mechanism != "Splitting the handler shortens input delay" {
		t.Errorf("mechanism = %q, want reasoning mechanism", opp.Mechanism)
	}
	if edges := g.EdgesFrom("unknown"); len(edges) != 0 {
		t.Errorf("finding on untracked metric has edges: %+v", edges)
	}
}

func TestBuild_DuplicateIDLastWins(t *testing.T) {
	first := model.Finding{ID: "dup", Type: model.FindingBottleneck, Metric: "LCP", Description: "first"}
	second := model.Finding{ID: "dup", Type: model.FindingBottleneck, Metric: "CLS", Description: "second"}

	g, err := Build([]model.Finding{first, second}, map[string]float64{"LCP": 3000, "CLS": 0.3})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	if got := g.Nodes["dup"].Description; got != "second" {
		t.Errorf("description = %q, want the later finding", got)
	}
	if g.FindEdge("dup", "metric-LCP") != nil {
		t.Error("edge from the replaced finding survived")
	}
	if g.FindEdge("dup", "metric-CLS") == nil {
		t.Error("missing edge for the replacing finding")
	}
}

func TestBuild_SkipsFindingsWithoutID(t *testing.T) {
	g, err := Build([]model.Finding{{Metric: "LCP", Description: "no id"}}, map[string]float64{"LCP": 3000})
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	if len(g.FindingNodes()) != 0 {
		t.Errorf("expected no finding nodes, got %d", len(g.FindingNodes()))
	}
}

func TestBuild_FindingIDShadowsMetric(t *testing.T) {
	tests := []struct {
		name    string
		finding model.Finding
		metrics map[string]float64
	}{
		{
			name:    "same metric",
			finding: model.Finding{ID: "metric-LCP", Type: model.FindingBottleneck, Metric: "LCP", Description: "hero image"},
			metrics: map[string]float64{"LCP": 4200},
		},
		{
			name:    "other metric",
			finding: model.Finding{ID: "metric-CLS", Type: model.FindingBottleneck, Metric: "LCP", Description: "hero image"},
			metrics: map[string]float64{"LCP": 4200, "CLS": 0.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Build([]model.Finding{tt.finding}, tt.metrics)
			if err != nil {
				t.Fatalf("Build() unexpected error: %v", err)
			}
			if n := len(g.FindingNodes()); n != 0 {
				t.Errorf("finding nodes = %d, want 0", n)
			}
			if got := len(g.MetricNodes()); got != len(tt.metrics) {
				t.Errorf("metric nodes = %d, want %d", got, len(tt.metrics))
			}
			if len(g.CriticalPaths) != len(tt.metrics) {
				t.Fatalf("critical paths = %+v, want one per metric", g.CriticalPaths)
			}
			for _, cp := range g.CriticalPaths {
				if len(cp.Path) != 0 {
					t.Errorf("critical path for %s = %v, want insufficient evidence", cp.Metric, cp.Path)
				}
			}
		})
	}
}

func TestBuild_MetricKeyCollision(t *testing.T) {
	metrics := map[string]float64{"lcp": 1000, "LCP": 4200, " Lcp ": 9000}
	for i := 0; i < 50; i++ {
		g, err := Build(nil, metrics)
		if err != nil {
			t.Fatalf("Build() unexpected error: %v", err)
		}
		if n := len(g.MetricNodes()); n != 1 {
			t.Fatalf("metric nodes = %d, want 1", n)
		}
		if got := g.Nodes["metric-LCP"].Metric.Value; got != 9000 {
			t.Fatalf("run %d: LCP value = %g, want 9000 from the first sorted key", i, got)
		}
	}
}

func sampleFindings() []model.Finding {
	ref := func(r string) *model.Evidence { return &model.Evidence{Reference: r, Confidence: 0.8} }
	return []model.Finding{
		{ID: "unused-js", Type: model.FindingWaste, Metric: "TBT", Description: "Unused JS in app.js", Evidence: ref("https://shop.test/app.js")},
		{ID: "blocking-js", Type: model.FindingBottleneck, Metric: "LCP", Description: "Render-blocking app.js delays LCP", Evidence: ref("https://shop.test/app.js")},
		{ID: "slow-fcp", Type: model.FindingBottleneck, Metric: "FCP", Description: "First paint waits on the document"},
		{ID: "ttfb", Type: model.FindingBottleneck, Metric: "TTFB", Description: "Slow server response"},
		{ID: "hint", Type: model.FindingOpportunity, Metric: "LCP", Description: "Missing preconnect on the critical path"},
		{ID: "cls", Type: model.FindingBottleneck, Metric: "CLS", Description: "Ad slot without dimensions"},
	}
}

func sampleMetrics() map[string]float64 {
	return map[string]float64{"LCP": 4200, "TBT": 650, "FCP": 2600, "TTFB": 1200, "CLS": 0.05}
}

func TestBuild_Deterministic(t *testing.T) {
	first, err := Build(sampleFindings(), sampleMetrics())
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Build(sampleFindings(), sampleMetrics())
		if err != nil {
			t.Fatalf("Build() unexpected error: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}

func TestBuild_SampleRelationships(t *testing.T) {
	g, err := Build(sampleFindings(), sampleMetrics())
	if err != nil {
		t.Fatalf("Build() unexpected error: %v", err)
	}

	for _, e := range g.Edges {
		if e.From == e.To {
			t.Errorf("self-loop on %s", e.From)
		}
	}

	tests := []struct {
		from, to string
		rel      model.Relationship
	}{
		{"unused-js", "blocking-js", model.RelContributes},
		{"slow-fcp", "blocking-js", model.RelDepends},
		{"ttfb", "slow-fcp", model.RelDepends},
		{"ttfb", "blocking-js", model.RelDepends},
		{"blocking-js", "hint", model.RelCompounds},
	}
	for _, tt := range tests {
		e := g.FindEdge(tt.from, tt.to)
		if e == nil {
			t.Errorf("missing edge %s -> %s", tt.from, tt.to)
			continue
		}
		if e.Relationship != tt.rel {
			t.Errorf("edge %s -> %s = %s, want %s", tt.from, tt.to, e.Relationship, tt.rel)
		}
	}

	if diff := cmp.Diff([]string{"cls", "ttfb", "unused-js"}, g.RootCauses); diff != "" {
		t.Errorf("root causes mismatch (-want +got):\n%s", diff)
	}

	// TTFB -> FCP -> LCP finding -> LCP beats the direct unused-js chain
	lcp, _ := g.CriticalPathFor("LCP")
	if len(lcp.Path) == 0 || lcp.Path[len(lcp.Path)-1] != "metric-LCP" {
		t.Errorf("LCP critical path = %v", lcp.Path)
	}
	if g.Nodes["cls"].Depth != 1 {
		t.Errorf("depth(cls) = %d, want 1", g.Nodes["cls"].Depth)
	}
}
