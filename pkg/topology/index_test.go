package topology

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

func buildGraph(t *testing.T, nodes []string, edges []model.Edge) *model.Graph {
	t.Helper()
	g := model.NewGraph()
	for _, id := range nodes {
		g.AddNode(&model.GraphNode{ID: id, Kind: model.NodeKindFinding})
	}
	for i := range edges {
		if err := g.AddEdge(&edges[i]); err != nil {
			t.Fatalf("AddEdge(%s -> %s): %v", edges[i].From, edges[i].To, err)
		}
	}
	return g
}

func TestNewIndex(t *testing.T) {
	g := buildGraph(t, []string{"c", "a", "b", "d"}, []model.Edge{
		{From: "a", To: "c", Strength: 0.6},
		{From: "a", To: "b", Strength: 0.8},
		{From: "b", To: "c", Strength: 0.7},
	})

	idx := NewIndex(g)

	if idx.Len() != 4 {
		t.Errorf("Len() = %d, want 4", idx.Len())
	}
	if idx.Label(0) != "a" || idx.Label(3) != "d" {
		t.Errorf("labels not assigned in sorted order: %q, %q", idx.Label(0), idx.Label(3))
	}
	if idx.Label(99) != "" {
		t.Errorf("Label(99) = %q, want empty", idx.Label(99))
	}

	if diff := cmp.Diff([]string{"b", "c"}, idx.Successors("a")); diff != "" {
		t.Errorf("Successors(a) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a", "b"}, idx.Predecessors("c")); diff != "" {
		t.Errorf("Predecessors(c) mismatch (-want +got):\n%s", diff)
	}
	if got := idx.Successors("d"); len(got) != 0 {
		t.Errorf("Successors(d) = %v, want none", got)
	}
	if got := idx.Successors("missing"); got != nil {
		t.Errorf("Successors(missing) = %v, want nil", got)
	}

	if w, ok := idx.Weight("a", "b"); !ok || w != 0.8 {
		t.Errorf("Weight(a, b) = %g, %v; want 0.8, true", w, ok)
	}
	if _, ok := idx.Weight("c", "a"); ok {
		t.Error("Weight(c, a) reported an edge that does not exist")
	}
}

func TestNewIndex_KeepsStrongestParallelEdge(t *testing.T) {
	g := buildGraph(t, []string{"a", "b"}, []model.Edge{
		{From: "a", To: "b", Strength: 0.6},
		{From: "a", To: "b", Strength: 0.9},
		{From: "a", To: "b", Strength: 0.7},
	})

	idx := NewIndex(g)
	if w, _ := idx.Weight("a", "b"); w != 0.9 {
		t.Errorf("Weight(a, b) = %g, want 0.9", w)
	}
}
