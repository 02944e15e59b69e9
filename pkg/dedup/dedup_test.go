package dedup

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ritzau/vitals-analyzer/pkg/model"
)

func finding(id, agent, metric, desc string, confidence float64) model.Finding {
	return model.Finding{
		ID:          id,
		Agent:       agent,
		Type:        model.FindingWaste,
		Metric:      metric,
		Description: desc,
		Evidence:    &model.Evidence{Source: "lighthouse", Confidence: confidence},
	}
}

func TestDeduplicate_MergesSameIssue(t *testing.T) {
	a := finding("css-1", "coverage-agent", "TBT", "Unused CSS in bundle.css", 0.6)
	a.EstimatedImpact = &model.Impact{Metric: "TBT", Reduction: 40}
	b := finding("css-2", "bundle-agent", "TBT", "Unused CSS in bundle.css", 0.8)
	b.EstimatedImpact = &model.Impact{Metric: "TBT", Reduction: 25}

	res := Deduplicate([]model.Finding{a, b})

	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(res.Findings))
	}
	if res.MergedCount != 1 {
		t.Errorf("MergedCount = %d, want 1", res.MergedCount)
	}

	merged := res.Findings[0]
	if merged.ID != "css-2" {
		t.Errorf("kept %s, want the higher-confidence css-2", merged.ID)
	}
	if got := merged.Confidence(); math.Abs(got-0.77) > 1e-9 {
		t.Errorf("confidence = %g, want 0.77", got)
	}
	if merged.Reduction() != 40 {
		t.Errorf("reduction = %g, want max 40", merged.Reduction())
	}
	if merged.Validation == nil || !merged.Validation.CrossValidated || merged.Validation.SourceCount != 2 {
		t.Fatalf("validation = %+v, want cross-validated with 2 sources", merged.Validation)
	}
	if diff := cmp.Diff([]string{"coverage-agent", "bundle-agent"}, merged.Validation.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}

	if len(res.MergeGroups) != 1 {
		t.Fatalf("expected 1 merge group, got %d", len(res.MergeGroups))
	}
	want := MergeGroup{
		Key:        "TBT:unused-code:bundle.css",
		KeptID:     "css-2",
		MergedIDs:  []string{"css-1", "css-2"},
		Confidence: merged.Confidence(),
		Sources:    []string{"coverage-agent", "bundle-agent"},
	}
	if diff := cmp.Diff(want, res.MergeGroups[0]); diff != "" {
		t.Errorf("merge group mismatch (-want +got):\n%s", diff)
	}
}

func TestDeduplicate_ConfidenceCapped(t *testing.T) {
	res := Deduplicate([]model.Finding{
		finding("a", "x", "LCP", "Render-blocking theme.css", 0.95),
		finding("b", "y", "LCP", "render blocking theme.css in head", 0.9),
	})
	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(res.Findings))
	}
	if got := res.Findings[0].Confidence(); got != 0.95 {
		t.Errorf("confidence = %g, want cap 0.95", got)
	}
}

func TestDeduplicate_TieKeepsEarliest(t *testing.T) {
	res := Deduplicate([]model.Finding{
		finding("first", "x", "TBT", "Unused JS in app.js", 0.7),
		finding("second", "y", "TBT", "unused code in app.js", 0.7),
	})
	if len(res.Findings) != 1 || res.Findings[0].ID != "first" {
		t.Errorf("expected earliest finding to be kept, got %+v", res.Findings)
	}
}

func TestDeduplicate_MissingEvidence(t *testing.T) {
	a := model.Finding{ID: "a", Metric: "TTFB", Description: "Slow server response"}
	b := model.Finding{ID: "b", Metric: "TTFB", Description: "Backend is slow"}

	in := []model.Finding{a, b}
	res := Deduplicate(in)
	if len(res.Findings) != 1 {
		t.Fatalf("findings without files share the no-file key, expected 1 finding, got %d", len(res.Findings))
	}
	merged := res.Findings[0]
	if math.Abs(merged.Confidence()-0.77) > 1e-9 {
		t.Errorf("confidence = %g, want 0.7*1.1", merged.Confidence())
	}
	if merged.EstimatedImpact == nil {
		t.Error("merged finding has no estimated impact")
	}
	if diff := cmp.Diff([]string{"unknown"}, merged.Validation.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	if in[0].Evidence != nil || in[0].Validation != nil {
		t.Error("inputs were modified")
	}
}

func TestDeduplicate_PassThrough(t *testing.T) {
	in := []model.Finding{
		finding("img", "a", "LCP", "Hero image oversized: hero.jpg", 0.9),
		finding("font", "a", "LCP", "Font preload missing for inter.woff2", 0.8),
		finding("cls", "b", "CLS", "Banner without dimensions", 0.6),
	}

	res := Deduplicate(in)
	if res.MergedCount != 0 || len(res.MergeGroups) != 0 {
		t.Errorf("expected no merges, got %d (%v)", res.MergedCount, res.MergeGroups)
	}
	if diff := cmp.Diff(in, res.Findings); diff != "" {
		t.Errorf("unique findings changed (-want +got):\n%s", diff)
	}
}

func TestDeduplicate_Idempotent(t *testing.T) {
	in := []model.Finding{
		finding("a", "x", "TBT", "Unused CSS in bundle.css", 0.6),
		finding("b", "y", "TBT", "Unused CSS in bundle.css", 0.8),
		finding("c", "z", "LCP", "Render-blocking app.js", 0.7),
		finding("d", "x", "LCP", "render-blocking script app.js", 0.9),
		finding("e", "y", "CLS", "Images without dimensions", 0.5),
	}

	once := Deduplicate(in)
	twice := Deduplicate(once.Findings)

	if twice.MergedCount != 0 {
		t.Errorf("second pass merged %d findings", twice.MergedCount)
	}
	if diff := cmp.Diff(once.Findings, twice.Findings); diff != "" {
		t.Errorf("deduplication is not idempotent (-first +second):\n%s", diff)
	}
}

func TestDeduplicate_Deterministic(t *testing.T) {
	in := []model.Finding{
		finding("a", "x", "TBT", "Unused CSS in bundle.css", 0.6),
		finding("b", "y", "LCP", "Render-blocking app.js", 0.7),
		finding("c", "z", "TBT", "Unused CSS in bundle.css", 0.8),
	}

	first := Deduplicate(in)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, Deduplicate(in)); diff != "" {
			t.Fatalf("run %d differs (-first +got):\n%s", i, diff)
		}
	}

	var ids []string
	for _, f := range first.Findings {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"c", "b"}, ids); diff != "" {
		t.Errorf("output order mismatch (-want +got):\n%s", diff)
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		finding  model.Finding
		expected string
	}{
		{finding: finding("a", "", "lcp", "Render-blocking theme.css", 0), expected: "LCP:blocking-resource:theme.css"},
		{finding: finding("b", "", "CLS", "Ad slot without dimensions", 0), expected: "CLS:layout-shift:no-file"},
	}
	for _, tt := range tests {
		if got := Key(tt.finding); got != tt.expected {
			t.Errorf("Key(%s) = %q, want %q", tt.finding.ID, got, tt.expected)
		}
	}
}
