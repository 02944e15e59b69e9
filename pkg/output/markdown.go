package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ritzau/vitals-analyzer/pkg/model"
	"github.com/ritzau/vitals-analyzer/pkg/pipeline"
)

// InsufficientEvidence is shown for metrics without a critical path
const InsufficientEvidence = "insufficient evidence"

// RenderMarkdown writes the run summary: statistics, metrics, root causes and critical paths
func RenderMarkdown(w io.Writer, res *pipeline.Result) error {
	g := res.Graph
	stats := g.Stats()

	var b strings.Builder

	b.WriteString("# Core Web Vitals correlation report\n\n")
	fmt.Fprintf(&b, "Run `%s`\n\n", res.RunID)

	b.WriteString("## Statistics\n\n")
	b.WriteString("| | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Findings reported | %d |\n", res.InputFindings)
	if res.Dedup != nil {
		fmt.Fprintf(&b, "| Merged as duplicates | %d |\n", res.Dedup.MergedCount)
	}
	fmt.Fprintf(&b, "| Unique findings | %d |\n", stats.Findings)
	fmt.Fprintf(&b, "| Metrics | %d |\n", stats.Metrics)
	fmt.Fprintf(&b, "| Relationships | %d |\n", stats.Edges)
	fmt.Fprintf(&b, "| Root causes | %d |\n", stats.RootCauses)
	fmt.Fprintf(&b, "| Symptoms | %d |\n", stats.Symptoms)
	fmt.Fprintf(&b, "| Not linked to any metric | %d |\n", stats.Disconnected)
	b.WriteString("\n")

	if len(stats.ByRelationship) > 0 {
		rels := make([]string, 0, len(stats.ByRelationship))
		for rel := range stats.ByRelationship {
			rels = append(rels, string(rel))
		}
		sort.Strings(rels)
		b.WriteString("Relationships by kind: ")
		for i, rel := range rels {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %d", rel, stats.ByRelationship[model.Relationship(rel)])
		}
		b.WriteString("\n\n")
	}

	if metrics := g.MetricNodes(); len(metrics) > 0 {
		b.WriteString("## Metrics\n\n")
		b.WriteString("| Metric | Value | Threshold | Status |\n|---|---|---|---|\n")
		for _, n := range metrics {
			m := n.Metric
			status := "good"
			if m.OverThreshold {
				status = "poor"
			}
			fmt.Fprintf(&b, "| %s | %g%s | %g%s | %s |\n", m.Metric, m.Value, m.Unit, m.Threshold, m.Unit, status)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Root causes\n\n")
	if len(g.RootCauses) == 0 {
		b.WriteString("No root causes identified.\n\n")
	}
	for i, id := range g.RootCauses {
		n := g.Nodes[id]
		fmt.Fprintf(&b, "%d. **%s** (%s, %s): %s\n", i+1, id, n.IssueType, n.Finding.MetricName(), n.Description)
		fmt.Fprintf(&b, "   - confidence %.2f, explains %s\n", n.Finding.Confidence(), strings.Join(n.Causes, ", "))
		if v := n.Finding.Validation; v != nil && v.CrossValidated {
			fmt.Fprintf(&b, "   - confirmed by %d agents: %s\n", v.SourceCount, strings.Join(v.Sources, ", "))
		}
	}
	if len(g.RootCauses) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Critical paths\n\n")
	if len(g.CriticalPaths) == 0 {
		b.WriteString("No metric values were provided.\n")
	}
	for _, cp := range g.CriticalPaths {
		if len(cp.Path) == 0 {
			fmt.Fprintf(&b, "- **%s**: %s\n", cp.Metric, InsufficientEvidence)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s (strength %.2f)\n", cp.Metric, strings.Join(cp.Path, " → "), cp.Strength)
	}

	if len(g.Cycles) > 0 {
		b.WriteString("\n## Causal cycles\n\n")
		for _, cycle := range g.Cycles {
			fmt.Fprintf(&b, "- %s\n", strings.Join(cycle, " ↔ "))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
